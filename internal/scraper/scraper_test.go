package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/digisapp/luxapts/internal/extractor"
	"github.com/digisapp/luxapts/internal/fetcher"
)

// fakeFetcher serves canned pages by URL and records fetch order.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) FetchHTML(_ context.Context, rawURL string) (*fetcher.Page, error) {
	f.fetched = append(f.fetched, rawURL)
	html, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("fetch %s: connection refused", rawURL)
	}
	return &fetcher.Page{HTML: html, FinalURL: rawURL}, nil
}

// capturingUnits records the HTML it was asked to extract from.
type capturingUnits struct {
	html   string
	result extractor.UnitsResult
}

func (c *capturingUnits) ExtractUnits(_ context.Context, html, _ string) extractor.UnitsResult {
	c.html = html
	return c.result
}

type capturingAmenities struct {
	html   string
	result extractor.AmenitiesResult
}

func (c *capturingAmenities) ExtractAmenities(_ context.Context, html, _ string) extractor.AmenitiesResult {
	c.html = html
	return c.result
}

func newTestScraper(f Fetcher, u *capturingUnits, a *capturingAmenities) *Scraper {
	s := New(f, u, a)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestScrapeUnitsOnly_PrefersUnitsPage(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{
		"https://example.com":            `<html><a href="/floorplans">Floor Plans</a></html>`,
		"https://example.com/floorplans": `<html>the units page</html>`,
	}}
	units := &capturingUnits{result: extractor.UnitsResult{
		Units:          []extractor.ScrapedUnit{{UnitNumber: "4A", Beds: 1, Baths: 1, Rent: 3100}},
		TotalAvailable: 1,
	}}

	result := newTestScraper(ff, units, &capturingAmenities{}).ScrapeUnitsOnly(context.Background(), "https://example.com")

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if units.html != "<html>the units page</html>" {
		t.Errorf("expected extraction over the units page only, got %q", units.html)
	}
	if result.Data.SourceURL != "https://example.com/floorplans" {
		t.Errorf("source URL = %q", result.Data.SourceURL)
	}
	if len(result.Data.Units) != 1 || result.Data.TotalAvailable != 1 {
		t.Errorf("unexpected data: %+v", result.Data)
	}
	if result.Data.ScrapedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("scraped_at = %q", result.Data.ScrapedAt)
	}
	if result.RawHTMLLength != len("<html>the units page</html>") {
		t.Errorf("raw_html_length = %d", result.RawHTMLLength)
	}
}

func TestScrapeUnitsOnly_NoSubPageUsesMain(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{
		"https://example.com": `<html>no links here</html>`,
	}}
	units := &capturingUnits{}

	result := newTestScraper(ff, units, &capturingAmenities{}).ScrapeUnitsOnly(context.Background(), "https://example.com")

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if len(ff.fetched) != 1 {
		t.Errorf("expected a single fetch, got %v", ff.fetched)
	}
	if units.html != "<html>no links here</html>" {
		t.Errorf("expected main page HTML, got %q", units.html)
	}
}

func TestScrapeUnitsOnly_MainPageFailureIsFatal(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{}}

	result := newTestScraper(ff, &capturingUnits{}, &capturingAmenities{}).ScrapeUnitsOnly(context.Background(), "https://down.example.com")

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "failed to fetch main page") {
		t.Errorf("error = %q", result.Error)
	}
	if result.Data != nil {
		t.Errorf("expected no data, got %+v", result.Data)
	}
}

func TestScrapeUnitsOnly_SubPageFailureDegrades(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{
		"https://example.com": `<html><a href="/availability">Availability</a> main content</html>`,
	}}
	units := &capturingUnits{}

	result := newTestScraper(ff, units, &capturingAmenities{}).ScrapeUnitsOnly(context.Background(), "https://example.com")

	if !result.Success {
		t.Fatalf("expected success despite sub-page failure, got %q", result.Error)
	}
	if !strings.Contains(units.html, "main content") {
		t.Errorf("expected main page HTML, got %q", units.html)
	}
	if result.Data.SourceURL != "https://example.com" {
		t.Errorf("source URL = %q", result.Data.SourceURL)
	}
}

func TestScrapeAmenitiesOnly_ConcatenatesPages(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{
		"https://example.com":           `<html><a href="/amenities">Amenities</a> hero amenities</html>`,
		"https://example.com/amenities": `<html>full amenity list</html>`,
	}}
	amenities := &capturingAmenities{result: extractor.AmenitiesResult{
		Amenities: []extractor.ScrapedAmenity{{Name: "Pool"}},
		PetPolicy: "dogs ok",
	}}

	result := newTestScraper(ff, &capturingUnits{}, amenities).ScrapeAmenitiesOnly(context.Background(), "https://example.com")

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if !strings.Contains(amenities.html, "hero amenities") || !strings.Contains(amenities.html, "full amenity list") {
		t.Errorf("expected both pages in extraction input, got %q", amenities.html)
	}
	if !strings.Contains(amenities.html, "<!-- AMENITIES PAGE -->") {
		t.Error("expected page separator marker")
	}
	if result.Data.PetPolicy != "dogs ok" {
		t.Errorf("pet policy = %q", result.Data.PetPolicy)
	}
	if result.Data.SourceURL != "https://example.com/amenities" {
		t.Errorf("source URL = %q", result.Data.SourceURL)
	}
	if result.RawHTMLLength != len(amenities.html) {
		t.Errorf("raw_html_length = %d, want %d", result.RawHTMLLength, len(amenities.html))
	}
}

func TestScrapeFullBuilding_CombinesAllPages(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{
		"https://example.com":            `<html><a href="/amenities">Amenities</a><a href="/floorplans">Floor Plans</a> main</html>`,
		"https://example.com/amenities":  `<html>amenities sub</html>`,
		"https://example.com/floorplans": `<html>units sub</html>`,
	}}
	units := &capturingUnits{result: extractor.UnitsResult{
		Units:          []extractor.ScrapedUnit{{Beds: 2, Baths: 2, Rent: 5000}},
		TotalAvailable: 1,
	}}
	amenities := &capturingAmenities{result: extractor.AmenitiesResult{
		Amenities: []extractor.ScrapedAmenity{{Name: "Gym"}},
	}}

	result := newTestScraper(ff, units, amenities).ScrapeFullBuilding(context.Background(), "https://example.com")

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	for _, want := range []string{
		"main",
		"<!-- AMENITIES PAGE: https://example.com/amenities -->",
		"amenities sub",
		"<!-- UNITS PAGE: https://example.com/floorplans -->",
		"units sub",
	} {
		if !strings.Contains(units.html, want) {
			t.Errorf("combined HTML missing %q", want)
		}
	}
	if units.html != amenities.html {
		t.Error("both extractions should run over the same combined HTML")
	}
	if len(result.Data.Units) != 1 || len(result.Data.Amenities) != 1 {
		t.Errorf("unexpected data: %+v", result.Data)
	}
	if result.Data.SourceURL != "https://example.com" {
		t.Errorf("source URL should be the main page, got %q", result.Data.SourceURL)
	}
}

func TestScrapeFullBuilding_SubPageFailuresDegrade(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{
		"https://example.com": `<html><a href="/amenities">Amenities</a><a href="/floorplans">Floor Plans</a> main only</html>`,
	}}
	units := &capturingUnits{}

	result := newTestScraper(ff, units, &capturingAmenities{}).ScrapeFullBuilding(context.Background(), "https://example.com")

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if strings.Contains(units.html, "<!--") {
		t.Errorf("expected no sub-page markers, got %q", units.html)
	}
	if !strings.Contains(units.html, "main only") {
		t.Errorf("expected main HTML, got %q", units.html)
	}
}

func TestScrapeFullBuilding_MainFailureIsFatal(t *testing.T) {
	result := newTestScraper(&fakeFetcher{}, &capturingUnits{}, &capturingAmenities{}).
		ScrapeFullBuilding(context.Background(), "https://down.example.com")
	if result.Success {
		t.Fatal("expected failure")
	}
}

// End to end: real fetcher against a local server, pattern extraction, no LLM.
func TestScrapeFullBuilding_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/amenities">Amenities</a>
			<a href="/floorplans">Floor Plans</a>
		</body></html>`)
	})
	mux.HandleFunc("/floorplans", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table>
			<tr><td>Studio</td><td>1 Bath</td><td>500 sqft</td><td>$2,200</td></tr>
			<tr><td>1 Bed</td><td>1 Bath</td><td>700 sqft</td><td>$2,900</td></tr>
			<tr><td>2 Bed</td><td>2 Bath</td><td>1,100 sqft</td><td>$4,400</td></tr>
		</table></body></html>`)
	})
	mux.HandleFunc("/amenities", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul>
			<li>Rooftop Pool</li>
			<li>Fitness Center</li>
		</ul></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := fetcher.New(fetcher.Config{Mode: fetcher.ModeStatic}, fetcher.NewThrottleInterval(0))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	pattern := extractor.NewPatternExtractor()
	result := New(client, pattern, pattern).ScrapeFullBuilding(context.Background(), srv.URL)

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if len(result.Data.Units) != 3 {
		t.Fatalf("expected 3 units, got %d: %+v", len(result.Data.Units), result.Data.Units)
	}
	beds := map[int]bool{}
	for _, u := range result.Data.Units {
		beds[u.Beds] = true
		if u.Rent == 0 {
			t.Errorf("unit missing rent: %+v", u)
		}
	}
	for _, b := range []int{0, 1, 2} {
		if !beds[b] {
			t.Errorf("missing %d-bed unit", b)
		}
	}
	if len(result.Data.Amenities) != 2 {
		t.Errorf("expected 2 amenities, got %+v", result.Data.Amenities)
	}
}
