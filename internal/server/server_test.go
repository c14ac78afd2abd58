package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/digisapp/luxapts/internal/batch"
	"github.com/digisapp/luxapts/internal/extractor"
	"github.com/digisapp/luxapts/internal/scraper"
	"github.com/digisapp/luxapts/internal/search"
	"github.com/digisapp/luxapts/internal/store"
)

// stubScraper answers every scrape with the same canned result.
type stubScraper struct {
	result scraper.Result
}

func (s *stubScraper) ScrapeUnitsOnly(context.Context, string) scraper.Result     { return s.result }
func (s *stubScraper) ScrapeAmenitiesOnly(context.Context, string) scraper.Result { return s.result }
func (s *stubScraper) ScrapeFullBuilding(context.Context, string) scraper.Result  { return s.result }

func okScrape() scraper.Result {
	return scraper.Result{
		Success: true,
		Data: &scraper.BuildingData{
			Units: []extractor.ScrapedUnit{{UnitNumber: "1A", Beds: 1, Baths: 1, Rent: 3000}},
		},
	}
}

func newTestServer(t *testing.T, m *store.Memory, result scraper.Result) *Server {
	t.Helper()
	runner := batch.NewRunner(m, &stubScraper{result: result})
	return New(m, runner, search.NewService(m, nil), "topsecret")
}

func TestCronEndpointsRequireSecret(t *testing.T) {
	m := store.NewMemory()
	m.AddCity("New York")
	srv := newTestServer(t, m, okScrape())

	for _, path := range []string{"/cron/scrape-units", "/cron/scrape-amenities"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status %d, want 401", path, rec.Code)
		}

		req = httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: status %d, want 401", path, rec.Code)
		}
	}
}

func TestCronScrapeUnitsRunsBatch(t *testing.T) {
	m := store.NewMemory()
	city := m.AddCity("New York")
	m.AddBuilding(store.Building{CityID: city.ID, Name: "Tower", WebsiteURL: "https://tower.example.com"})
	srv := newTestServer(t, m, okScrape())

	req := httptest.NewRequest(http.MethodGet, "/cron/scrape-units?city=new-york&limit=5", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		JobID   string         `json:"job_id"`
		Results map[string]int `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.JobID == "" {
		t.Error("expected a job id")
	}
	if body.Results["buildings_processed"] != 1 || body.Results["buildings_success"] != 1 {
		t.Errorf("unexpected results: %v", body.Results)
	}
}

func TestCronBatchWithFailuresStillReturns200(t *testing.T) {
	m := store.NewMemory()
	city := m.AddCity("New York")
	m.AddBuilding(store.Building{CityID: city.ID, Name: "Broken", WebsiteURL: "https://broken.example.com"})
	srv := newTestServer(t, m, scraper.Result{Success: false, Error: "failed to fetch main page: 403"})

	req := httptest.NewRequest(http.MethodGet, "/cron/scrape-units", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("batch failures must still answer 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "failed to fetch main page") {
		t.Error("expected sampled errors in the payload")
	}
}

func TestAdminScrapeStatusClassification(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	city := m.AddCity("New York")

	fresh := m.AddBuilding(store.Building{CityID: city.ID, Name: "Fresh", WebsiteURL: "https://fresh.example.com"})
	stale := m.AddBuilding(store.Building{CityID: city.ID, Name: "Stale", WebsiteURL: "https://stale.example.com"})
	broken := m.AddBuilding(store.Building{CityID: city.ID, Name: "Broken", WebsiteURL: "https://broken.example.com"})
	m.AddBuilding(store.Building{CityID: city.ID, Name: "Untouched"})

	now := time.Now()
	mustStatus := func(upd store.StatusUpdate) {
		if err := m.UpdateScrapeStatus(ctx, upd); err != nil {
			t.Fatal(err)
		}
	}
	mustStatus(store.StatusUpdate{BuildingID: fresh.ID, Type: store.ScrapeUnits, Success: true, UnitsFound: 4, At: now.Add(-24 * time.Hour)})
	mustStatus(store.StatusUpdate{BuildingID: stale.ID, Type: store.ScrapeUnits, Success: true, UnitsFound: 2, At: now.Add(-10 * 24 * time.Hour)})
	mustStatus(store.StatusUpdate{BuildingID: broken.ID, Type: store.ScrapeUnits, Success: false, Error: "timeout", At: now.Add(-1 * time.Hour)})

	srv := newTestServer(t, m, okScrape())
	req := httptest.NewRequest(http.MethodGet, "/admin/scrape", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Summary   map[string]int `json:"summary"`
		Buildings []struct {
			Name        string `json:"name"`
			ScrapeState string `json:"scrape_state"`
		} `json:"buildings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}

	want := map[string]int{"total": 4, "never_scraped": 1, "success": 1, "stale": 1, "failed": 1, "total_units": 6}
	for k, v := range want {
		if body.Summary[k] != v {
			t.Errorf("summary[%s] = %d, want %d", k, body.Summary[k], v)
		}
	}

	states := map[string]string{}
	for _, b := range body.Buildings {
		states[b.Name] = b.ScrapeState
	}
	if states["Fresh"] != "success" || states["Stale"] != "stale" ||
		states["Broken"] != "failed" || states["Untouched"] != "never_scraped" {
		t.Errorf("unexpected states: %v", states)
	}
}

func TestAdminEnableDisable(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	city := m.AddCity("New York")
	b := m.AddBuilding(store.Building{CityID: city.ID, Name: "Tower", WebsiteURL: "https://tower.example.com"})
	srv := newTestServer(t, m, okScrape())

	req := httptest.NewRequest(http.MethodPost, "/admin/scrape",
		strings.NewReader(`{"action": "disable", "building_ids": ["`+b.ID+`"]}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	statuses, _ := m.GetScrapeStatuses(ctx, []string{b.ID})
	if statuses[b.ID].ScrapeEnabled {
		t.Error("disable should flip scrape_enabled off")
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/scrape",
		strings.NewReader(`{"action": "enable"}`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("enable without building_ids should be 400, got %d", rec.Code)
	}
}

func TestAdminTriggerReturnsEndpoint(t *testing.T) {
	srv := newTestServer(t, store.NewMemory(), okScrape())

	req := httptest.NewRequest(http.MethodPost, "/admin/scrape",
		strings.NewReader(`{"action": "trigger", "city_slug": "new-york", "type": "amenities"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["endpoint"] != "/cron/scrape-amenities?city=new-york" || body["method"] != "GET" {
		t.Errorf("unexpected trigger response: %v", body)
	}
}

func TestScrapeBuildingEndpoint(t *testing.T) {
	m := store.NewMemory()
	city := m.AddCity("New York")
	b := m.AddBuilding(store.Building{CityID: city.ID, Name: "Tower", WebsiteURL: "https://tower.example.com"})
	srv := newTestServer(t, m, okScrape())

	req := httptest.NewRequest(http.MethodPost, "/scrape/building/"+b.ID,
		strings.NewReader(`{"type": "units"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	units, err := m.ListUnits(context.Background(), store.UnitQuery{BuildingIDs: []string{b.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 {
		t.Errorf("expected the scraped unit persisted, got %d units", len(units))
	}
}

func TestScrapeBuildingNotFound(t *testing.T) {
	srv := newTestServer(t, store.NewMemory(), okScrape())

	req := httptest.NewRequest(http.MethodPost, "/scrape/building/nope", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	city := m.AddCity("New York")
	b := m.AddBuilding(store.Building{CityID: city.ID, Name: "Aqua Tower"})
	u := &store.Unit{BuildingID: b.ID, UnitNumber: "2A", Beds: 1, Baths: 1, IsAvailable: true}
	if err := m.UpsertUnit(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := m.AddPriceSnapshot(ctx, &store.UnitPriceSnapshot{UnitID: u.ID, Rent: 3200}); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, m, okScrape())

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"city_slug": "new-york"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		City    string `json:"city"`
		Results []struct {
			Pricing struct {
				Rent int `json:"Rent"`
			} `json:"pricing"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.City != "new-york" || len(body.Results) != 1 {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	srv := newTestServer(t, store.NewMemory(), okScrape())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing city", `{}`, http.StatusBadRequest},
		{"bad sort", `{"city_slug": "new-york", "sort": "sideways"}`, http.StatusBadRequest},
		{"unknown city", `{"city_slug": "atlantis"}`, http.StatusNotFound},
		{"malformed JSON", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
