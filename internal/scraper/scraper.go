// Package scraper orchestrates fetching and extraction for a single building
// website: main page, discovered sub-pages, and the extraction passes over
// the combined HTML.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/digisapp/luxapts/internal/extractor"
	"github.com/digisapp/luxapts/internal/fetcher"
	"github.com/digisapp/luxapts/internal/logger"
)

// Fetcher is the page-retrieval dependency. *fetcher.Client satisfies it.
type Fetcher interface {
	FetchHTML(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// BuildingData is everything one scrape run learned about a building.
type BuildingData struct {
	Units          []extractor.ScrapedUnit    `json:"units"`
	TotalAvailable int                        `json:"total_available"`
	MoveInSpecials []string                   `json:"move_in_specials,omitempty"`
	Amenities      []extractor.ScrapedAmenity `json:"amenities"`
	PetPolicy      string                     `json:"pet_policy,omitempty"`
	ParkingPolicy  string                     `json:"parking_policy,omitempty"`
	ScrapedAt      string                     `json:"scraped_at"` // RFC3339
	SourceURL      string                     `json:"source_url"`
}

// Result is the envelope every scrape operation returns. Success is false
// only when the main page could not be fetched; extraction failures still
// produce a successful result with empty data.
type Result struct {
	Success       bool          `json:"success"`
	Data          *BuildingData `json:"data,omitempty"`
	Error         string        `json:"error,omitempty"`
	RawHTMLLength int           `json:"raw_html_length,omitempty"`
}

// Scraper composes a Fetcher with unit and amenity extraction sources.
type Scraper struct {
	fetcher   Fetcher
	units     extractor.UnitSource
	amenities extractor.AmenitySource
	now       func() time.Time
}

// New creates a Scraper.
func New(f Fetcher, units extractor.UnitSource, amenities extractor.AmenitySource) *Scraper {
	return &Scraper{
		fetcher:   f,
		units:     units,
		amenities: amenities,
		now:       time.Now,
	}
}

// ScrapeUnitsOnly fetches the building site, prefers a dedicated floor-plans
// or availability page when one is linked, and extracts units from it.
func (s *Scraper) ScrapeUnitsOnly(ctx context.Context, websiteURL string) Result {
	main, err := s.fetcher.FetchHTML(ctx, websiteURL)
	if err != nil {
		return failure("failed to fetch main page", err)
	}

	html := main.HTML
	sourceURL := main.FinalURL

	if unitsURL := fetcher.FindUnitsPage(websiteURL, main.HTML); unitsURL != "" {
		if page, err := s.fetcher.FetchHTML(ctx, unitsURL); err != nil {
			logger.Warn("units page fetch failed, using main page", "url", unitsURL, "error", err)
		} else {
			html = page.HTML
			sourceURL = page.FinalURL
		}
	}

	units := s.units.ExtractUnits(ctx, html, sourceURL)

	return Result{
		Success: true,
		Data: &BuildingData{
			Units:          units.Units,
			TotalAvailable: units.TotalAvailable,
			MoveInSpecials: units.MoveInSpecials,
			Amenities:      []extractor.ScrapedAmenity{},
			ScrapedAt:      s.now().UTC().Format(time.RFC3339),
			SourceURL:      sourceURL,
		},
		RawHTMLLength: len(html),
	}
}

// ScrapeAmenitiesOnly fetches the building site and, when a dedicated
// amenities page exists, appends it to the main page HTML before extraction.
// Amenity lists are often split between the landing page and a sub-page, so
// both are kept.
func (s *Scraper) ScrapeAmenitiesOnly(ctx context.Context, websiteURL string) Result {
	main, err := s.fetcher.FetchHTML(ctx, websiteURL)
	if err != nil {
		return failure("failed to fetch main page", err)
	}

	html := main.HTML
	sourceURL := main.FinalURL

	if amenitiesURL := fetcher.FindAmenitiesPage(websiteURL, main.HTML); amenitiesURL != "" {
		if page, err := s.fetcher.FetchHTML(ctx, amenitiesURL); err != nil {
			logger.Warn("amenities page fetch failed, using main page", "url", amenitiesURL, "error", err)
		} else {
			html = main.HTML + "\n\n<!-- AMENITIES PAGE -->\n\n" + page.HTML
			sourceURL = page.FinalURL
		}
	}

	amenities := s.amenities.ExtractAmenities(ctx, html, sourceURL)

	return Result{
		Success: true,
		Data: &BuildingData{
			Units:         []extractor.ScrapedUnit{},
			Amenities:     amenities.Amenities,
			PetPolicy:     amenities.PetPolicy,
			ParkingPolicy: amenities.ParkingPolicy,
			ScrapedAt:     s.now().UTC().Format(time.RFC3339),
			SourceURL:     sourceURL,
		},
		RawHTMLLength: len(html),
	}
}

// ScrapeFullBuilding discovers the amenities and units sub-pages in parallel,
// fetches any that exist, and runs both extraction passes in parallel over
// the combined annotated HTML.
func (s *Scraper) ScrapeFullBuilding(ctx context.Context, websiteURL string) Result {
	main, err := s.fetcher.FetchHTML(ctx, websiteURL)
	if err != nil {
		return failure("failed to fetch main page", err)
	}

	var amenitiesURL, unitsURL string
	var discover sync.WaitGroup
	discover.Add(2)
	go func() {
		defer discover.Done()
		amenitiesURL = fetcher.FindAmenitiesPage(websiteURL, main.HTML)
	}()
	go func() {
		defer discover.Done()
		unitsURL = fetcher.FindUnitsPage(websiteURL, main.HTML)
	}()
	discover.Wait()

	pages := []string{main.HTML}
	pages = appendSubPage(ctx, s.fetcher, pages, "AMENITIES PAGE", amenitiesURL)
	pages = appendSubPage(ctx, s.fetcher, pages, "UNITS PAGE", unitsURL)

	fullHTML := strings.Join(pages, "\n\n")

	var (
		units     extractor.UnitsResult
		amenities extractor.AmenitiesResult
		extract   sync.WaitGroup
	)
	extract.Add(2)
	go func() {
		defer extract.Done()
		units = s.units.ExtractUnits(ctx, fullHTML, main.FinalURL)
	}()
	go func() {
		defer extract.Done()
		amenities = s.amenities.ExtractAmenities(ctx, fullHTML, main.FinalURL)
	}()
	extract.Wait()

	return Result{
		Success: true,
		Data: &BuildingData{
			Units:          units.Units,
			TotalAvailable: units.TotalAvailable,
			MoveInSpecials: units.MoveInSpecials,
			Amenities:      amenities.Amenities,
			PetPolicy:      amenities.PetPolicy,
			ParkingPolicy:  amenities.ParkingPolicy,
			ScrapedAt:      s.now().UTC().Format(time.RFC3339),
			SourceURL:      main.FinalURL,
		},
		RawHTMLLength: len(fullHTML),
	}
}

// appendSubPage fetches pageURL and appends its HTML annotated with a
// source-URL marker comment. Fetch failures degrade to the pages already
// collected.
func appendSubPage(ctx context.Context, f Fetcher, pages []string, label, pageURL string) []string {
	if pageURL == "" {
		return pages
	}
	page, err := f.FetchHTML(ctx, pageURL)
	if err != nil {
		logger.Warn("sub-page fetch failed, continuing without it", "url", pageURL, "error", err)
		return pages
	}
	return append(pages, fmt.Sprintf("<!-- %s: %s -->\n%s", label, page.FinalURL, page.HTML))
}

func failure(msg string, err error) Result {
	return Result{Success: false, Error: fmt.Sprintf("%s: %v", msg, err)}
}
