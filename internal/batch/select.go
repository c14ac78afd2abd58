// Package batch drives scraping across many buildings: candidate selection,
// the sequential politeness loop, persistence of scraped data and the scrape
// job audit trail.
package batch

import (
	"context"
	"time"

	"github.com/digisapp/luxapts/internal/store"
)

// Selection defaults.
const (
	DefaultSelectLimit = 50
	DefaultDaysStale   = 30
)

// SelectOptions controls candidate building selection.
type SelectOptions struct {
	CityID        string
	OnlyUnits     bool // units track staleness only
	OnlyAmenities bool // amenities never scraped only
	Limit         int
	DaysStale     int
	Force         bool // ignore staleness, still honor the scrape_enabled kill switch
}

// GetBuildingsToScrape picks active buildings with a website that are due for
// scraping. The staleness predicate is derived from the status row, so the
// store query over-fetches twice the limit and the filter runs here.
func GetBuildingsToScrape(ctx context.Context, st store.Store, opts SelectOptions) ([]store.Building, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSelectLimit
	}
	daysStale := opts.DaysStale
	if daysStale <= 0 {
		daysStale = DefaultDaysStale
	}
	cutoff := time.Now().AddDate(0, 0, -daysStale)

	buildings, err := st.ListBuildings(ctx, store.BuildingQuery{
		CityID:         opts.CityID,
		Status:         store.BuildingActive,
		RequireWebsite: true,
		Limit:          limit * 2,
	})
	if err != nil {
		return nil, err
	}
	if len(buildings) == 0 {
		return nil, nil
	}

	ids := make([]string, len(buildings))
	for i, b := range buildings {
		ids[i] = b.ID
	}
	statuses, err := st.GetScrapeStatuses(ctx, ids)
	if err != nil {
		return nil, err
	}

	var out []store.Building
	for _, b := range buildings {
		status, ok := statuses[b.ID]
		if eligible(status, ok, opts, cutoff) {
			out = append(out, b)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// eligible decides whether one building is due. No status row means never
// scraped, always due. Amenities change rarely, so the amenities batch only
// picks buildings whose amenities track was never scraped. The staleness
// boundary is inclusive: a track scraped exactly daysStale days ago is due
// again.
func eligible(status store.ScrapeStatus, hasStatus bool, opts SelectOptions, cutoff time.Time) bool {
	if !hasStatus {
		return true
	}
	if !status.ScrapeEnabled {
		return false
	}
	if opts.Force {
		return true
	}
	if opts.OnlyAmenities {
		return status.AmenitiesScrapedAt == nil
	}
	if opts.OnlyUnits {
		return status.UnitsScrapedAt == nil || !status.UnitsScrapedAt.After(cutoff)
	}
	if status.AmenitiesScrapedAt == nil || status.UnitsScrapedAt == nil {
		return true
	}
	return !status.UnitsScrapedAt.After(cutoff)
}
