package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/digisapp/luxapts/internal/extractor"
	"github.com/digisapp/luxapts/internal/logger"
	"github.com/digisapp/luxapts/internal/scraper"
	"github.com/digisapp/luxapts/internal/store"
)

// Inter-building delays. The loop is a deliberate politeness throttle on top
// of the fetcher's per-domain rate limit; no two buildings are scraped
// back to back with zero delay.
const (
	UnitsDelay     = 3 * time.Second
	AmenitiesDelay = 5 * time.Second
)

// Scraper is the per-building scrape dependency. *scraper.Scraper satisfies
// it.
type Scraper interface {
	ScrapeUnitsOnly(ctx context.Context, websiteURL string) scraper.Result
	ScrapeAmenitiesOnly(ctx context.Context, websiteURL string) scraper.Result
	ScrapeFullBuilding(ctx context.Context, websiteURL string) scraper.Result
}

// Options scopes one batch run.
type Options struct {
	CitySlug  string
	Limit     int
	DaysStale int
	Force     bool
}

// BuildingError records one building's failure within a batch.
type BuildingError struct {
	BuildingID   string `json:"building_id"`
	BuildingName string `json:"building_name"`
	Error        string `json:"error"`
}

// Summary is the outcome of one batch run.
type Summary struct {
	JobID          string          `json:"job_id"`
	Processed      int             `json:"buildings_processed"`
	Succeeded      int             `json:"buildings_success"`
	Failed         int             `json:"buildings_failed"`
	UnitsFound     int             `json:"total_units_found,omitempty"`
	AmenitiesFound int             `json:"total_amenities_found,omitempty"`
	MoveInSpecials []string        `json:"move_in_specials,omitempty"`
	Errors         []BuildingError `json:"errors,omitempty"`
}

// Runner loops over due buildings one at a time with an inter-building
// delay, persisting what each scrape finds and keeping the job audit row
// current.
type Runner struct {
	store   store.Store
	scraper Scraper

	unitsDelay     time.Duration
	amenitiesDelay time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDelay overrides both inter-building delays.
func WithDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.unitsDelay = d
		r.amenitiesDelay = d
	}
}

// NewRunner creates a Runner with the default delays.
func NewRunner(st store.Store, sc Scraper, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:          st,
		scraper:        sc,
		unitsDelay:     UnitsDelay,
		amenitiesDelay: AmenitiesDelay,
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunUnits scrapes unit availability for due buildings.
func (r *Runner) RunUnits(ctx context.Context, opts Options) (*Summary, error) {
	return r.run(ctx, store.ScrapeUnits, opts)
}

// RunAmenities scrapes amenities and policies for due buildings.
func (r *Runner) RunAmenities(ctx context.Context, opts Options) (*Summary, error) {
	return r.run(ctx, store.ScrapeAmenities, opts)
}

func (r *Runner) run(ctx context.Context, typ store.ScrapeType, opts Options) (*Summary, error) {
	var cityID *string
	if opts.CitySlug != "" {
		city, err := r.store.GetCityBySlug(ctx, opts.CitySlug)
		if err != nil {
			return nil, fmt.Errorf("resolve city %q: %w", opts.CitySlug, err)
		}
		cityID = &city.ID
	}

	job := &store.ScrapeJob{JobType: typ, CityID: cityID}
	if err := r.store.CreateScrapeJob(ctx, job); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job.Status = store.JobRunning
	job.StartedAt = &now
	if err := r.store.UpdateScrapeJob(ctx, job); err != nil {
		logger.Warn("failed to mark job running", "job_id", job.ID, "error", err)
	}

	selectOpts := SelectOptions{
		OnlyUnits:     typ == store.ScrapeUnits,
		OnlyAmenities: typ == store.ScrapeAmenities,
		Limit:         opts.Limit,
		DaysStale:     opts.DaysStale,
		Force:         opts.Force,
	}
	if cityID != nil {
		selectOpts.CityID = *cityID
	}
	buildings, err := GetBuildingsToScrape(ctx, r.store, selectOpts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{JobID: job.ID}
	delay := r.unitsDelay
	if typ == store.ScrapeAmenities {
		delay = r.amenitiesDelay
	}

	for i, building := range buildings {
		if i > 0 {
			if err := r.sleep(ctx, delay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		r.processBuilding(ctx, typ, building, summary)
		summary.Processed++

		if summary.Processed%5 == 0 {
			r.syncJob(ctx, job, summary, job.Status)
		}
	}

	final := store.JobCompleted
	if summary.Processed > 0 && summary.Failed == summary.Processed {
		final = store.JobFailed
	}
	done := time.Now().UTC()
	job.FinishedAt = &done
	r.syncJob(ctx, job, summary, final)

	logger.Info("batch scrape finished",
		"job_id", job.ID,
		"type", string(typ),
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed)
	return summary, nil
}

func (r *Runner) processBuilding(ctx context.Context, typ store.ScrapeType, building store.Building, summary *Summary) {
	websiteURL := building.WebsiteURL
	if websiteURL == "" {
		r.fail(ctx, typ, building, websiteURL, "no website URL", summary)
		return
	}

	var result scraper.Result
	switch typ {
	case store.ScrapeUnits:
		result = r.scraper.ScrapeUnitsOnly(ctx, websiteURL)
	case store.ScrapeAmenities:
		result = r.scraper.ScrapeAmenitiesOnly(ctx, websiteURL)
	default:
		result = r.scraper.ScrapeFullBuilding(ctx, websiteURL)
	}

	if !result.Success || result.Data == nil {
		r.fail(ctx, typ, building, websiteURL, result.Error, summary)
		return
	}

	unitsFound, amenitiesLinked := r.persist(ctx, typ, building, result.Data)
	summary.UnitsFound += unitsFound
	summary.AmenitiesFound += amenitiesLinked
	summary.MoveInSpecials = append(summary.MoveInSpecials, result.Data.MoveInSpecials...)
	summary.Succeeded++

	if err := r.store.UpdateScrapeStatus(ctx, store.StatusUpdate{
		BuildingID: building.ID,
		Type:       typ,
		Success:    true,
		UnitsFound: unitsFound,
		WebsiteURL: websiteURL,
	}); err != nil {
		logger.Warn("failed to update scrape status", "building_id", building.ID, "error", err)
	}
}

func (r *Runner) fail(ctx context.Context, typ store.ScrapeType, building store.Building, websiteURL, message string, summary *Summary) {
	if message == "" {
		message = "unknown error"
	}
	summary.Failed++
	summary.Errors = append(summary.Errors, BuildingError{
		BuildingID:   building.ID,
		BuildingName: building.Name,
		Error:        message,
	})
	if err := r.store.UpdateScrapeStatus(ctx, store.StatusUpdate{
		BuildingID: building.ID,
		Type:       typ,
		Success:    false,
		Error:      message,
		WebsiteURL: websiteURL,
	}); err != nil {
		logger.Warn("failed to update scrape status", "building_id", building.ID, "error", err)
	}
}

// persist writes one building's scrape result. Each step failure is logged
// and the remaining steps still run; partial application is recoverable on
// the next scrape.
func (r *Runner) persist(ctx context.Context, typ store.ScrapeType, building store.Building, data *scraper.BuildingData) (unitsFound, amenitiesLinked int) {
	if typ == store.ScrapeUnits || typ == store.ScrapeFull {
		unitsFound = len(data.Units)
		active := r.persistUnits(ctx, building.ID, data.Units)
		if len(active) > 0 {
			if _, err := r.store.MarkUnitsUnavailable(ctx, building.ID, active); err != nil {
				logger.Warn("failed to age out units", "building_id", building.ID, "error", err)
			}
		}
	}

	if typ == store.ScrapeAmenities || typ == store.ScrapeFull {
		amenitiesLinked = r.persistAmenities(ctx, building.ID, data.Amenities)
		if data.PetPolicy != "" || data.ParkingPolicy != "" {
			if err := r.store.UpdateBuildingPolicies(ctx, building.ID, data.PetPolicy, data.ParkingPolicy); err != nil {
				logger.Warn("failed to update building policies", "building_id", building.ID, "error", err)
			}
		}
	}
	return unitsFound, amenitiesLinked
}

// persistUnits upserts extracted units and appends price snapshots,
// returning the unit numbers seen. Units without a unit number only count
// toward aggregate stats.
func (r *Runner) persistUnits(ctx context.Context, buildingID string, units []extractor.ScrapedUnit) []string {
	var active []string
	for _, su := range units {
		if su.UnitNumber == "" {
			continue
		}
		u := &store.Unit{
			BuildingID:  buildingID,
			UnitNumber:  su.UnitNumber,
			Floor:       su.Floor,
			Beds:        su.Beds,
			Baths:       su.Baths,
			Sqft:        su.Sqft,
			View:        su.View,
			IsAvailable: true,
		}
		if su.AvailableOn != "" {
			if t, err := time.Parse("2006-01-02", su.AvailableOn); err == nil {
				u.AvailableOn = &t
			}
		}
		if su.FloorplanName != "" {
			fp, err := r.store.GetOrCreateFloorplan(ctx, &store.Floorplan{
				BuildingID: buildingID,
				Name:       su.FloorplanName,
				Beds:       su.Beds,
				Baths:      su.Baths,
				Sqft:       su.Sqft,
			})
			if err != nil {
				logger.Warn("failed to get or create floorplan", "building_id", buildingID, "name", su.FloorplanName, "error", err)
			} else {
				u.FloorplanID = &fp.ID
			}
		}
		if err := r.store.UpsertUnit(ctx, u); err != nil {
			logger.Warn("failed to upsert unit", "building_id", buildingID, "unit_number", su.UnitNumber, "error", err)
			continue
		}
		active = append(active, su.UnitNumber)

		if su.Rent > 0 {
			snap := &store.UnitPriceSnapshot{UnitID: u.ID, Rent: su.Rent, Source: "scrape"}
			if err := r.store.AddPriceSnapshot(ctx, snap); err != nil {
				logger.Warn("failed to add price snapshot", "unit_id", u.ID, "error", err)
			}
		}
	}
	return active
}

func (r *Runner) persistAmenities(ctx context.Context, buildingID string, amenities []extractor.ScrapedAmenity) int {
	linked := 0
	for _, sa := range amenities {
		if sa.Name == "" {
			continue
		}
		amenity, err := r.store.GetOrCreateAmenity(ctx, sa.Name, sa.Category)
		if err != nil {
			logger.Warn("failed to get or create amenity", "name", sa.Name, "error", err)
			continue
		}
		if err := r.store.LinkBuildingAmenity(ctx, buildingID, amenity.ID, sa.Description); err != nil {
			logger.Warn("failed to link amenity", "building_id", buildingID, "amenity", sa.Name, "error", err)
			continue
		}
		linked++
	}
	return linked
}

func (r *Runner) syncJob(ctx context.Context, job *store.ScrapeJob, summary *Summary, status store.JobStatus) {
	job.Status = status
	job.Processed = summary.Processed
	job.Succeeded = summary.Succeeded
	job.Failed = summary.Failed
	job.UnitsFound = summary.UnitsFound
	job.AmenitiesFound = summary.AmenitiesFound
	job.Errors = job.Errors[:0]
	for _, e := range summary.Errors {
		job.Errors = append(job.Errors, fmt.Sprintf("%s (%s): %s", e.BuildingName, e.BuildingID, e.Error))
	}
	if err := r.store.UpdateScrapeJob(ctx, job); err != nil {
		logger.Warn("failed to update scrape job", "job_id", job.ID, "error", err)
	}
}

// RunBuilding scrapes a single building immediately, outside the batch
// selection rules. The scrape_enabled kill switch still applies unless force
// is set.
func (r *Runner) RunBuilding(ctx context.Context, buildingID string, typ store.ScrapeType, force bool) (*Summary, error) {
	building, err := r.store.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if !force {
		statuses, err := r.store.GetScrapeStatuses(ctx, []string{buildingID})
		if err != nil {
			return nil, err
		}
		if s, ok := statuses[buildingID]; ok && !s.ScrapeEnabled {
			return nil, fmt.Errorf("scraping disabled for building %s", buildingID)
		}
	}

	job := &store.ScrapeJob{JobType: typ, BuildingID: &building.ID}
	if err := r.store.CreateScrapeJob(ctx, job); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job.Status = store.JobRunning
	job.StartedAt = &now
	if err := r.store.UpdateScrapeJob(ctx, job); err != nil {
		logger.Warn("failed to mark job running", "job_id", job.ID, "error", err)
	}

	summary := &Summary{JobID: job.ID}
	r.processBuilding(ctx, typ, *building, summary)
	summary.Processed = 1

	final := store.JobCompleted
	if summary.Failed == 1 {
		final = store.JobFailed
	}
	done := time.Now().UTC()
	job.FinishedAt = &done
	r.syncJob(ctx, job, summary, final)
	return summary, nil
}
