// Package store persists the scraper and search subsystem's state: buildings,
// units, amenity links, append-only price history, per-building scrape status
// and batch job audit records.
package store

import "time"

// BuildingStatus is the building lifecycle state. Buildings are never hard
// deleted; they transition to inactive instead.
type BuildingStatus string

const (
	BuildingActive     BuildingStatus = "active"
	BuildingInactive   BuildingStatus = "inactive"
	BuildingComingSoon BuildingStatus = "coming_soon"
)

// City is a top-level market.
type City struct {
	ID   string
	Name string
	Slug string
}

// Neighborhood belongs to a city. Slug is derived from the name and is the
// dedup key within the city.
type Neighborhood struct {
	ID     string
	CityID string
	Name   string
	Slug   string
}

// Building is one property.
type Building struct {
	ID             string
	CityID         string
	NeighborhoodID *string
	Name           string
	Slug           string
	Address        string
	Description    string
	PetPolicy      string
	ParkingPolicy  string
	Status         BuildingStatus
	WebsiteURL     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Amenity is globally deduplicated by name.
type Amenity struct {
	ID       string
	Name     string
	Category string
}

// Floorplan groups units of a building that share a layout.
type Floorplan struct {
	ID         string
	BuildingID string
	Name       string
	Beds       int
	Baths      float64
	Sqft       int
}

// Unit is one rental unit. (BuildingID, UnitNumber) is unique when
// UnitNumber is present. Price lives in UnitPriceSnapshot, not here.
type Unit struct {
	ID          string
	BuildingID  string
	FloorplanID *string
	UnitNumber  string
	Floor       string
	Beds        int
	Baths       float64
	Sqft        int
	View        string
	IsAvailable bool
	AvailableOn *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UnitPriceSnapshot is one observed rent. Append-only; the current price of a
// unit is the snapshot with the greatest CapturedAt (ties broken by ID, which
// is monotonically assigned).
type UnitPriceSnapshot struct {
	ID         int64
	UnitID     string
	Rent       int
	CapturedAt time.Time
	Source     string
}

// UnitImage is one photo of a unit, ordered by Position.
type UnitImage struct {
	ID       string
	UnitID   string
	URL      string
	Position int
}

// BuildingImage is one photo of a building, ordered by Position.
type BuildingImage struct {
	ID         string
	BuildingID string
	URL        string
	Position   int
}

// ScrapeType selects which track a scrape touches.
type ScrapeType string

const (
	ScrapeUnits     ScrapeType = "units"
	ScrapeAmenities ScrapeType = "amenities"
	ScrapeFull      ScrapeType = "full"
)

// ScrapeStatus is the per-building bookkeeping row, one per building or
// absent. Absence means the building has never been scraped.
type ScrapeStatus struct {
	BuildingID         string
	WebsiteURL         string
	ScrapeEnabled      bool
	UnitsScrapedAt     *time.Time
	UnitsSuccess       bool
	UnitsError         string
	UnitsFound         int
	AmenitiesScrapedAt *time.Time
	AmenitiesSuccess   bool
	AmenitiesError     string
	UpdatedAt          time.Time
}

// StatusUpdate is one scrape attempt's outcome. Type decides which track(s)
// get stamped; ScrapeFull touches both.
type StatusUpdate struct {
	BuildingID string
	Type       ScrapeType
	Success    bool
	Error      string
	UnitsFound int
	WebsiteURL string
	At         time.Time
}

// JobStatus is the scrape job lifecycle: pending -> running -> completed or
// failed.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ScrapeJob is the audit record of one batch run.
type ScrapeJob struct {
	ID             string
	JobType        ScrapeType
	CityID         *string
	BuildingID     *string
	Status         JobStatus
	Processed      int
	Succeeded      int
	Failed         int
	UnitsFound     int
	AmenitiesFound int
	Errors         []string
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
