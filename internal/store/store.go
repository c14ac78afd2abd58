package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("store: not found")

// BuildingQuery narrows building listings for search and scrape selection.
type BuildingQuery struct {
	CityID          string
	NeighborhoodIDs []string
	Status          BuildingStatus
	RequireWebsite  bool
	PetFriendly     bool // require non-empty pet policy
	ParkingRequired bool // require non-empty parking policy
	Limit           int
}

// UnitQuery narrows unit listings for search.
type UnitQuery struct {
	BuildingIDs   []string
	AvailableOnly bool
	BedsMin       *int
	BedsMax       *int
	BathsMin      *float64
	MoveInBy      *time.Time
	Limit         int
}

// Store is the persistence surface the scraper, batch drivers and search
// service operate against. Postgres is the production implementation; Memory
// backs tests.
type Store interface {
	// Cities and neighborhoods.
	GetCityBySlug(ctx context.Context, slug string) (*City, error)
	GetOrCreateNeighborhood(ctx context.Context, cityID, name string) (*Neighborhood, error)
	ListNeighborhoodsBySlug(ctx context.Context, cityID string, slugs []string) ([]Neighborhood, error)

	// Buildings.
	GetBuilding(ctx context.Context, id string) (*Building, error)
	ListBuildings(ctx context.Context, q BuildingQuery) ([]Building, error)
	UpdateBuildingPolicies(ctx context.Context, buildingID, petPolicy, parkingPolicy string) error

	// Units and price history.
	UpsertUnit(ctx context.Context, u *Unit) error
	ListUnits(ctx context.Context, q UnitQuery) ([]Unit, error)
	MarkUnitsUnavailable(ctx context.Context, buildingID string, activeUnitNumbers []string) (int, error)
	AddPriceSnapshot(ctx context.Context, s *UnitPriceSnapshot) error
	LatestSnapshots(ctx context.Context, unitIDs []string) (map[string]UnitPriceSnapshot, error)

	// Amenities.
	GetOrCreateAmenity(ctx context.Context, name, category string) (*Amenity, error)
	LinkBuildingAmenity(ctx context.Context, buildingID, amenityID, details string) error
	AmenityNamesByBuilding(ctx context.Context, buildingIDs []string) (map[string][]string, error)

	// Floorplans and images.
	GetOrCreateFloorplan(ctx context.Context, fp *Floorplan) (*Floorplan, error)
	FloorplansByID(ctx context.Context, ids []string) (map[string]Floorplan, error)
	UnitImages(ctx context.Context, unitIDs []string) (map[string][]UnitImage, error)
	BuildingImages(ctx context.Context, buildingIDs []string) (map[string][]BuildingImage, error)

	// Scrape status.
	GetScrapeStatuses(ctx context.Context, buildingIDs []string) (map[string]ScrapeStatus, error)
	UpdateScrapeStatus(ctx context.Context, upd StatusUpdate) error
	SetScrapeEnabled(ctx context.Context, buildingIDs []string, enabled bool) error

	// Scrape jobs.
	CreateScrapeJob(ctx context.Context, job *ScrapeJob) error
	UpdateScrapeJob(ctx context.Context, job *ScrapeJob) error
	ListRecentScrapeJobs(ctx context.Context, limit int) ([]ScrapeJob, error)
}
