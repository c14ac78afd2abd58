// Package extractor turns building website HTML into structured unit and
// amenity data, either through an LLM call with a pinned JSON contract or
// through a deterministic pattern-based fallback.
package extractor

import "context"

// ScrapedUnit is one rental unit as extracted from a website.
type ScrapedUnit struct {
	UnitNumber    string  `json:"unit_number,omitempty"`
	Floor         string  `json:"floor,omitempty"`
	Beds          int     `json:"beds"` // 0 = studio
	Baths         float64 `json:"baths"`
	Sqft          int     `json:"sqft,omitempty"`
	Rent          int     `json:"rent"`
	AvailableOn   string  `json:"available_on,omitempty"` // ISO date
	FloorplanName string  `json:"floorplan_name,omitempty"`
	View          string  `json:"view,omitempty"`
}

// ScrapedAmenity is one building amenity as extracted from a website.
type ScrapedAmenity struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// AmenityCategories is the closed category set amenities are classified into.
var AmenityCategories = []string{
	"fitness", "outdoor", "social", "pet", "security",
	"convenience", "wellness", "tech", "comfort",
}

// UnitsResult is the unit-extraction payload. A failed extraction yields the
// zero value, which is already well-formed for downstream code.
type UnitsResult struct {
	Units          []ScrapedUnit `json:"units"`
	TotalAvailable int           `json:"total_available"`
	MoveInSpecials []string      `json:"move_in_specials"`
}

// AmenitiesResult is the amenity-extraction payload.
type AmenitiesResult struct {
	Amenities     []ScrapedAmenity `json:"amenities"`
	PetPolicy     string           `json:"pet_policy,omitempty"`
	ParkingPolicy string           `json:"parking_policy,omitempty"`
}

// UnitSource extracts units from HTML. Implemented by the LLM-backed
// Extractor and by PatternExtractor.
type UnitSource interface {
	ExtractUnits(ctx context.Context, html, sourceURL string) UnitsResult
}

// AmenitySource extracts amenities from HTML.
type AmenitySource interface {
	ExtractAmenities(ctx context.Context, html, sourceURL string) AmenitiesResult
}
