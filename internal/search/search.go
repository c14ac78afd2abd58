package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/digisapp/luxapts/internal/store"
)

// Limit bounds for one search response.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var validate = validator.New()

// Request is the search endpoint body.
type Request struct {
	CitySlug          string   `json:"city_slug" validate:"required"`
	NeighborhoodSlugs []string `json:"neighborhood_slugs,omitempty"`
	BedsMin           *int     `json:"beds_min,omitempty" validate:"omitempty,min=0"`
	BedsMax           *int     `json:"beds_max,omitempty" validate:"omitempty,min=0"`
	BathsMin          *float64 `json:"baths_min,omitempty" validate:"omitempty,min=0"`
	BudgetMin         *int     `json:"budget_min,omitempty" validate:"omitempty,min=0"`
	BudgetMax         *int     `json:"budget_max,omitempty" validate:"omitempty,min=0"`
	AmenitiesAny      []string `json:"amenities_any,omitempty"`
	AmenitiesAll      []string `json:"amenities_all,omitempty"`
	PetFriendly       bool     `json:"pet_friendly,omitempty"`
	ParkingRequired   bool     `json:"parking_required,omitempty"`
	MoveInDate        string   `json:"move_in_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Sort              string   `json:"sort,omitempty" validate:"omitempty,oneof=best_match price_low price_high newest sqft_high"`
	Limit             int      `json:"limit,omitempty"`
}

// Validate checks field constraints.
func (r *Request) Validate() error {
	return validate.Struct(r)
}

// Result bundles one unit with its building, current price, images and
// floorplan.
type Result struct {
	Building  store.Building           `json:"building"`
	Unit      store.Unit               `json:"unit"`
	Pricing   *store.UnitPriceSnapshot `json:"pricing"`
	Images    []store.UnitImage        `json:"images"`
	Floorplan *store.Floorplan         `json:"floorplan,omitempty"`
}

// Response is the search endpoint payload. CapturedAtMax is the newest
// snapshot among all returned pricing, a freshness signal for the caller.
type Response struct {
	City          string     `json:"city"`
	CapturedAtMax *time.Time `json:"captured_at_max"`
	Results       []Result   `json:"results"`
}

// FilterByAmenities keeps candidate building ids whose amenity names satisfy
// the any/all term lists. amenityNames maps building id to its linked amenity
// names; any means at least one term matches, all means every term matches,
// and both filters are ANDed when present.
func FilterByAmenities(synonyms Synonyms, amenityNames map[string][]string, candidates []string, anyTerms, allTerms []string) []string {
	if len(anyTerms) == 0 && len(allTerms) == 0 {
		return candidates
	}

	lowered := make(map[string][]string, len(amenityNames))
	for id, names := range amenityNames {
		l := make([]string, len(names))
		for i, n := range names {
			l[i] = strings.ToLower(n)
		}
		lowered[id] = l
	}

	hasAmenity := func(buildingID, term string) bool {
		for _, keyword := range synonyms.Keywords(term) {
			for _, name := range lowered[buildingID] {
				if strings.Contains(name, keyword) {
					return true
				}
			}
		}
		return false
	}

	var out []string
	for _, id := range candidates {
		if len(anyTerms) > 0 {
			matched := false
			for _, term := range anyTerms {
				if hasAmenity(id, term) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if len(allTerms) > 0 {
			matchedAll := true
			for _, term := range allTerms {
				if !hasAmenity(id, term) {
					matchedAll = false
					break
				}
			}
			if !matchedAll {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

// Service runs searches against the store.
type Service struct {
	store    store.Store
	synonyms Synonyms
}

// NewService creates a search Service. A nil synonyms table uses the
// defaults.
func NewService(st store.Store, synonyms Synonyms) *Service {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	return &Service{store: st, synonyms: synonyms}
}

// Search resolves the city, narrows buildings by neighborhood, policy and
// amenity filters, then lists available units with their latest prices.
// Units without an observed rent are excluded; the budget filter needs a
// price to compare against.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	city, err := s.store.GetCityBySlug(ctx, req.CitySlug)
	if err != nil {
		return nil, err
	}

	resp := &Response{City: city.Slug, Results: []Result{}}

	var neighborhoodIDs []string
	if len(req.NeighborhoodSlugs) > 0 {
		neighborhoods, err := s.store.ListNeighborhoodsBySlug(ctx, city.ID, req.NeighborhoodSlugs)
		if err != nil {
			return nil, err
		}
		for _, n := range neighborhoods {
			neighborhoodIDs = append(neighborhoodIDs, n.ID)
		}
	}

	buildings, err := s.store.ListBuildings(ctx, store.BuildingQuery{
		CityID:          city.ID,
		NeighborhoodIDs: neighborhoodIDs,
		Status:          store.BuildingActive,
		PetFriendly:     req.PetFriendly,
		ParkingRequired: req.ParkingRequired,
	})
	if err != nil {
		return nil, err
	}
	if len(buildings) == 0 {
		return resp, nil
	}

	buildingByID := make(map[string]store.Building, len(buildings))
	buildingIDs := make([]string, 0, len(buildings))
	for _, b := range buildings {
		buildingByID[b.ID] = b
		buildingIDs = append(buildingIDs, b.ID)
	}

	if len(req.AmenitiesAny) > 0 || len(req.AmenitiesAll) > 0 {
		names, err := s.store.AmenityNamesByBuilding(ctx, buildingIDs)
		if err != nil {
			return nil, err
		}
		buildingIDs = FilterByAmenities(s.synonyms, names, buildingIDs, req.AmenitiesAny, req.AmenitiesAll)
		if len(buildingIDs) == 0 {
			return resp, nil
		}
	}

	var moveInBy *time.Time
	if req.MoveInDate != "" {
		t, err := time.Parse("2006-01-02", req.MoveInDate)
		if err != nil {
			return nil, fmt.Errorf("invalid move_in_date: %w", err)
		}
		moveInBy = &t
	}

	// Over-fetch so the post-hoc budget filter still fills the page.
	units, err := s.store.ListUnits(ctx, store.UnitQuery{
		BuildingIDs:   buildingIDs,
		AvailableOnly: true,
		BedsMin:       req.BedsMin,
		BedsMax:       req.BedsMax,
		BathsMin:      req.BathsMin,
		MoveInBy:      moveInBy,
		Limit:         limit * 2,
	})
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return resp, nil
	}

	unitIDs := make([]string, len(units))
	for i, u := range units {
		unitIDs[i] = u.ID
	}

	snapshots, err := s.store.LatestSnapshots(ctx, unitIDs)
	if err != nil {
		return nil, err
	}
	unitImages, err := s.store.UnitImages(ctx, unitIDs)
	if err != nil {
		return nil, err
	}
	buildingImages, err := s.store.BuildingImages(ctx, buildingIDs)
	if err != nil {
		return nil, err
	}

	var floorplanIDs []string
	for _, u := range units {
		if u.FloorplanID != nil {
			floorplanIDs = append(floorplanIDs, *u.FloorplanID)
		}
	}
	floorplans := map[string]store.Floorplan{}
	if len(floorplanIDs) > 0 {
		floorplans, err = s.store.FloorplansByID(ctx, floorplanIDs)
		if err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(units))
	for _, u := range units {
		snap, ok := snapshots[u.ID]
		if !ok || snap.Rent == 0 {
			continue
		}
		if req.BudgetMin != nil && snap.Rent < *req.BudgetMin {
			continue
		}
		if req.BudgetMax != nil && snap.Rent > *req.BudgetMax {
			continue
		}

		r := Result{
			Building: buildingByID[u.BuildingID],
			Unit:     u,
			Pricing:  &snap,
			Images:   unitImages[u.ID],
		}
		// Building images stand in when the unit has none.
		if len(r.Images) == 0 {
			for _, img := range buildingImages[u.BuildingID] {
				r.Images = append(r.Images, store.UnitImage{
					ID: img.ID, UnitID: u.ID, URL: img.URL, Position: img.Position,
				})
			}
		}
		if u.FloorplanID != nil {
			if fp, ok := floorplans[*u.FloorplanID]; ok {
				r.Floorplan = &fp
			}
		}
		results = append(results, r)

		if resp.CapturedAtMax == nil || snap.CapturedAt.After(*resp.CapturedAtMax) {
			t := snap.CapturedAt
			resp.CapturedAtMax = &t
		}
	}

	sortResults(results, req.Sort)
	if len(results) > limit {
		results = results[:limit]
	}
	resp.Results = results
	return resp, nil
}

func sortResults(results []Result, order string) {
	switch order {
	case "price_low":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Pricing.Rent < results[j].Pricing.Rent
		})
	case "price_high":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Pricing.Rent > results[j].Pricing.Rent
		})
	case "sqft_high":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Unit.Sqft > results[j].Unit.Sqft
		})
	case "newest":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Pricing.CapturedAt.After(results[j].Pricing.CapturedAt)
		})
	default:
		// best_match keeps store order.
	}
}
