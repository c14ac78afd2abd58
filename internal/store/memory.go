package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store used by tests and local development. It
// mirrors the Postgres implementation's semantics, including upsert conflict
// targets and latest-snapshot ordering.
type Memory struct {
	mu sync.Mutex

	cities        []City
	neighborhoods []Neighborhood
	buildings     []Building
	units         []Unit
	snapshots     []UnitPriceSnapshot
	amenities     []Amenity
	links         map[string]map[string]string // building id -> amenity id -> details
	floorplans    []Floorplan
	unitImages    map[string][]UnitImage
	bldgImages    map[string][]BuildingImage
	statuses      map[string]ScrapeStatus
	jobs          []ScrapeJob

	nextSnapshotID int64
	now            func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		links:      make(map[string]map[string]string),
		unitImages: make(map[string][]UnitImage),
		bldgImages: make(map[string][]BuildingImage),
		statuses:   make(map[string]ScrapeStatus),
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (m *Memory) SetNow(now func() time.Time) { m.now = now }

// AddCity seeds a city and returns it.
func (m *Memory) AddCity(name string) City {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := City{ID: uuid.NewString(), Name: name, Slug: Slugify(name)}
	m.cities = append(m.cities, c)
	return c
}

// AddBuilding seeds a building, filling ID, slug and status defaults.
func (m *Memory) AddBuilding(b Building) Building {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Slug == "" {
		b.Slug = Slugify(b.Name)
	}
	if b.Status == "" {
		b.Status = BuildingActive
	}
	b.CreatedAt = m.now()
	b.UpdatedAt = b.CreatedAt
	m.buildings = append(m.buildings, b)
	return b
}

// AddUnitImage seeds a unit image.
func (m *Memory) AddUnitImage(img UnitImage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	m.unitImages[img.UnitID] = append(m.unitImages[img.UnitID], img)
}

// AddBuildingImage seeds a building image.
func (m *Memory) AddBuildingImage(img BuildingImage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	m.bldgImages[img.BuildingID] = append(m.bldgImages[img.BuildingID], img)
}

func (m *Memory) GetCityBySlug(_ context.Context, slug string) (*City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cities {
		if m.cities[i].Slug == slug {
			c := m.cities[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetOrCreateNeighborhood(_ context.Context, cityID, name string) (*Neighborhood, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slug := Slugify(name)
	for i := range m.neighborhoods {
		if m.neighborhoods[i].CityID == cityID && m.neighborhoods[i].Slug == slug {
			n := m.neighborhoods[i]
			return &n, nil
		}
	}
	n := Neighborhood{ID: uuid.NewString(), CityID: cityID, Name: name, Slug: slug}
	m.neighborhoods = append(m.neighborhoods, n)
	return &n, nil
}

func (m *Memory) ListNeighborhoodsBySlug(_ context.Context, cityID string, slugs []string) ([]Neighborhood, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[s] = true
	}
	var out []Neighborhood
	for _, n := range m.neighborhoods {
		if n.CityID == cityID && want[n.Slug] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Memory) GetBuilding(_ context.Context, id string) (*Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.buildings {
		if m.buildings[i].ID == id {
			b := m.buildings[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListBuildings(_ context.Context, q BuildingQuery) ([]Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nbhd := make(map[string]bool, len(q.NeighborhoodIDs))
	for _, id := range q.NeighborhoodIDs {
		nbhd[id] = true
	}

	var out []Building
	for _, b := range m.buildings {
		if q.CityID != "" && b.CityID != q.CityID {
			continue
		}
		if len(nbhd) > 0 && (b.NeighborhoodID == nil || !nbhd[*b.NeighborhoodID]) {
			continue
		}
		if q.Status != "" && b.Status != q.Status {
			continue
		}
		if q.RequireWebsite && b.WebsiteURL == "" {
			continue
		}
		if q.PetFriendly && b.PetPolicy == "" {
			continue
		}
		if q.ParkingRequired && b.ParkingPolicy == "" {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) UpdateBuildingPolicies(_ context.Context, buildingID, petPolicy, parkingPolicy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.buildings {
		if m.buildings[i].ID != buildingID {
			continue
		}
		if petPolicy != "" {
			m.buildings[i].PetPolicy = petPolicy
		}
		if parkingPolicy != "" {
			m.buildings[i].ParkingPolicy = parkingPolicy
		}
		m.buildings[i].UpdatedAt = m.now()
		return nil
	}
	return ErrNotFound
}

func (m *Memory) UpsertUnit(_ context.Context, u *Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.units {
		if m.units[i].BuildingID == u.BuildingID && m.units[i].UnitNumber == u.UnitNumber {
			existing := &m.units[i]
			if u.FloorplanID != nil {
				existing.FloorplanID = u.FloorplanID
			}
			existing.Floor = u.Floor
			existing.Beds = u.Beds
			existing.Baths = u.Baths
			existing.Sqft = u.Sqft
			existing.View = u.View
			existing.IsAvailable = u.IsAvailable
			existing.AvailableOn = u.AvailableOn
			existing.UpdatedAt = m.now()
			*u = *existing
			return nil
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.units = append(m.units, *u)
	return nil
}

func (m *Memory) ListUnits(_ context.Context, q UnitQuery) ([]Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bldg := make(map[string]bool, len(q.BuildingIDs))
	for _, id := range q.BuildingIDs {
		bldg[id] = true
	}

	var out []Unit
	for _, u := range m.units {
		if len(bldg) > 0 && !bldg[u.BuildingID] {
			continue
		}
		if q.AvailableOnly && !u.IsAvailable {
			continue
		}
		if q.BedsMin != nil && u.Beds < *q.BedsMin {
			continue
		}
		if q.BedsMax != nil && u.Beds > *q.BedsMax {
			continue
		}
		if q.BathsMin != nil && u.Baths < *q.BathsMin {
			continue
		}
		if q.MoveInBy != nil && u.AvailableOn != nil && u.AvailableOn.After(*q.MoveInBy) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BuildingID != out[j].BuildingID {
			return out[i].BuildingID < out[j].BuildingID
		}
		return out[i].UnitNumber < out[j].UnitNumber
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) MarkUnitsUnavailable(_ context.Context, buildingID string, activeUnitNumbers []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := make(map[string]bool, len(activeUnitNumbers))
	for _, n := range activeUnitNumbers {
		active[n] = true
	}
	count := 0
	for i := range m.units {
		u := &m.units[i]
		if u.BuildingID == buildingID && u.IsAvailable && !active[u.UnitNumber] {
			u.IsAvailable = false
			u.UpdatedAt = m.now()
			count++
		}
	}
	return count, nil
}

func (m *Memory) AddPriceSnapshot(_ context.Context, s *UnitPriceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CapturedAt.IsZero() {
		s.CapturedAt = m.now().UTC()
	}
	m.nextSnapshotID++
	s.ID = m.nextSnapshotID
	m.snapshots = append(m.snapshots, *s)
	return nil
}

func (m *Memory) LatestSnapshots(_ context.Context, unitIDs []string) (map[string]UnitPriceSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		want[id] = true
	}
	out := make(map[string]UnitPriceSnapshot)
	for _, s := range m.snapshots {
		if !want[s.UnitID] {
			continue
		}
		cur, ok := out[s.UnitID]
		if !ok || s.CapturedAt.After(cur.CapturedAt) ||
			(s.CapturedAt.Equal(cur.CapturedAt) && s.ID > cur.ID) {
			out[s.UnitID] = s
		}
	}
	return out, nil
}

// SnapshotCount reports how many snapshots exist for a unit, for tests.
func (m *Memory) SnapshotCount(unitID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.snapshots {
		if s.UnitID == unitID {
			n++
		}
	}
	return n
}

func (m *Memory) GetOrCreateAmenity(_ context.Context, name, category string) (*Amenity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.amenities {
		if m.amenities[i].Name == name {
			a := m.amenities[i]
			return &a, nil
		}
	}
	a := Amenity{ID: uuid.NewString(), Name: name, Category: category}
	m.amenities = append(m.amenities, a)
	return &a, nil
}

func (m *Memory) LinkBuildingAmenity(_ context.Context, buildingID, amenityID, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[buildingID] == nil {
		m.links[buildingID] = make(map[string]string)
	}
	if details != "" || m.links[buildingID][amenityID] == "" {
		m.links[buildingID][amenityID] = details
	}
	return nil
}

// LinkCount reports how many amenity links a building has, for tests.
func (m *Memory) LinkCount(buildingID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links[buildingID])
}

func (m *Memory) AmenityNamesByBuilding(_ context.Context, buildingIDs []string) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make(map[string]string, len(m.amenities))
	for _, a := range m.amenities {
		names[a.ID] = a.Name
	}
	out := make(map[string][]string)
	for _, buildingID := range buildingIDs {
		for amenityID := range m.links[buildingID] {
			out[buildingID] = append(out[buildingID], names[amenityID])
		}
		sort.Strings(out[buildingID])
	}
	return out, nil
}

func (m *Memory) GetOrCreateFloorplan(_ context.Context, fp *Floorplan) (*Floorplan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.floorplans {
		if m.floorplans[i].BuildingID == fp.BuildingID && m.floorplans[i].Name == fp.Name {
			m.floorplans[i].Beds = fp.Beds
			m.floorplans[i].Baths = fp.Baths
			m.floorplans[i].Sqft = fp.Sqft
			*fp = m.floorplans[i]
			return fp, nil
		}
	}
	if fp.ID == "" {
		fp.ID = uuid.NewString()
	}
	m.floorplans = append(m.floorplans, *fp)
	return fp, nil
}

func (m *Memory) FloorplansByID(_ context.Context, ids []string) (map[string]Floorplan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[string]Floorplan)
	for _, fp := range m.floorplans {
		if want[fp.ID] {
			out[fp.ID] = fp
		}
	}
	return out, nil
}

func (m *Memory) UnitImages(_ context.Context, unitIDs []string) (map[string][]UnitImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]UnitImage)
	for _, id := range unitIDs {
		if imgs := m.unitImages[id]; len(imgs) > 0 {
			out[id] = append([]UnitImage(nil), imgs...)
		}
	}
	return out, nil
}

func (m *Memory) BuildingImages(_ context.Context, buildingIDs []string) (map[string][]BuildingImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]BuildingImage)
	for _, id := range buildingIDs {
		if imgs := m.bldgImages[id]; len(imgs) > 0 {
			out[id] = append([]BuildingImage(nil), imgs...)
		}
	}
	return out, nil
}

func (m *Memory) GetScrapeStatuses(_ context.Context, buildingIDs []string) (map[string]ScrapeStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ScrapeStatus)
	if len(buildingIDs) == 0 {
		for id, s := range m.statuses {
			out[id] = s
		}
		return out, nil
	}
	for _, id := range buildingIDs {
		if s, ok := m.statuses[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (m *Memory) UpdateScrapeStatus(_ context.Context, upd StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := upd.At
	if at.IsZero() {
		at = m.now().UTC()
	}

	s, ok := m.statuses[upd.BuildingID]
	if !ok {
		s = ScrapeStatus{BuildingID: upd.BuildingID, ScrapeEnabled: true}
	}
	if upd.WebsiteURL != "" {
		s.WebsiteURL = upd.WebsiteURL
	}
	if upd.Type == ScrapeUnits || upd.Type == ScrapeFull {
		t := at
		s.UnitsScrapedAt = &t
		s.UnitsSuccess = upd.Success
		s.UnitsError = upd.Error
		s.UnitsFound = upd.UnitsFound
	}
	if upd.Type == ScrapeAmenities || upd.Type == ScrapeFull {
		t := at
		s.AmenitiesScrapedAt = &t
		s.AmenitiesSuccess = upd.Success
		s.AmenitiesError = upd.Error
	}
	s.UpdatedAt = at
	m.statuses[upd.BuildingID] = s
	return nil
}

func (m *Memory) SetScrapeEnabled(_ context.Context, buildingIDs []string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range buildingIDs {
		s, ok := m.statuses[id]
		if !ok {
			s = ScrapeStatus{BuildingID: id}
		}
		s.ScrapeEnabled = enabled
		s.UpdatedAt = m.now()
		m.statuses[id] = s
	}
	return nil
}

func (m *Memory) CreateScrapeJob(_ context.Context, job *ScrapeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = JobPending
	}
	job.CreatedAt = m.now()
	job.UpdatedAt = job.CreatedAt
	m.jobs = append(m.jobs, *job)
	return nil
}

func (m *Memory) UpdateScrapeJob(_ context.Context, job *ScrapeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID == job.ID {
			job.UpdatedAt = m.now()
			job.CreatedAt = m.jobs[i].CreatedAt
			m.jobs[i] = *job
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListRecentScrapeJobs(_ context.Context, limit int) ([]ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	out := append([]ScrapeJob(nil), m.jobs...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
