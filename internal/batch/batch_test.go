package batch

import (
	"context"
	"testing"
	"time"

	"github.com/digisapp/luxapts/internal/extractor"
	"github.com/digisapp/luxapts/internal/scraper"
	"github.com/digisapp/luxapts/internal/store"
)

// stubScraper returns a canned result per website URL.
type stubScraper struct {
	results map[string]scraper.Result
	calls   []string
}

func (s *stubScraper) result(url string) scraper.Result {
	s.calls = append(s.calls, url)
	if r, ok := s.results[url]; ok {
		return r
	}
	return scraper.Result{Success: false, Error: "failed to fetch main page: no route"}
}

func (s *stubScraper) ScrapeUnitsOnly(_ context.Context, url string) scraper.Result {
	return s.result(url)
}

func (s *stubScraper) ScrapeAmenitiesOnly(_ context.Context, url string) scraper.Result {
	return s.result(url)
}

func (s *stubScraper) ScrapeFullBuilding(_ context.Context, url string) scraper.Result {
	return s.result(url)
}

func unitsResult(units ...extractor.ScrapedUnit) scraper.Result {
	return scraper.Result{
		Success: true,
		Data: &scraper.BuildingData{
			Units:          units,
			TotalAvailable: len(units),
			ScrapedAt:      time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func newTestRunner(st store.Store, sc Scraper) (*Runner, *[]time.Duration) {
	r := NewRunner(st, sc)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func seedCityBuilding(m *store.Memory, name, website string) (store.City, store.Building) {
	city := m.AddCity("New York")
	b := m.AddBuilding(store.Building{CityID: city.ID, Name: name, WebsiteURL: website})
	return city, b
}

func TestGetBuildingsToScrape(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	old := now.AddDate(0, 0, -40)
	fresh := now.AddDate(0, 0, -1)

	tests := []struct {
		name       string
		status     *store.ScrapeStatus
		onlyUnits  bool
		force      bool
		wantListed bool
	}{
		{"no status row is eligible", nil, true, false, true},
		{"disabled is never eligible", &store.ScrapeStatus{ScrapeEnabled: false}, true, false, false},
		{"disabled stays ineligible even when never scraped", &store.ScrapeStatus{ScrapeEnabled: false}, false, false, false},
		{"stale units are eligible", &store.ScrapeStatus{ScrapeEnabled: true, UnitsScrapedAt: &old, AmenitiesScrapedAt: &old}, true, false, true},
		{"fresh units are not eligible", &store.ScrapeStatus{ScrapeEnabled: true, UnitsScrapedAt: &fresh, AmenitiesScrapedAt: &fresh}, true, false, false},
		{"full mode: amenities never scraped is eligible", &store.ScrapeStatus{ScrapeEnabled: true, UnitsScrapedAt: &fresh}, false, false, true},
		{"force overrides staleness", &store.ScrapeStatus{ScrapeEnabled: true, UnitsScrapedAt: &fresh, AmenitiesScrapedAt: &fresh}, true, true, true},
		{"force does not override the kill switch", &store.ScrapeStatus{ScrapeEnabled: false, UnitsScrapedAt: &old}, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := store.NewMemory()
			_, b := seedCityBuilding(m, "Test Tower", "https://tower.example.com")
			if tt.status != nil {
				s := *tt.status
				s.BuildingID = b.ID
				if !s.ScrapeEnabled {
					if err := m.SetScrapeEnabled(ctx, []string{b.ID}, false); err != nil {
						t.Fatal(err)
					}
				}
				if s.UnitsScrapedAt != nil {
					if err := m.UpdateScrapeStatus(ctx, store.StatusUpdate{
						BuildingID: b.ID, Type: store.ScrapeUnits, Success: true, At: *s.UnitsScrapedAt,
					}); err != nil {
						t.Fatal(err)
					}
				}
				if s.AmenitiesScrapedAt != nil {
					if err := m.UpdateScrapeStatus(ctx, store.StatusUpdate{
						BuildingID: b.ID, Type: store.ScrapeAmenities, Success: true, At: *s.AmenitiesScrapedAt,
					}); err != nil {
						t.Fatal(err)
					}
				}
				if !s.ScrapeEnabled {
					// Status updates leave the switch on; flip it back off.
					if err := m.SetScrapeEnabled(ctx, []string{b.ID}, false); err != nil {
						t.Fatal(err)
					}
				}
			}

			got, err := GetBuildingsToScrape(ctx, m, SelectOptions{OnlyUnits: tt.onlyUnits, DaysStale: 30, Force: tt.force})
			if err != nil {
				t.Fatal(err)
			}
			if listed := len(got) == 1; listed != tt.wantListed {
				t.Errorf("listed = %v, want %v", listed, tt.wantListed)
			}
		})
	}
}

func TestEligibleBoundaryInclusive(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	exact := cutoff
	after := cutoff.Add(time.Nanosecond)

	status := store.ScrapeStatus{ScrapeEnabled: true, UnitsScrapedAt: &exact}
	if !eligible(status, true, SelectOptions{OnlyUnits: true}, cutoff) {
		t.Error("a track scraped exactly at the cutoff must be due again")
	}

	status.UnitsScrapedAt = &after
	if eligible(status, true, SelectOptions{OnlyUnits: true}, cutoff) {
		t.Error("a track scraped after the cutoff must not be due")
	}
}

func TestGetBuildingsToScrapeAmenitiesMode(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	old := now.AddDate(0, 0, -90)

	tests := []struct {
		name               string
		amenitiesScrapedAt *time.Time
		unitsScrapedAt     *time.Time
		force              bool
		wantListed         bool
	}{
		{"never scraped is eligible", nil, nil, false, true},
		{"scraped amenities are never re-selected", &yesterday, &yesterday, false, false},
		{"stale units do not make amenities due", &yesterday, &old, false, false},
		{"old amenities are still not re-selected", &old, &old, false, false},
		{"force re-selects scraped amenities", &yesterday, &yesterday, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := store.NewMemory()
			_, b := seedCityBuilding(m, "Test Tower", "https://tower.example.com")
			if tt.amenitiesScrapedAt != nil {
				if err := m.UpdateScrapeStatus(ctx, store.StatusUpdate{
					BuildingID: b.ID, Type: store.ScrapeAmenities, Success: true, At: *tt.amenitiesScrapedAt,
				}); err != nil {
					t.Fatal(err)
				}
			}
			if tt.unitsScrapedAt != nil {
				if err := m.UpdateScrapeStatus(ctx, store.StatusUpdate{
					BuildingID: b.ID, Type: store.ScrapeUnits, Success: true, At: *tt.unitsScrapedAt,
				}); err != nil {
					t.Fatal(err)
				}
			}

			got, err := GetBuildingsToScrape(ctx, m, SelectOptions{OnlyAmenities: true, DaysStale: 30, Force: tt.force})
			if err != nil {
				t.Fatal(err)
			}
			if listed := len(got) == 1; listed != tt.wantListed {
				t.Errorf("listed = %v, want %v", listed, tt.wantListed)
			}
		})
	}
}

func TestGetBuildingsToScrapeSkipsBuildingsWithoutWebsite(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	city := m.AddCity("New York")
	m.AddBuilding(store.Building{CityID: city.ID, Name: "No Site"})

	got, err := GetBuildingsToScrape(ctx, m, SelectOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("buildings without a website must not be selected, got %d", len(got))
	}
}

func TestRunUnitsCreatesFloorplans(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_, b := seedCityBuilding(m, "The Meridian", "https://meridian.example.com")

	sc := &stubScraper{results: map[string]scraper.Result{
		"https://meridian.example.com": unitsResult(
			extractor.ScrapedUnit{UnitNumber: "4A", Beds: 1, Baths: 1, Sqft: 700, Rent: 3000, FloorplanName: "A1"},
			extractor.ScrapedUnit{UnitNumber: "5A", Beds: 1, Baths: 1, Sqft: 700, Rent: 3100, FloorplanName: "A1"},
			extractor.ScrapedUnit{UnitNumber: "6B", Beds: 2, Baths: 2, Sqft: 1100, Rent: 4800},
		),
	}}
	r, _ := newTestRunner(m, sc)

	if _, err := r.RunUnits(ctx, Options{}); err != nil {
		t.Fatal(err)
	}

	units, err := m.ListUnits(ctx, store.UnitQuery{BuildingIDs: []string{b.ID}})
	if err != nil {
		t.Fatal(err)
	}
	byNumber := map[string]store.Unit{}
	for _, u := range units {
		byNumber[u.UnitNumber] = u
	}

	a4, a5 := byNumber["4A"], byNumber["5A"]
	if a4.FloorplanID == nil || a5.FloorplanID == nil {
		t.Fatal("units with a floorplan name should link a floorplan")
	}
	if *a4.FloorplanID != *a5.FloorplanID {
		t.Error("same floorplan name should resolve to one floorplan")
	}
	if byNumber["6B"].FloorplanID != nil {
		t.Error("unit without a floorplan name should not link one")
	}

	fps, err := m.FloorplansByID(ctx, []string{*a4.FloorplanID})
	if err != nil {
		t.Fatal(err)
	}
	fp := fps[*a4.FloorplanID]
	if fp.Name != "A1" || fp.Beds != 1 || fp.Sqft != 700 {
		t.Errorf("unexpected floorplan: %+v", fp)
	}
}

func TestRunUnitsPersistsAndAges(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_, b := seedCityBuilding(m, "The Meridian", "https://meridian.example.com")

	// Unit C exists from an earlier scrape and is absent from the new set.
	if err := m.UpsertUnit(ctx, &store.Unit{BuildingID: b.ID, UnitNumber: "C", Beds: 1, Baths: 1, IsAvailable: true}); err != nil {
		t.Fatal(err)
	}

	sc := &stubScraper{results: map[string]scraper.Result{
		"https://meridian.example.com": unitsResult(
			extractor.ScrapedUnit{UnitNumber: "A", Beds: 1, Baths: 1, Rent: 3000},
			extractor.ScrapedUnit{UnitNumber: "B", Beds: 2, Baths: 2, Rent: 4500},
		),
	}}
	r, _ := newTestRunner(m, sc)

	summary, err := r.RunUnits(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 1 || summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.UnitsFound != 2 {
		t.Errorf("units found = %d, want 2", summary.UnitsFound)
	}

	units, err := m.ListUnits(ctx, store.UnitQuery{BuildingIDs: []string{b.ID}})
	if err != nil {
		t.Fatal(err)
	}
	avail := map[string]bool{}
	var snapshots int
	for _, u := range units {
		avail[u.UnitNumber] = u.IsAvailable
		snapshots += m.SnapshotCount(u.ID)
	}
	if !avail["A"] || !avail["B"] {
		t.Error("scraped units should be available")
	}
	if avail["C"] {
		t.Error("unit absent from the scrape must be marked unavailable")
	}
	if snapshots != 2 {
		t.Errorf("expected 2 price snapshots, got %d", snapshots)
	}

	statuses, _ := m.GetScrapeStatuses(ctx, []string{b.ID})
	if s := statuses[b.ID]; !s.UnitsSuccess || s.UnitsFound != 2 {
		t.Errorf("unexpected status: %+v", s)
	}
}

func TestRunUnitsDelaysBetweenBuildings(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	city := m.AddCity("New York")
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		m.AddBuilding(store.Building{
			CityID: city.ID, Name: name,
			WebsiteURL: "https://" + name + ".example.com",
		})
	}
	sc := &stubScraper{results: map[string]scraper.Result{}}
	r, slept := newTestRunner(m, sc)

	if _, err := r.RunUnits(ctx, Options{}); err != nil {
		t.Fatal(err)
	}
	if len(sc.calls) != 3 {
		t.Fatalf("expected 3 scrapes, got %d", len(sc.calls))
	}
	if len(*slept) != 2 {
		t.Fatalf("expected a delay before every building after the first, got %d", len(*slept))
	}
	for _, d := range *slept {
		if d != UnitsDelay {
			t.Errorf("delay = %v, want %v", d, UnitsDelay)
		}
	}
}

func TestRunUnitsJobFailedOnlyOnTotalFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("partial failure completes", func(t *testing.T) {
		m := store.NewMemory()
		city := m.AddCity("New York")
		m.AddBuilding(store.Building{CityID: city.ID, Name: "Good", WebsiteURL: "https://good.example.com"})
		m.AddBuilding(store.Building{CityID: city.ID, Name: "Bad", WebsiteURL: "https://bad.example.com"})

		sc := &stubScraper{results: map[string]scraper.Result{
			"https://good.example.com": unitsResult(extractor.ScrapedUnit{UnitNumber: "1A", Beds: 1, Baths: 1, Rent: 2500}),
		}}
		r, _ := newTestRunner(m, sc)

		summary, err := r.RunUnits(ctx, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if summary.Failed != 1 || summary.Succeeded != 1 {
			t.Fatalf("unexpected summary: %+v", summary)
		}

		jobs, _ := m.ListRecentScrapeJobs(ctx, 1)
		if jobs[0].Status != store.JobCompleted {
			t.Errorf("partial failure should complete, got %q", jobs[0].Status)
		}
		if len(jobs[0].Errors) != 1 {
			t.Errorf("expected 1 recorded error, got %v", jobs[0].Errors)
		}
	})

	t.Run("total failure fails", func(t *testing.T) {
		m := store.NewMemory()
		seedCityBuilding(m, "Bad", "https://bad.example.com")
		r, _ := newTestRunner(m, &stubScraper{})

		if _, err := r.RunUnits(ctx, Options{}); err != nil {
			t.Fatal(err)
		}
		jobs, _ := m.ListRecentScrapeJobs(ctx, 1)
		if jobs[0].Status != store.JobFailed {
			t.Errorf("total failure should fail the job, got %q", jobs[0].Status)
		}
	})
}

func TestRunAmenitiesPersistsLinksAndPolicies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_, b := seedCityBuilding(m, "The Meridian", "https://meridian.example.com")

	sc := &stubScraper{results: map[string]scraper.Result{
		"https://meridian.example.com": {
			Success: true,
			Data: &scraper.BuildingData{
				Amenities: []extractor.ScrapedAmenity{
					{Name: "Rooftop Pool", Category: "outdoor"},
					{Name: "Fitness Center", Category: "fitness"},
				},
				PetPolicy: "cats and dogs welcome",
			},
		},
	}}
	r, _ := newTestRunner(m, sc)

	summary, err := r.RunAmenities(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.AmenitiesFound != 2 {
		t.Errorf("amenities found = %d, want 2", summary.AmenitiesFound)
	}
	if m.LinkCount(b.ID) != 2 {
		t.Errorf("expected 2 amenity links, got %d", m.LinkCount(b.ID))
	}

	updated, err := m.GetBuilding(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.PetPolicy != "cats and dogs welcome" {
		t.Errorf("pet policy = %q", updated.PetPolicy)
	}

	statuses, _ := m.GetScrapeStatuses(ctx, []string{b.ID})
	if s := statuses[b.ID]; !s.AmenitiesSuccess || s.AmenitiesScrapedAt == nil {
		t.Errorf("unexpected status: %+v", s)
	}
}

func TestRunUnitsFailureStampsStatus(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_, b := seedCityBuilding(m, "Unreachable", "https://unreachable.example.com")
	r, _ := newTestRunner(m, &stubScraper{})

	if _, err := r.RunUnits(ctx, Options{}); err != nil {
		t.Fatal(err)
	}

	statuses, _ := m.GetScrapeStatuses(ctx, []string{b.ID})
	s := statuses[b.ID]
	if s.UnitsSuccess {
		t.Error("status should record the failure")
	}
	if s.UnitsScrapedAt == nil {
		t.Error("a failed attempt still stamps the track")
	}
	if s.UnitsError == "" {
		t.Error("error message should be recorded")
	}
}

func TestRunBuildingRespectsKillSwitch(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_, b := seedCityBuilding(m, "Disabled Tower", "https://disabled.example.com")
	if err := m.SetScrapeEnabled(ctx, []string{b.ID}, false); err != nil {
		t.Fatal(err)
	}
	r, _ := newTestRunner(m, &stubScraper{})

	if _, err := r.RunBuilding(ctx, b.ID, store.ScrapeFull, false); err == nil {
		t.Fatal("expected an error for a disabled building")
	}

	sc := &stubScraper{results: map[string]scraper.Result{
		"https://disabled.example.com": unitsResult(extractor.ScrapedUnit{UnitNumber: "1A", Beds: 0, Baths: 1, Rent: 2100}),
	}}
	r, _ = newTestRunner(m, sc)
	summary, err := r.RunBuilding(ctx, b.ID, store.ScrapeFull, true)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 1 {
		t.Errorf("force should bypass the switch, got %+v", summary)
	}
}
