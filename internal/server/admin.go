package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/digisapp/luxapts/internal/store"
)

// staleAfter is when a successful units scrape stops counting as fresh on
// the admin dashboard.
const staleAfter = 7 * 24 * time.Hour

type buildingScrapeView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WebsiteURL    string `json:"website_url,omitempty"`
	ScrapeEnabled bool   `json:"scrape_enabled"`
	ScrapeState   string `json:"scrape_state"`
	Amenities     struct {
		ScrapedAt *time.Time `json:"scraped_at"`
		Success   bool       `json:"success"`
		Error     string     `json:"error,omitempty"`
	} `json:"amenities"`
	Units struct {
		ScrapedAt *time.Time `json:"scraped_at"`
		Success   bool       `json:"success"`
		Error     string     `json:"error,omitempty"`
		Count     int        `json:"count"`
	} `json:"units"`
}

// scrapeState classifies one building for the dashboard by its units track.
func scrapeState(status store.ScrapeStatus, hasStatus bool, now time.Time) string {
	if !hasStatus || status.UnitsScrapedAt == nil {
		return "never_scraped"
	}
	if !status.UnitsSuccess {
		return "failed"
	}
	if now.Sub(*status.UnitsScrapedAt) > staleAfter {
		return "stale"
	}
	return "success"
}

func (s *Server) handleAdminScrapeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := 50
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}

	bq := store.BuildingQuery{Status: store.BuildingActive, Limit: limit}
	if citySlug := q.Get("city"); citySlug != "" {
		city, err := s.store.GetCityBySlug(ctx, citySlug)
		if err == nil {
			bq.CityID = city.ID
		}
	}

	buildings, err := s.store.ListBuildings(ctx, bq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ids := make([]string, len(buildings))
	for i, b := range buildings {
		ids[i] = b.ID
	}
	statuses, err := s.store.GetScrapeStatuses(ctx, ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	states := map[string]int{}
	totalUnits := 0
	views := make([]buildingScrapeView, 0, len(buildings))
	for _, b := range buildings {
		status, ok := statuses[b.ID]
		state := scrapeState(status, ok, now)
		states[state]++
		totalUnits += status.UnitsFound

		v := buildingScrapeView{
			ID:            b.ID,
			Name:          b.Name,
			WebsiteURL:    b.WebsiteURL,
			ScrapeEnabled: !ok || status.ScrapeEnabled,
			ScrapeState:   state,
		}
		v.Amenities.ScrapedAt = status.AmenitiesScrapedAt
		v.Amenities.Success = status.AmenitiesSuccess
		v.Amenities.Error = status.AmenitiesError
		v.Units.ScrapedAt = status.UnitsScrapedAt
		v.Units.Success = status.UnitsSuccess
		v.Units.Error = status.UnitsError
		v.Units.Count = status.UnitsFound
		views = append(views, v)
	}

	// The status query param narrows the listing, not the summary counts.
	if want := q.Get("status"); want != "" {
		filtered := views[:0]
		for _, v := range views {
			switch want {
			case "pending":
				if v.ScrapeState == "never_scraped" || v.ScrapeState == "stale" {
					filtered = append(filtered, v)
				}
			default:
				if v.ScrapeState == want {
					filtered = append(filtered, v)
				}
			}
		}
		views = filtered
	}

	jobs, err := s.store.ListRecentScrapeJobs(ctx, 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": map[string]int{
			"total":         len(buildings),
			"never_scraped": states["never_scraped"],
			"success":       states["success"],
			"stale":         states["stale"],
			"failed":        states["failed"],
			"total_units":   totalUnits,
		},
		"buildings":   views,
		"recent_jobs": jobs,
	})
}

type adminActionRequest struct {
	Action      string   `json:"action"`
	BuildingIDs []string `json:"building_ids,omitempty"`
	CitySlug    string   `json:"city_slug,omitempty"`
	Type        string   `json:"type,omitempty"`
}

func (s *Server) handleAdminScrapeAction(w http.ResponseWriter, r *http.Request) {
	var req adminActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Action {
	case "enable", "disable":
		if len(req.BuildingIDs) == 0 {
			writeError(w, http.StatusBadRequest, "building_ids required")
			return
		}
		if err := s.store.SetScrapeEnabled(r.Context(), req.BuildingIDs, req.Action == "enable"); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("scraping %sd for %d buildings", req.Action, len(req.BuildingIDs)),
		})

	case "trigger":
		scrapeType := req.Type
		if scrapeType == "" {
			scrapeType = "units"
		}
		switch {
		case len(req.BuildingIDs) == 1:
			writeJSON(w, http.StatusOK, map[string]any{
				"success":  true,
				"message":  "trigger scrape for single building",
				"endpoint": "/scrape/building/" + req.BuildingIDs[0],
				"method":   http.MethodPost,
				"body":     map[string]string{"type": scrapeType},
			})
		case req.CitySlug != "":
			endpoint := "/cron/scrape-units?city=" + req.CitySlug
			if scrapeType == "amenities" {
				endpoint = "/cron/scrape-amenities?city=" + req.CitySlug
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"success":  true,
				"message":  fmt.Sprintf("trigger %s scrape for city %s", scrapeType, req.CitySlug),
				"endpoint": endpoint,
				"method":   http.MethodGet,
			})
		default:
			writeError(w, http.StatusBadRequest, "specify building_ids or city_slug")
		}

	default:
		writeError(w, http.StatusBadRequest, "invalid action")
	}
}

type scrapeBuildingRequest struct {
	Type  string `json:"type,omitempty"`
	Force bool   `json:"force,omitempty"`
}

func (s *Server) handleScrapeBuilding(w http.ResponseWriter, r *http.Request) {
	buildingID := r.PathValue("id")

	var req scrapeBuildingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	typ := store.ScrapeType(req.Type)
	switch typ {
	case store.ScrapeUnits, store.ScrapeAmenities, store.ScrapeFull:
	case "":
		typ = store.ScrapeFull
	default:
		writeError(w, http.StatusBadRequest, "type must be units, amenities or full")
		return
	}

	summary, err := s.runner.RunBuilding(r.Context(), buildingID, typ, req.Force)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBatchSummary(w, "building scrape completed", summary)
}
