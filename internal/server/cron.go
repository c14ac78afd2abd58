package server

import (
	"net/http"
	"strconv"

	"github.com/digisapp/luxapts/internal/batch"
)

// maxReportedErrors caps the error sample in batch responses.
const maxReportedErrors = 10

func (s *Server) handleCronScrapeUnits(w http.ResponseWriter, r *http.Request) {
	opts := batchOptions(r)
	summary, err := s.runner.RunUnits(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBatchSummary(w, "unit scraping completed", summary)
}

func (s *Server) handleCronScrapeAmenities(w http.ResponseWriter, r *http.Request) {
	opts := batchOptions(r)
	summary, err := s.runner.RunAmenities(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBatchSummary(w, "amenity scraping completed", summary)
}

func batchOptions(r *http.Request) batch.Options {
	q := r.URL.Query()
	opts := batch.Options{
		CitySlug: q.Get("city"),
		Force:    q.Get("force") == "true",
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	} else {
		opts.Limit = 20
	}
	if v, err := strconv.Atoi(q.Get("days_stale")); err == nil && v > 0 {
		opts.DaysStale = v
	} else {
		opts.DaysStale = 7
	}
	return opts
}

// writeBatchSummary always answers 200; partial failure is the steady state
// and is described in the payload, not the status code.
func writeBatchSummary(w http.ResponseWriter, message string, summary *batch.Summary) {
	errs := summary.Errors
	if len(errs) > maxReportedErrors {
		errs = errs[:maxReportedErrors]
	}
	body := map[string]any{
		"message": message,
		"job_id":  summary.JobID,
		"results": map[string]int{
			"buildings_processed":   summary.Processed,
			"buildings_success":     summary.Succeeded,
			"buildings_failed":      summary.Failed,
			"total_units_found":     summary.UnitsFound,
			"total_amenities_found": summary.AmenitiesFound,
		},
		"errors": errs,
	}
	if len(summary.MoveInSpecials) > 0 {
		body["move_in_specials"] = summary.MoveInSpecials
	}
	writeJSON(w, http.StatusOK, body)
}
