package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/calebwray/attendsysbackend/database"
)

type StatsHandler struct {
	DB *sql.DB
}

// GetEnrollmentCoverage returns per-student enrollment depth and quality
func (sh *StatsHandler) GetEnrollmentCoverage(w http.ResponseWriter, r *http.Request) {
	rows, err := database.GetEnrollmentCoverage(sh.DB)
	if err != nil {
		log.Printf("Error querying enrollment coverage: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to query enrollment coverage")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetEventCounts returns matched/unmatched event counts over a window.
// The window defaults to 24 hours and is set with ?hours=N.
func (sh *StatsHandler) GetEventCounts(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour).Unix()
	counts, err := database.GetEventCounts(sh.DB, since)
	if err != nil {
		log.Printf("Error querying event counts: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to query event counts")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
