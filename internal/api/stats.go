package api

import (
	"net/http"
	"time"

	"github.com/promotesh/worklog/internal/activity"
)

// handleDailyCounts returns per-day entry counts plus the current
// streak, the data behind the contribution grid.
func (s *Server) handleDailyCounts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	counts, err := s.cfg.Entries.DailyCounts(r.Context(), user.ID)
	if err != nil {
		s.log.Error("loading daily counts failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load activity stats")
		return
	}

	result := activity.Compute(counts, time.Now())
	writeJSON(w, http.StatusOK, result)
}
