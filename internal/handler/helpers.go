package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calebwray/tandem/internal/apperr"
)

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the operational error taxonomy onto HTTP statuses.
// Anything unrecognized is an internal failure: logged, not leaked.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)

	var status int
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindRateLimit:
		status = http.StatusTooManyRequests
	case apperr.KindCooldown:
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", "604800") // 7 days, in seconds
	default:
		logger.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}
