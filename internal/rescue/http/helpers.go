package rescuehttp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roadassist/internal/models"
)

func parseAuthID(r *http.Request, header string) (int64, error) {
	val := strings.TrimSpace(r.Header.Get(header))
	if val == "" {
		return 0, fmt.Errorf("missing %s", header)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", header)
	}
	return id, nil
}

func parseLimit(r *http.Request) (int, error) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			return 0, fmt.Errorf("invalid limit")
		}
		limit = l
	}
	return limit, nil
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func nullInt64ToPtr(ni sql.NullInt64) *int64 {
	if ni.Valid {
		val := ni.Int64
		return &val
	}
	return nil
}

func nullFloat64ToPtr(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		val := nf.Float64
		return &val
	}
	return nil
}

func nullTimeToPtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

// statusForError maps the lifecycle error taxonomy onto stable HTTP codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrRequestNotFound),
		errors.Is(err, models.ErrProviderNotFound),
		errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrCapabilityMismatch),
		errors.Is(err, models.ErrFuelUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrProviderUnavailable),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrAlreadyAssigned),
		errors.Is(err, models.ErrConflictRetry),
		errors.Is(err, models.ErrActiveRequestExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
