package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/crm-backoffice/internal/domain"
)

// envelope is the JSON shape every endpoint responds with.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// listMeta carries paging context for list responses.
type listMeta struct {
	Total int `json:"total"`
	Count int `json:"count"`
}

// listPayload wraps list data with its meta block.
type listPayload struct {
	Data interface{} `json:"data"`
	Meta listMeta    `json:"meta"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, envelope{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, data interface{}, total, count int) {
	respondData(w, http.StatusOK, listPayload{
		Data: data,
		Meta: listMeta{Total: total, Count: count},
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{Success: false, Error: message})
}

// respondServiceError maps domain error sentinels to HTTP statuses and
// falls back to the given status for anything unrecognized. Server-side
// failures respond with a fixed message; the cause is already in the
// operation log and must not leak into the envelope.
func respondServiceError(w http.ResponseWriter, err error, fallback int) {
	var agg *domain.AggregationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrIllegalTransition):
		respondError(w, http.StatusConflict, err.Error())
	case domain.IsInvariantViolation(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &agg):
		respondError(w, http.StatusInternalServerError, "internal error")
	case fallback >= http.StatusInternalServerError:
		respondError(w, fallback, "internal error")
	default:
		respondError(w, fallback, err.Error())
	}
}
