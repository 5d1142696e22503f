package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Spok95/costing-engine/internal/apperr"
	"github.com/Spok95/costing-engine/internal/domain/containers"
	"github.com/Spok95/costing-engine/internal/service"
)

// apiError is the body of every 4xx/5xx response.
type apiError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// negativeNetError adds the computed figures to a rejected capture.
type negativeNetError struct {
	Detail      string  `json:"detail"`
	ContainerID string  `json:"container_id"`
	Gross       float64 `json:"gross_weight"`
	Tare        float64 `json:"tare_weight"`
	Net         float64 `json:"net_weight"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, apiError{Detail: "validation failed", Fields: fields})
}

// writeError maps domain errors to status codes. Unknown errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		inv apperr.InvalidInputError
		neg containers.NegativeNetWeightError
	)
	switch {
	case errors.As(err, &neg):
		writeJSON(w, http.StatusUnprocessableEntity, negativeNetError{
			Detail:      neg.Error(),
			ContainerID: neg.ContainerID,
			Gross:       neg.Gross,
			Tare:        neg.Tare,
			Net:         neg.Net,
		})
	case errors.As(err, &inv):
		writeValidation(w, map[string]string{inv.Field: inv.Reason})
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, apiError{Detail: err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Detail: err.Error()})
	case errors.Is(err, containers.ErrVersionConflict), errors.Is(err, containers.ErrArchived):
		writeJSON(w, http.StatusConflict, apiError{Detail: err.Error()})
	case errors.Is(err, service.ErrCatalogUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, apiError{Detail: err.Error()})
	default:
		log.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Detail: "internal error"})
	}
}
