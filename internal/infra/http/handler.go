package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Spok95/costing-engine/internal/domain/containers"
	"github.com/Spok95/costing-engine/internal/domain/costing"
	"github.com/Spok95/costing-engine/internal/domain/pricing"
	"github.com/Spok95/costing-engine/internal/report"
	"github.com/Spok95/costing-engine/internal/service"
)

const maxBodyBytes = 1 << 20

// Handler serves the costing and container endpoints.
type Handler struct {
	costing *service.Costing
	pricing *pricing.Analyzer
	ledger  *containers.Ledger
	log     *slog.Logger
}

func NewHandler(costing *service.Costing, analyzer *pricing.Analyzer, ledger *containers.Ledger, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{costing: costing, pricing: analyzer, ledger: ledger, log: log}
}

func (h *Handler) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/rollups", h.rollUp)
	mux.HandleFunc("POST /v1/rollups/batch", h.rollUpBatch)
	mux.HandleFunc("POST /v1/pricing", h.analyze)
	mux.HandleFunc("POST /v1/containers/{id}/weights", h.captureWeight)
	mux.HandleFunc("PUT /v1/containers/{id}/status", h.setStatus)
	mux.HandleFunc("PUT /v1/containers/{id}/tare", h.refineTare)
	mux.HandleFunc("GET /v1/containers/{id}/measurements", h.measurements)
}

func (h *Handler) places() int32 { return h.costing.Engine().Options().CurrencyPlaces }

func (h *Handler) rollUp(w http.ResponseWriter, r *http.Request) {
	var req rollupRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	var (
		b   costing.CostBreakdown
		err error
	)
	if req.Formula != nil {
		b, err = h.costing.RollUpFormula(req.Formula.toDomain(), componentsToDomain(req.Components), req.input())
	} else {
		b, err = h.costing.RollUp(r.Context(), req.FormulaID, req.input())
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		var buf bytes.Buffer
		if err := report.WriteBreakdown(&buf, b); err != nil {
			writeError(w, h.log, fmt.Errorf("render xlsx: %w", err))
			return
		}
		name := fmt.Sprintf("rollup_%s_v%d.xlsx", b.FormulaID, b.FormulaVersion)
		writeFile(w, name, buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, newBreakdownDTO(b, h.places()))
}

func (h *Handler) rollUpBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRollupRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	reqs := make([]service.Request, 0, len(req.Items))
	for _, it := range req.Items {
		reqs = append(reqs, service.Request{FormulaID: it.FormulaID, Input: it.input()})
	}
	out, err := h.costing.RollUpMany(r.Context(), reqs)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	items := make([]breakdownDTO, 0, len(out))
	for _, b := range out {
		items = append(items, newBreakdownDTO(b, h.places()))
	}
	writeJSON(w, http.StatusOK, map[string][]breakdownDTO{"items": items})
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	a, err := h.pricing.Analyze(req.input())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Round(h.places()))
}

func (h *Handler) captureWeight(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	c, m, err := h.ledger.Capture(r.Context(), containers.CaptureRequest{
		ContainerID: r.PathValue("id"),
		Gross:       *req.GrossWeight,
		Type:        containers.MeasurementType(req.MeasurementType),
		Actor:       req.MeasuredBy,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, captureResponse{Container: newContainerDTO(c), Measurement: newMeasurementDTO(m)})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	c, err := h.ledger.SetStatus(r.Context(), r.PathValue("id"), containers.Status(req.Status), req.Actor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newContainerDTO(c))
}

func (h *Handler) refineTare(w http.ResponseWriter, r *http.Request) {
	var req tareRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	c, err := h.ledger.RefineTare(r.Context(), r.PathValue("id"), req.RefinedTareWeight, req.Actor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newContainerDTO(c))
}

func (h *Handler) measurements(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ms, err := h.ledger.History(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		var buf bytes.Buffer
		if err := report.WriteMeasurements(&buf, ms); err != nil {
			writeError(w, h.log, fmt.Errorf("render xlsx: %w", err))
			return
		}
		writeFile(w, fmt.Sprintf("measurements_%s.xlsx", id), buf.Bytes())
		return
	}

	out := make([]measurementDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, newMeasurementDTO(m))
	}
	writeJSON(w, http.StatusOK, map[string][]measurementDTO{"items": out})
}

// decode reads a JSON body into dst, rejecting unknown fields and trailing data.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Detail: "malformed request body: " + err.Error()})
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, apiError{Detail: "request body must contain a single JSON object"})
		return false
	}
	return true
}

func writeFile(w http.ResponseWriter, name string, body []byte) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
