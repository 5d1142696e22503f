package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/costing-engine/internal/apperr"
	"github.com/Spok95/costing-engine/internal/domain/containers"
	"github.com/Spok95/costing-engine/internal/domain/costing"
	"github.com/Spok95/costing-engine/internal/domain/pricing"
	"github.com/Spok95/costing-engine/internal/domain/units"
	"github.com/Spok95/costing-engine/internal/report"
	"github.com/Spok95/costing-engine/internal/service"
)

type catalog struct{}

func (catalog) Get(_ context.Context, id string) (costing.Formula, error) {
	if id != "balm" {
		return costing.Formula{}, apperr.NotFound(apperr.EntityFormula, id)
	}
	return costing.Formula{
		ID: "balm", Version: 7, Status: costing.FormulaActive,
		Lines: []costing.FormulaLine{
			{ComponentID: "base-oil", Kind: costing.LineIngredient, Quantity: 500, Unit: "g"},
			{ComponentID: "jar", Kind: costing.LinePackaging, Quantity: 1000, Unit: "each"},
		},
		Labor:       costing.Labor{Rate: 20, Hours: 2},
		OverheadPct: 0.15,
	}, nil
}

func (catalog) GetMany(_ context.Context, ids []string) (costing.Components, error) {
	all := costing.Components{
		"base-oil": {ID: "base-oil", BaseUnit: units.KindMass, CostPerBaseUnit: 0.4},
		"jar":      {ID: "jar", BaseUnit: units.KindCount, CostPerBaseUnit: 0.05},
	}
	out := costing.Components{}
	for _, id := range ids {
		if c, ok := all[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) RequestObserved(method, path string, status int, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func newTestHandler(t *testing.T) (*Handler, *containers.MemoryStore) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := containers.NewMemoryStore()
	tare := 120.0
	store.Put(containers.Container{
		ID: "jar-1", CalculatedTare: &tare, CurrentGross: 900, CurrentNet: 780,
		WeightUnit: "g", Status: containers.StatusActive, Version: 1,
	})

	svc := service.NewCosting(costing.NewEngine(costing.DefaultOptions()), catalog{}, catalog{}, log, nil)
	return NewHandler(svc, pricing.NewAnalyzer(pricing.Options{}), containers.NewLedger(store, log), log), store
}

func newTestServer(t *testing.T) (*httptest.Server, *containers.MemoryStore, *requestLog) {
	t.Helper()
	h, store := newTestHandler(t)
	reqs := &requestLog{}
	srv := httptest.NewServer(NewMux(h, false, reqs))
	t.Cleanup(srv.Close)
	return srv, store, reqs
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRollUpByFormulaID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/v1/rollups", `{"formula_id":"balm","batch_qty":1000,"waste_pct":0.05}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "348.00", body["total"])
	assert.Equal(t, "0.35", body["unit_cost"])
	assert.Equal(t, "1.40", body["target_price"])
	assert.Equal(t, "75.00", body["gross_margin_pct"])
	assert.Equal(t, true, body["complete"])
}

func TestRollUpInlineFormula(t *testing.T) {
	srv, _, _ := newTestServer(t)

	payload := `{
		"formula": {"id": "tonic", "lines": [
			{"component_id": "glycerin", "kind": "ingredient", "quantity": 500, "unit": "grams", "yield_pct": 95},
			{"component_id": "glycerin", "kind": "ingredient", "quantity": 10, "unit": "pcs"}
		]},
		"components": [{"id": "glycerin", "base_unit": "g", "cost_per_base_unit": 0.023}],
		"batch_qty": 1
	}`
	resp, body := do(t, srv, http.MethodPost, "/v1/rollups", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "12.11", body["materials"])
	assert.Equal(t, false, body["complete"])

	unresolved := body["unresolved"].([]any)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "unsupported_conversion", unresolved[0].(map[string]any)["reason"])
}

func TestRollUpXLSX(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.Client().Post(srv.URL+"/v1/rollups?format=xlsx", "application/json",
		strings.NewReader(`{"formula_id":"balm","batch_qty":1000}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentType, resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue(report.SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "balm", v)
}

func TestRollUpErrors(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"formula_id":`, http.StatusBadRequest},
		{"unknown field", `{"formula_id":"balm","batch_qty":1,"colour":"red"}`, http.StatusBadRequest},
		{"missing batch", `{"formula_id":"balm"}`, http.StatusBadRequest},
		{"both formula and id", `{"formula_id":"balm","formula":{"id":"x"},"batch_qty":1}`, http.StatusBadRequest},
		{"half labor override", `{"formula_id":"balm","batch_qty":1,"labor_rate":3}`, http.StatusBadRequest},
		{"negative batch", `{"formula_id":"balm","batch_qty":-1}`, http.StatusBadRequest},
		{"unknown formula", `{"formula_id":"nope","batch_qty":1}`, http.StatusNotFound},
		{"duplicate component", `{"formula":{"id":"x","lines":[{"component_id":"oil","quantity":1,"unit":"g"}]},"components":[{"id":"oil","base_unit":"g","cost_per_base_unit":1},{"id":"oil","base_unit":"g","cost_per_base_unit":2}],"batch_qty":1}`, http.StatusBadRequest},
		{"unknown component", `{"formula":{"id":"x","lines":[{"component_id":"ghost","quantity":1,"unit":"g"}]},"batch_qty":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodPost, "/v1/rollups", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, body)
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestRollUpBatch(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/v1/rollups/batch",
		`{"items":[{"formula_id":"balm","batch_qty":1000,"waste_pct":0.05},{"formula_id":"balm","batch_qty":500}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "348.00", items[0].(map[string]any)["total"])

	resp, _ = do(t, srv, http.MethodPost, "/v1/rollups/batch", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPricing(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/v1/pricing", `{"unit_cost":0.35,"fixed_costs":1000,"channel_fees_pct":10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "1.40", body["target_price"])
	assert.Equal(t, "75.00", body["gross_margin_pct"])

	resp, body = do(t, srv, http.MethodPost, "/v1/pricing", `{"unit_cost":1,"explicit_price":1,"fixed_costs":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "unreachable", body["break_even_units"])

	resp, _ = do(t, srv, http.MethodPost, "/v1/pricing", `{"unit_cost":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCaptureWeight(t *testing.T) {
	srv, store, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/v1/containers/jar-1/weights",
		`{"gross_weight":825,"measurement_type":"inventory_count","measured_by":"ana"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	c := body["container"].(map[string]any)
	assert.Equal(t, 705.0, c["current_net_weight"])
	assert.Equal(t, "active", c["status"])
	m := body["measurement"].(map[string]any)
	assert.Equal(t, 120.0, m["tare_weight_used"])

	resp, body = do(t, srv, http.MethodPost, "/v1/containers/jar-1/weights",
		`{"gross_weight":100,"measurement_type":"inventory_count","measured_by":"ana"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, body)
	assert.Equal(t, -20.0, body["net_weight"])

	stored, err := store.GetContainer(context.Background(), "jar-1")
	require.NoError(t, err)
	assert.Equal(t, 705.0, stored.CurrentNet)

	resp, body = do(t, srv, http.MethodPost, "/v1/containers/jar-1/weights", `{"measurement_type":"spill"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "gross_weight")
	assert.Contains(t, fields, "measurement_type")
	assert.Contains(t, fields, "measured_by")

	resp, _ = do(t, srv, http.MethodPost, "/v1/containers/ghost/weights",
		`{"gross_weight":1,"measurement_type":"refill","measured_by":"ana"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContainerStatusTareAndHistory(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPut, "/v1/containers/jar-1/tare", `{"refined_tare_weight":100,"actor":"ana"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, 800.0, body["current_net_weight"])
	assert.Equal(t, 100.0, body["tare_weight"])

	resp, _ = do(t, srv, http.MethodPost, "/v1/containers/jar-1/weights",
		`{"gross_weight":100,"measurement_type":"production_use","measured_by":"ana"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/v1/containers/jar-1/measurements", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, 0.0, items[0].(map[string]any)["net_weight"])

	resp, body = do(t, srv, http.MethodPut, "/v1/containers/jar-1/status", `{"status":"archived","actor":"ana"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "archived", body["status"])

	resp, _ = do(t, srv, http.MethodPut, "/v1/containers/jar-1/status", `{"status":"active","actor":"ana"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/v1/containers/jar-1/status", `{"status":"lost","actor":"ana"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/v1/containers/ghost/measurements", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestMetricsUsePattern(t *testing.T) {
	h, _ := newTestHandler(t)
	reqs := &requestLog{}
	mux := NewMux(h, false, reqs)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/containers/jar-1/measurements", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"GET /v1/containers/{id}/measurements", "unmatched"}, reqs.paths)
}
