package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Spok95/costing-engine/internal/apperr"
	"github.com/Spok95/costing-engine/internal/domain/costing"
)

// ErrCatalogUnavailable is returned when a roll-up by formula ID is requested
// but no formula store is configured.
var ErrCatalogUnavailable = errors.New("service: formula catalog not configured")

type FormulaSource interface {
	Get(ctx context.Context, id string) (costing.Formula, error)
}

type ComponentSource interface {
	GetMany(ctx context.Context, ids []string) (costing.Components, error)
}

type RollupMetrics interface {
	RollupObserved(outcome string, elapsed time.Duration, unresolved int)
}

type nopRollupMetrics struct{}

func (nopRollupMetrics) RollupObserved(string, time.Duration, int) {}

// maxParallelRollups bounds RollUpMany fan-out against the database.
const maxParallelRollups = 8

type Costing struct {
	engine     *costing.Engine
	formulas   FormulaSource
	components ComponentSource
	log        *slog.Logger
	metrics    RollupMetrics
}

// NewCosting wires the engine to its catalog. formulas and components may be
// nil, in which case only inline roll-ups are available.
func NewCosting(engine *costing.Engine, formulas FormulaSource, components ComponentSource, log *slog.Logger, metrics RollupMetrics) *Costing {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = nopRollupMetrics{}
	}
	return &Costing{engine: engine, formulas: formulas, components: components, log: log, metrics: metrics}
}

func (s *Costing) Engine() *costing.Engine { return s.engine }

// RollUp loads the formula and its components and rolls them up.
func (s *Costing) RollUp(ctx context.Context, formulaID string, in costing.RollupInput) (costing.CostBreakdown, error) {
	started := time.Now()
	b, err := s.rollUp(ctx, formulaID, in)
	s.observe(b, err, started)
	return b, err
}

func (s *Costing) rollUp(ctx context.Context, formulaID string, in costing.RollupInput) (costing.CostBreakdown, error) {
	if s.formulas == nil || s.components == nil {
		return costing.CostBreakdown{}, ErrCatalogUnavailable
	}
	f, err := s.formulas.Get(ctx, formulaID)
	if err != nil {
		return costing.CostBreakdown{}, err
	}
	comps, err := s.components.GetMany(ctx, componentIDs(f))
	if err != nil {
		return costing.CostBreakdown{}, err
	}
	return s.engine.RollUp(f, comps, in)
}

// RollUpFormula rolls up a caller-supplied formula without touching the catalog.
func (s *Costing) RollUpFormula(f costing.Formula, comps costing.Components, in costing.RollupInput) (costing.CostBreakdown, error) {
	started := time.Now()
	b, err := s.engine.RollUp(f, comps, in)
	s.observe(b, err, started)
	return b, err
}

type Request struct {
	FormulaID string
	Input     costing.RollupInput
}

// RollUpMany rolls up several formulas concurrently. Results keep request order;
// the first error cancels the remaining work.
func (s *Costing) RollUpMany(ctx context.Context, reqs []Request) ([]costing.CostBreakdown, error) {
	out := make([]costing.CostBreakdown, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRollups)
	for i, r := range reqs {
		g.Go(func() error {
			b, err := s.RollUp(ctx, r.FormulaID, r.Input)
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Costing) observe(b costing.CostBreakdown, err error, started time.Time) {
	elapsed := time.Since(started)
	if err != nil {
		s.metrics.RollupObserved(outcome(err), elapsed, 0)
		if !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrInvalidInput) {
			s.log.Error("rollup failed", "err", err)
		}
		return
	}
	s.metrics.RollupObserved("ok", elapsed, len(b.Unresolved))
	for _, u := range b.Unresolved {
		s.log.Warn("formula line excluded from rollup",
			"formula_id", b.FormulaID, "line", u.Index, "component_id", u.ComponentID,
			"unit", u.Unit, "base_unit", u.BaseUnit, "reason", u.Reason)
	}
	s.log.Debug("rollup complete",
		"formula_id", b.FormulaID, "version", b.FormulaVersion, "total", b.Total.String(), "unit_cost", b.UnitCost.String())
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}

func componentIDs(f costing.Formula) []string {
	seen := make(map[string]struct{}, len(f.Lines))
	ids := make([]string, 0, len(f.Lines))
	for _, l := range f.Lines {
		if _, ok := seen[l.ComponentID]; ok {
			continue
		}
		seen[l.ComponentID] = struct{}{}
		ids = append(ids, l.ComponentID)
	}
	return ids
}
