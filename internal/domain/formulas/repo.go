package formulas

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/costing-engine/internal/apperr"
	"github.com/Spok95/costing-engine/internal/domain/costing"
)

// Repo stores formulas and their ordered lines.
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Get loads a formula with its lines in position order.
func (r *Repo) Get(ctx context.Context, id string) (costing.Formula, error) {
	var (
		f      costing.Formula
		status string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, version, status, labor_rate, labor_hours, overhead_pct
		FROM formulas
		WHERE id = $1
	`, id).Scan(&f.ID, &f.Version, &status, &f.Labor.Rate, &f.Labor.Hours, &f.OverheadPct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return costing.Formula{}, apperr.NotFound(apperr.EntityFormula, id)
		}
		return costing.Formula{}, err
	}
	f.Status = costing.FormulaStatus(status)

	rows, err := r.pool.Query(ctx, `
		SELECT component_id, kind, quantity, unit, COALESCE(yield_pct, 0), COALESCE(waste_allowance_pct, 0)
		FROM formula_lines
		WHERE formula_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return costing.Formula{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l    costing.FormulaLine
			kind string
		)
		if err := rows.Scan(&l.ComponentID, &kind, &l.Quantity, &l.Unit, &l.YieldPct, &l.WasteAllowancePct); err != nil {
			return costing.Formula{}, err
		}
		l.Kind = costing.LineKind(kind)
		f.Lines = append(f.Lines, l)
	}
	return f, rows.Err()
}
