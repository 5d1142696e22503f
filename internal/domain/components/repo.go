package components

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/costing-engine/internal/domain/costing"
	"github.com/Spok95/costing-engine/internal/domain/units"
)

// Repo reads the component master from Postgres.
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const selectComponent = `
	SELECT id, name, base_unit, cost_per_base_unit, density
	FROM components
`

type scanner interface {
	Scan(dest ...any) error
}

func scanComponent(row scanner) (costing.ComponentMaster, error) {
	var (
		c    costing.ComponentMaster
		base string
	)
	if err := row.Scan(&c.ID, &c.Name, &base, &c.CostPerBaseUnit, &c.Density); err != nil {
		return costing.ComponentMaster{}, err
	}
	c.BaseUnit = units.Kind(base)
	return c, nil
}

// GetMany loads the given components. Missing IDs are simply absent from the
// result; the roll-up reports them as not found.
func (r *Repo) GetMany(ctx context.Context, ids []string) (costing.Components, error) {
	out := make(costing.Components, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, selectComponent+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}
