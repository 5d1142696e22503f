package containers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/costing-engine/internal/apperr"
)

var _ Store = (*Repo)(nil)

// Repo is the Postgres-backed Store.
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const selectContainer = `
	SELECT id, calculated_tare_weight, refined_tare_weight, current_gross_weight,
	       current_net_weight, weight_unit, status, version, updated_at
	FROM containers
`

func (r *Repo) GetContainer(ctx context.Context, id string) (Container, error) {
	row := r.pool.QueryRow(ctx, selectContainer+` WHERE id = $1`, id)
	var c Container
	if err := row.Scan(
		&c.ID,
		&c.CalculatedTare,
		&c.RefinedTare,
		&c.CurrentGross,
		&c.CurrentNet,
		&c.WeightUnit,
		&c.Status,
		&c.Version,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Container{}, apperr.NotFound(apperr.EntityContainer, id)
		}
		return Container{}, err
	}
	return c, nil
}

// SaveCapture writes the new container state and its ledger row in one transaction.
func (r *Repo) SaveCapture(ctx context.Context, c Container, m WeightMeasurement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateContainer(ctx, tx, c); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO weight_measurements
			(id, container_id, gross_weight, tare_weight_used, net_weight, measurement_type, measured_by, notes, measured_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, m.ID, m.ContainerID, m.Gross, m.TareUsed, m.Net, string(m.Type), m.MeasuredBy, m.Notes, m.Timestamp); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repo) UpdateContainer(ctx context.Context, c Container) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateContainer(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// updateContainer is a compare-and-swap on version.
func updateContainer(ctx context.Context, tx pgx.Tx, c Container) error {
	tag, err := tx.Exec(ctx, `
		UPDATE containers
		SET refined_tare_weight = $3,
		    current_gross_weight = $4,
		    current_net_weight = $5,
		    status = $6,
		    version = $2,
		    updated_at = $7
		WHERE id = $1 AND version = $2 - 1
	`, c.ID, c.Version, c.RefinedTare, c.CurrentGross, c.CurrentNet, string(c.Status), c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM containers WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound(apperr.EntityContainer, c.ID)
	}
	return ErrVersionConflict
}

func (r *Repo) ListMeasurements(ctx context.Context, containerID string) ([]WeightMeasurement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, container_id, gross_weight, tare_weight_used, net_weight, measurement_type, measured_by, notes, measured_at
		FROM weight_measurements
		WHERE container_id = $1
		ORDER BY measured_at, seq
	`, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WeightMeasurement
	for rows.Next() {
		var m WeightMeasurement
		if err := rows.Scan(
			&m.ID, &m.ContainerID, &m.Gross, &m.TareUsed, &m.Net,
			&m.Type, &m.MeasuredBy, &m.Notes, &m.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
