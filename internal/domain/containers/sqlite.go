package containers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/Spok95/costing-engine/internal/apperr"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is an embedded single-file Store for one-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS containers (
	id TEXT PRIMARY KEY,
	calculated_tare_weight REAL,
	refined_tare_weight REAL,
	current_gross_weight REAL NOT NULL DEFAULT 0,
	current_net_weight REAL NOT NULL DEFAULT 0,
	weight_unit TEXT NOT NULL DEFAULT 'g',
	status TEXT NOT NULL DEFAULT 'active',
	version INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS weight_measurements (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	container_id TEXT NOT NULL REFERENCES containers(id),
	gross_weight REAL NOT NULL,
	tare_weight_used REAL NOT NULL,
	net_weight REAL NOT NULL CHECK (net_weight >= 0),
	measurement_type TEXT NOT NULL,
	measured_by TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	measured_at TEXT NOT NULL
);
CREATE TRIGGER IF NOT EXISTS weight_measurements_no_update
BEFORE UPDATE ON weight_measurements
BEGIN SELECT RAISE(ABORT, 'weight_measurements is append-only'); END;
CREATE TRIGGER IF NOT EXISTS weight_measurements_no_delete
BEFORE DELETE ON weight_measurements
BEGIN SELECT RAISE(ABORT, 'weight_measurements is append-only'); END;
`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "ledger.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps the version check and the insert atomic
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Put inserts or replaces a container as-is, bypassing version checks.
func (s *SQLiteStore) Put(ctx context.Context, c Container) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO containers (id, calculated_tare_weight, refined_tare_weight, current_gross_weight,
			current_net_weight, weight_unit, status, version, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			calculated_tare_weight = excluded.calculated_tare_weight,
			refined_tare_weight = excluded.refined_tare_weight,
			current_gross_weight = excluded.current_gross_weight,
			current_net_weight = excluded.current_net_weight,
			weight_unit = excluded.weight_unit,
			status = excluded.status,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, c.ID, nullFloat(c.CalculatedTare), nullFloat(c.RefinedTare), c.CurrentGross, c.CurrentNet,
		c.WeightUnit, string(c.Status), c.Version, formatTime(c.UpdatedAt))
	return err
}

func (s *SQLiteStore) GetContainer(ctx context.Context, id string) (Container, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, calculated_tare_weight, refined_tare_weight, current_gross_weight,
		       current_net_weight, weight_unit, status, version, updated_at
		FROM containers WHERE id = ?
	`, id)
	var (
		c           Container
		calc, ref   sql.NullFloat64
		status, upd string
	)
	if err := row.Scan(&c.ID, &calc, &ref, &c.CurrentGross, &c.CurrentNet, &c.WeightUnit, &status, &c.Version, &upd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Container{}, apperr.NotFound(apperr.EntityContainer, id)
		}
		return Container{}, err
	}
	c.CalculatedTare = floatPtr(calc)
	c.RefinedTare = floatPtr(ref)
	c.Status = Status(status)
	t, err := parseTime(upd)
	if err != nil {
		return Container{}, fmt.Errorf("container %s updated_at: %w", id, err)
	}
	c.UpdatedAt = t
	return c, nil
}

func (s *SQLiteStore) SaveCapture(ctx context.Context, c Container, m WeightMeasurement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.update(ctx, tx, c); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO weight_measurements
			(id, container_id, gross_weight, tare_weight_used, net_weight, measurement_type, measured_by, notes, measured_at)
		VALUES (?,?,?,?,?,?,?,?,?)
	`, m.ID, m.ContainerID, m.Gross, m.TareUsed, m.Net, string(m.Type), m.MeasuredBy, m.Notes, formatTime(m.Timestamp)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateContainer(ctx context.Context, c Container) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.update(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) update(ctx context.Context, tx *sql.Tx, c Container) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE containers
		SET refined_tare_weight = ?, current_gross_weight = ?, current_net_weight = ?,
		    status = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`, nullFloat(c.RefinedTare), c.CurrentGross, c.CurrentNet, string(c.Status), c.Version,
		formatTime(c.UpdatedAt), c.ID, c.Version-1)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM containers WHERE id = ?`, c.ID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return apperr.NotFound(apperr.EntityContainer, c.ID)
	}
	return ErrVersionConflict
}

func (s *SQLiteStore) ListMeasurements(ctx context.Context, containerID string) ([]WeightMeasurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, container_id, gross_weight, tare_weight_used, net_weight, measurement_type, measured_by, notes, measured_at
		FROM weight_measurements
		WHERE container_id = ?
		ORDER BY seq
	`, containerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []WeightMeasurement
	for rows.Next() {
		var (
			m       WeightMeasurement
			typ, at string
		)
		if err := rows.Scan(&m.ID, &m.ContainerID, &m.Gross, &m.TareUsed, &m.Net, &typ, &m.MeasuredBy, &m.Notes, &at); err != nil {
			return nil, err
		}
		m.Type = MeasurementType(typ)
		if m.Timestamp, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("measurement %s measured_at: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
