package containers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/costing-engine/internal/apperr"
)

// Store persists containers and their measurement ledger. SaveCapture and
// UpdateContainer must reject the write with ErrVersionConflict when the stored
// version is not c.Version-1.
type Store interface {
	GetContainer(ctx context.Context, id string) (Container, error)
	SaveCapture(ctx context.Context, c Container, m WeightMeasurement) error
	UpdateContainer(ctx context.Context, c Container) error
	ListMeasurements(ctx context.Context, containerID string) ([]WeightMeasurement, error)
}

// Metrics receives capture outcomes. The zero Ledger uses a no-op.
type Metrics interface {
	CaptureObserved(outcome string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) CaptureObserved(string, time.Duration) {}

const (
	OutcomeOK       = "ok"
	OutcomeNegative = "negative_net_weight"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Ledger is the single write path for container weights and status. Writes to
// the same container are serialized; different containers proceed in parallel.
type Ledger struct {
	store   Store
	log     *slog.Logger
	metrics Metrics
	locks   *keyedMutex
	now     func() time.Time
	newID   func() string
}

type Option func(*Ledger)

func WithMetrics(m Metrics) Option { return func(l *Ledger) { l.metrics = m } }

func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func WithIDs(newID func() string) Option { return func(l *Ledger) { l.newID = newID } }

func NewLedger(store Store, log *slog.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	l := &Ledger{
		store:   store,
		log:     log,
		metrics: nopMetrics{},
		locks:   newKeyedMutex(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Capture records a gross reading and returns the updated container with its new ledger row.
func (l *Ledger) Capture(ctx context.Context, req CaptureRequest) (Container, WeightMeasurement, error) {
	started := time.Now()
	unlock := l.locks.lock(req.ContainerID)
	defer unlock()

	c, m, err := l.capture(ctx, req)
	l.metrics.CaptureObserved(outcome(err), time.Since(started))
	if err != nil {
		var neg NegativeNetWeightError
		if errors.As(err, &neg) {
			l.log.Warn("weight capture rejected",
				"container_id", neg.ContainerID, "gross", neg.Gross, "tare", neg.Tare, "net", neg.Net, "actor", req.Actor)
		}
		return Container{}, WeightMeasurement{}, err
	}

	l.log.Info("weight captured",
		"container_id", c.ID, "measurement_id", m.ID, "type", m.Type,
		"gross", m.Gross, "tare", m.TareUsed, "net", m.Net, "status", c.Status)
	return c, m, nil
}

func (l *Ledger) capture(ctx context.Context, req CaptureRequest) (Container, WeightMeasurement, error) {
	cur, err := l.store.GetContainer(ctx, req.ContainerID)
	if err != nil {
		return Container{}, WeightMeasurement{}, err
	}
	next, m, err := CaptureWeight(cur, req, l.newID(), l.now())
	if err != nil {
		return Container{}, WeightMeasurement{}, err
	}
	if err := l.store.SaveCapture(ctx, next, m); err != nil {
		return Container{}, WeightMeasurement{}, err
	}
	return next, m, nil
}

// SetStatus is the explicit status change used by business actions
// (move to production, backstock, quarantine, archive). Archived is terminal.
func (l *Ledger) SetStatus(ctx context.Context, id string, status Status, actor string) (Container, error) {
	if !status.Valid() {
		return Container{}, apperr.Invalid("status", "unknown status "+string(status))
	}
	if strings.TrimSpace(actor) == "" {
		return Container{}, apperr.Invalid("actor", "is required")
	}

	unlock := l.locks.lock(id)
	defer unlock()

	cur, err := l.store.GetContainer(ctx, id)
	if err != nil {
		return Container{}, err
	}
	if cur.Status == status {
		return cur, nil
	}
	if cur.Status == StatusArchived {
		return Container{}, ErrArchived
	}

	next := cur
	next.Status = status
	next.Version = cur.Version + 1
	next.UpdatedAt = l.now()
	if err := l.store.UpdateContainer(ctx, next); err != nil {
		return Container{}, err
	}
	l.log.Info("container status changed", "container_id", id, "from", cur.Status, "to", status, "actor", actor)
	return next, nil
}

// RefineTare stores an operator-confirmed tare (nil clears it). When the
// container already has a gross reading its net weight is recomputed; a
// never-weighed container just keeps the tare for its first capture. Status is
// left alone and no ledger row is appended.
func (l *Ledger) RefineTare(ctx context.Context, id string, tare *float64, actor string) (Container, error) {
	if tare != nil && (math.IsNaN(*tare) || math.IsInf(*tare, 0) || *tare < 0) {
		return Container{}, apperr.Invalid("refined_tare_weight", "must be a finite number >= 0")
	}
	if strings.TrimSpace(actor) == "" {
		return Container{}, apperr.Invalid("actor", "is required")
	}

	unlock := l.locks.lock(id)
	defer unlock()

	cur, err := l.store.GetContainer(ctx, id)
	if err != nil {
		return Container{}, err
	}
	weighed, err := l.hasReading(ctx, cur)
	if err != nil {
		return Container{}, err
	}

	next := cur
	next.RefinedTare = tare
	if weighed {
		resolved := ResolveTare(next)
		net := cur.CurrentGross - resolved
		if net < 0 {
			return Container{}, NegativeNetWeightError{ContainerID: id, Gross: cur.CurrentGross, Tare: resolved, Net: net}
		}
		next.CurrentNet = net
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = l.now()
	if err := l.store.UpdateContainer(ctx, next); err != nil {
		return Container{}, err
	}
	l.log.Info("container tare refined",
		"container_id", id, "tare", ResolveTare(next), "net", next.CurrentNet, "weighed", weighed, "actor", actor)
	return next, nil
}

// hasReading reports whether c carries a gross reading, either on the record
// itself or in its ledger.
func (l *Ledger) hasReading(ctx context.Context, c Container) (bool, error) {
	if c.CurrentGross > 0 {
		return true, nil
	}
	ms, err := l.store.ListMeasurements(ctx, c.ID)
	if err != nil {
		return false, err
	}
	return len(ms) > 0, nil
}

// History returns the container's measurements, oldest first.
func (l *Ledger) History(ctx context.Context, id string) ([]WeightMeasurement, error) {
	if _, err := l.store.GetContainer(ctx, id); err != nil {
		return nil, err
	}
	return l.store.ListMeasurements(ctx, id)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNegativeNetWeight):
		return OutcomeNegative
	case errors.Is(err, ErrVersionConflict):
		return OutcomeConflict
	case errors.Is(err, apperr.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, apperr.ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
