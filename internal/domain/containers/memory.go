package containers

import (
	"context"
	"sync"

	"github.com/Spok95/costing-engine/internal/apperr"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps containers in process memory. Used by tests and the
// "memory" ledger driver.
type MemoryStore struct {
	mu           sync.RWMutex
	containers   map[string]Container
	measurements map[string][]WeightMeasurement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		containers:   make(map[string]Container),
		measurements: make(map[string][]WeightMeasurement),
	}
}

// Put inserts or replaces a container as-is, bypassing version checks.
func (s *MemoryStore) Put(c Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[c.ID] = cloneContainer(c)
}

func (s *MemoryStore) GetContainer(_ context.Context, id string) (Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	if !ok {
		return Container{}, apperr.NotFound(apperr.EntityContainer, id)
	}
	return cloneContainer(c), nil
}

func (s *MemoryStore) SaveCapture(_ context.Context, c Container, m WeightMeasurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(c); err != nil {
		return err
	}
	s.containers[c.ID] = cloneContainer(c)
	s.measurements[c.ID] = append(s.measurements[c.ID], m)
	return nil
}

func (s *MemoryStore) UpdateContainer(_ context.Context, c Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(c); err != nil {
		return err
	}
	s.containers[c.ID] = cloneContainer(c)
	return nil
}

func (s *MemoryStore) ListMeasurements(_ context.Context, containerID string) ([]WeightMeasurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WeightMeasurement, len(s.measurements[containerID]))
	copy(out, s.measurements[containerID])
	return out, nil
}

func (s *MemoryStore) checkVersion(c Container) error {
	cur, ok := s.containers[c.ID]
	if !ok {
		return apperr.NotFound(apperr.EntityContainer, c.ID)
	}
	if cur.Version != c.Version-1 {
		return ErrVersionConflict
	}
	return nil
}

func cloneContainer(c Container) Container {
	if c.CalculatedTare != nil {
		v := *c.CalculatedTare
		c.CalculatedTare = &v
	}
	if c.RefinedTare != nil {
		v := *c.RefinedTare
		c.RefinedTare = &v
	}
	return c
}
