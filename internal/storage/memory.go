package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
)

// MemoryStore keeps rides in a mutex-guarded map. It backs local runs and
// tests; the mutex gives UpdateWithPrecondition the same first-writer-wins
// semantics the Postgres store gets from a conditional UPDATE.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*models.Ride
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*models.Ride), now: time.Now}
}

func (m *MemoryStore) Insert(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; ok {
		return fault.Conflict("ride %s already exists", r.ID)
	}
	m.rides[r.ID] = r.Clone()
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, fault.NotFound("ride %s", id)
	}
	return r.Clone(), nil
}

func (m *MemoryStore) Filter(ctx context.Context, q RideQuery) ([]*models.Ride, error) {
	m.mu.RLock()
	out := make([]*models.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if len(q.StatusIn) > 0 && !statusMatches(r.Status, q.StatusIn) {
			continue
		}
		if q.RiderID != "" && r.RiderID != q.RiderID {
			continue
		}
		if q.NotRiderID != "" && r.RiderID == q.NotRiderID {
			continue
		}
		if q.DriverID != "" && r.DriverID != q.DriverID {
			continue
		}
		out = append(out, r.Clone())
	}
	m.mu.RUnlock()

	switch q.OrderBy {
	case OrderCreatedDesc:
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	case OrderUpdatedDesc:
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	}
	return out, nil
}

func (m *MemoryStore) UpdateWithPrecondition(ctx context.Context, id string, pre Precondition, patch RidePatch) (*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rides[id]
	if !ok {
		return nil, fault.NotFound("ride %s", id)
	}
	if len(pre.StatusIn) > 0 && !statusMatches(r.Status, pre.StatusIn) {
		return nil, fault.Conflict("ride %s is %s", id, r.Status)
	}
	if pre.NoDriver && r.DriverID != "" {
		return nil, fault.Conflict("ride %s already has a driver", id)
	}

	if patch.Status != "" {
		r.Status = patch.Status
	}
	if patch.DriverID != nil {
		r.DriverID = *patch.DriverID
	}
	if patch.CancelledBy != nil {
		r.CancelledBy = *patch.CancelledBy
	}
	r.UpdatedAt = m.now()
	return r.Clone(), nil
}
