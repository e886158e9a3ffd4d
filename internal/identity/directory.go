// Package identity resolves the opaque identity the auth provider hands us to
// an internal user record and role. The lifecycle core never sees external
// ids; role gating happens here, at the boundary.
package identity

import (
	"context"
	"sync"

	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
)

// Directory is the identity resolver contract.
type Directory interface {
	Resolve(ctx context.Context, externalID string) (*models.User, error)
}

// MemoryDirectory is a map-backed directory for local runs and tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]models.User)}
}

func (d *MemoryDirectory) Add(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ExternalID] = u
}

func (d *MemoryDirectory) Resolve(ctx context.Context, externalID string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[externalID]
	if !ok {
		return nil, fault.NotFound("user %s", externalID)
	}
	cp := u
	return &cp, nil
}
