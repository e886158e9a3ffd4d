package storage

import (
	"context"

	"github.com/example/ride-hailing/internal/models"
)

// Order controls result ordering for Filter.
type Order int

const (
	OrderNone Order = iota
	OrderCreatedDesc
	OrderUpdatedDesc
)

// RideQuery is a declarative filter the store translates into its own query
// language. Zero-value fields are ignored.
type RideQuery struct {
	Status     models.RideStatus
	StatusIn   []models.RideStatus
	RiderID    string
	NotRiderID string
	DriverID   string
	OrderBy    Order
}

// Precondition guards a conditional update. The update applies only while the
// ride's status is one of StatusIn (and, with NoDriver, while no driver is
// assigned); otherwise the store reports a conflict.
type Precondition struct {
	StatusIn []models.RideStatus
	NoDriver bool
}

// RidePatch is the set of fields a conditional update may change. Nil pointer
// fields are left untouched. UpdatedAt is always refreshed by the store.
type RidePatch struct {
	Status      models.RideStatus
	DriverID    *string
	CancelledBy *models.Role
}

// RideStore is the narrow persistence contract the lifecycle engine and the
// view builder run against. UpdateWithPrecondition must be atomic: two racing
// callers with the same precondition produce exactly one winner, and the loser
// gets fault.ErrConflict rather than a silent overwrite.
type RideStore interface {
	Insert(ctx context.Context, r *models.Ride) error
	FindByID(ctx context.Context, id string) (*models.Ride, error)
	Filter(ctx context.Context, q RideQuery) ([]*models.Ride, error)
	UpdateWithPrecondition(ctx context.Context, id string, pre Precondition, patch RidePatch) (*models.Ride, error)
}

func statusMatches(s models.RideStatus, in []models.RideStatus) bool {
	for _, want := range in {
		if s == want {
			return true
		}
	}
	return false
}
