// Package views derives the driver- and rider-facing ride collections from
// the ride store. The builder is stateless; any caching of "current view"
// belongs to the presentation layer.
package views

import (
	"context"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

type Builder struct {
	store storage.RideStore
}

func NewBuilder(store storage.RideStore) *Builder {
	return &Builder{store: store}
}

// OpenRequestsForDriver lists rides still waiting for a driver. A ride whose
// rider identity equals the asking driver's own identity is excluded, so a
// driver who also rides never sees (or accepts) their own request.
func (b *Builder) OpenRequestsForDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	return b.store.Filter(ctx, storage.RideQuery{
		Status:     models.StatusRequested,
		NotRiderID: driverID,
	})
}

// HistoryForDriver lists every ride the driver has touched, newest activity first.
func (b *Builder) HistoryForDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	return b.store.Filter(ctx, storage.RideQuery{
		DriverID: driverID,
		StatusIn: []models.RideStatus{
			models.StatusAccepted, models.StatusInProgress,
			models.StatusCompleted, models.StatusCancelled,
		},
		OrderBy: storage.OrderUpdatedDesc,
	})
}

// RidesForRider lists the rider's own rides, newest first.
func (b *Builder) RidesForRider(ctx context.Context, riderID string) ([]*models.Ride, error) {
	return b.store.Filter(ctx, storage.RideQuery{
		RiderID: riderID,
		OrderBy: storage.OrderCreatedDesc,
	})
}

// TotalEarnings folds the completed fares in a ride set. Cancelled and
// still-open rides contribute nothing.
func TotalEarnings(rides []*models.Ride) int64 {
	var sum int64
	for _, r := range rides {
		if r.Status == models.StatusCompleted {
			sum += r.Fare
		}
	}
	return sum
}
