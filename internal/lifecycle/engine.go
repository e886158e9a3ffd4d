// Package lifecycle enforces the ride state machine:
//
//	requested --accept(driver)--> accepted
//	requested --cancel(rider)---> cancelled
//	accepted  --cancel(either)--> cancelled
//	accepted/in_progress --settle--> completed
//
// in_progress is reached by a dispatcher outside this service; the engine
// preserves it and allows it to cancel or settle like accepted. completed and
// cancelled are terminal. Acceptance is the one contended transition and is
// settled by a single conditional update in the store, first writer wins.
package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/example/ride-hailing/internal/events"
	"github.com/example/ride-hailing/internal/fare"
	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/storage"
)

// Notifier pushes a freshly created open request to listening drivers.
type Notifier interface {
	OpenRequest(r *models.Ride)
}

// EventSink receives one event per successful transition. Publishing is
// best-effort; a sink failure never rolls back the transition.
type EventSink interface {
	Publish(ctx context.Context, ev events.RideEvent) error
}

type Engine struct {
	Store  storage.RideStore
	Notify Notifier  // optional
	Events EventSink // optional
	Logger *slog.Logger

	// test seams
	Now   func() time.Time
	NewID func() string
}

// RideInput is what a rider supplies when requesting a ride. Coordinates are
// optional; geocoding of the typed addresses can fail upstream.
type RideInput struct {
	Pickup      *models.Coord
	Dropoff     *models.Coord
	PickupAddr  string
	DropoffAddr string
	RideType    string
}

// RequestRide creates a ride in requested state with the fare fixed at
// creation time. The rider identity is the only hard requirement.
func (e *Engine) RequestRide(ctx context.Context, riderID string, in RideInput) (*models.Ride, error) {
	if riderID == "" {
		return nil, fault.Validation("rider identity required")
	}
	rideType := in.RideType
	if rideType == "" {
		rideType = "standard"
	}

	now := e.now()
	r := &models.Ride{
		ID:        e.newID(),
		RiderID:   riderID,
		Pickup:    in.PickupAddr,
		Dropoff:   in.DropoffAddr,
		RideType:  rideType,
		Fare:      fare.Estimate(in.Pickup, in.Dropoff),
		Status:    models.StatusRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Pickup != nil {
		r.PickupLat, r.PickupLng = &in.Pickup.Lat, &in.Pickup.Lng
	}
	if in.Dropoff != nil {
		r.DropoffLat, r.DropoffLng = &in.Dropoff.Lat, &in.Dropoff.Lng
	}

	if err := e.Store.Insert(ctx, r); err != nil {
		return nil, err
	}
	observability.RidesRequestedTotal.Inc()
	e.logger().Info("ride requested", "ride_id", r.ID, "rider_id", riderID, "fare", r.Fare)

	if e.Notify != nil {
		e.Notify.OpenRequest(r)
	}
	e.publish(ctx, events.RideEvent{
		RideID: r.ID, RiderID: r.RiderID, Status: r.Status, Fare: r.Fare, OccurredAt: now,
	})
	return r, nil
}

// AcceptRide assigns the driver if and only if the ride is still requested
// and unassigned. The losing racer gets a conflict, never a silent success.
func (e *Engine) AcceptRide(ctx context.Context, driverID, rideID string) (*models.Ride, error) {
	if driverID == "" {
		return nil, fault.Validation("driver identity required")
	}
	r, err := e.Store.UpdateWithPrecondition(ctx, rideID,
		storage.Precondition{StatusIn: []models.RideStatus{models.StatusRequested}, NoDriver: true},
		storage.RidePatch{Status: models.StatusAccepted, DriverID: &driverID},
	)
	if err != nil {
		if errors.Is(err, fault.ErrConflict) {
			observability.AcceptConflictsTotal.Inc()
			return nil, fault.Conflict("ride %s is no longer available", rideID)
		}
		return nil, err
	}
	observability.RidesAcceptedTotal.Inc()
	e.logger().Info("ride accepted", "ride_id", r.ID, "driver_id", driverID)

	e.publish(ctx, events.RideEvent{
		RideID: r.ID, RiderID: r.RiderID, DriverID: r.DriverID,
		Status: r.Status, Fare: r.Fare, OccurredAt: r.UpdatedAt,
	})
	return r, nil
}

// CancelRide cancels a non-terminal ride on behalf of an associated actor:
// the owning rider, or the assigned driver.
func (e *Engine) CancelRide(ctx context.Context, actorRole models.Role, actorID, rideID string) (*models.Ride, error) {
	if actorID == "" {
		return nil, fault.Validation("actor identity required")
	}
	if actorRole != models.RoleRider && actorRole != models.RoleDriver {
		return nil, fault.Validation("unknown actor role %q", actorRole)
	}

	r, err := e.Store.FindByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, fault.Conflict("ride %s is already %s", rideID, r.Status)
	}
	switch actorRole {
	case models.RoleRider:
		if r.RiderID != actorID {
			return nil, fault.Forbidden("ride %s does not belong to rider %s", rideID, actorID)
		}
	case models.RoleDriver:
		if r.DriverID != actorID {
			return nil, fault.Forbidden("ride %s is not assigned to driver %s", rideID, actorID)
		}
	}

	role := actorRole
	r, err = e.Store.UpdateWithPrecondition(ctx, rideID,
		storage.Precondition{StatusIn: []models.RideStatus{
			models.StatusRequested, models.StatusAccepted, models.StatusInProgress,
		}},
		storage.RidePatch{Status: models.StatusCancelled, CancelledBy: &role},
	)
	if err != nil {
		return nil, err
	}
	observability.RidesCancelledTotal.WithLabelValues(string(actorRole)).Inc()
	e.logger().Info("ride cancelled", "ride_id", r.ID, "cancelled_by", actorRole)

	e.publish(ctx, events.RideEvent{
		RideID: r.ID, RiderID: r.RiderID, DriverID: r.DriverID,
		Status: r.Status, CancelledBy: r.CancelledBy, Fare: r.Fare, OccurredAt: r.UpdatedAt,
	})
	return r, nil
}

// SettlePayment records a successful charge and completes the ride. Only
// accepted or in_progress rides are payable; anything else is a conflict.
func (e *Engine) SettlePayment(ctx context.Context, rideID string, amount int64) (*models.Ride, error) {
	if amount < 0 {
		return nil, fault.Validation("amount must be non-negative")
	}
	r, err := e.Store.UpdateWithPrecondition(ctx, rideID,
		storage.Precondition{StatusIn: []models.RideStatus{models.StatusAccepted, models.StatusInProgress}},
		storage.RidePatch{Status: models.StatusCompleted},
	)
	if err != nil {
		if errors.Is(err, fault.ErrConflict) {
			return nil, fault.Conflict("ride %s is not in a payable state", rideID)
		}
		return nil, err
	}
	e.logger().Info("payment settled", "ride_id", r.ID, "amount", amount)

	e.publish(ctx, events.RideEvent{
		RideID: r.ID, RiderID: r.RiderID, DriverID: r.DriverID,
		Status: r.Status, Fare: r.Fare, Amount: amount, OccurredAt: r.UpdatedAt,
	})
	return r, nil
}

// Ride fetches one ride by id.
func (e *Engine) Ride(ctx context.Context, rideID string) (*models.Ride, error) {
	return e.Store.FindByID(ctx, rideID)
}

func (e *Engine) publish(ctx context.Context, ev events.RideEvent) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Publish(ctx, ev); err != nil {
		e.logger().Warn("event publish failed", "ride_id", ev.RideID, "error", err)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
