package lifecycle

import (
	"context"

	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/views"
)

// Settler is the payment settlement capability riders invoke. Implemented by
// the payments package; card charges derive the amount from the stored fare,
// cash is recorded as-declared.
type Settler interface {
	ChargeCard(ctx context.Context, rideID, destination string) (*models.Ride, error)
	RecordCashPayment(ctx context.Context, rideID string, amount int64) (*models.Ride, error)
}

// RiderActions and DriverActions are the two disjoint capability sets over
// the same ride entity. Role gating happens once, when the set is built for a
// resolved user; after that every call acts as that identity.

type RiderActions struct {
	user  models.User
	eng   *Engine
	views *views.Builder
	pay   Settler
}

func NewRiderActions(u *models.User, eng *Engine, v *views.Builder, pay Settler) (*RiderActions, error) {
	if u.Role != models.RoleRider {
		return nil, fault.Forbidden("user %s is not a rider", u.ID)
	}
	return &RiderActions{user: *u, eng: eng, views: v, pay: pay}, nil
}

func (a *RiderActions) Request(ctx context.Context, in RideInput) (*models.Ride, error) {
	return a.eng.RequestRide(ctx, a.user.ID, in)
}

func (a *RiderActions) Cancel(ctx context.Context, rideID string) (*models.Ride, error) {
	return a.eng.CancelRide(ctx, models.RoleRider, a.user.ID, rideID)
}

func (a *RiderActions) Rides(ctx context.Context) ([]*models.Ride, error) {
	return a.views.RidesForRider(ctx, a.user.ID)
}

func (a *RiderActions) PayByCard(ctx context.Context, rideID, destination string) (*models.Ride, error) {
	if err := a.ownRide(ctx, rideID); err != nil {
		return nil, err
	}
	return a.pay.ChargeCard(ctx, rideID, destination)
}

func (a *RiderActions) PayCash(ctx context.Context, rideID string, amount int64) (*models.Ride, error) {
	if err := a.ownRide(ctx, rideID); err != nil {
		return nil, err
	}
	return a.pay.RecordCashPayment(ctx, rideID, amount)
}

// ownRide enforces the same association rule as Cancel: a rider settles only
// their own rides.
func (a *RiderActions) ownRide(ctx context.Context, rideID string) error {
	r, err := a.eng.Ride(ctx, rideID)
	if err != nil {
		return err
	}
	if r.RiderID != a.user.ID {
		return fault.Forbidden("ride %s does not belong to rider %s", rideID, a.user.ID)
	}
	return nil
}

type DriverActions struct {
	user  models.User
	eng   *Engine
	views *views.Builder
}

func NewDriverActions(u *models.User, eng *Engine, v *views.Builder) (*DriverActions, error) {
	if u.Role != models.RoleDriver {
		return nil, fault.Forbidden("user %s is not a driver", u.ID)
	}
	return &DriverActions{user: *u, eng: eng, views: v}, nil
}

func (a *DriverActions) Accept(ctx context.Context, rideID string) (*models.Ride, error) {
	return a.eng.AcceptRide(ctx, a.user.ID, rideID)
}

func (a *DriverActions) Cancel(ctx context.Context, rideID string) (*models.Ride, error) {
	return a.eng.CancelRide(ctx, models.RoleDriver, a.user.ID, rideID)
}

func (a *DriverActions) OpenRequests(ctx context.Context) ([]*models.Ride, error) {
	return a.views.OpenRequestsForDriver(ctx, a.user.ID)
}

func (a *DriverActions) History(ctx context.Context) ([]*models.Ride, error) {
	return a.views.HistoryForDriver(ctx, a.user.ID)
}

// Earnings returns the driver's history alongside the completed-fare total,
// matching what the earnings tab renders.
func (a *DriverActions) Earnings(ctx context.Context) ([]*models.Ride, int64, error) {
	history, err := a.views.HistoryForDriver(ctx, a.user.ID)
	if err != nil {
		return nil, 0, err
	}
	return history, views.TotalEarnings(history), nil
}
