package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/views"
)

type nopSettler struct{ calls int }

func (s *nopSettler) ChargeCard(ctx context.Context, rideID, destination string) (*models.Ride, error) {
	s.calls++
	return nil, nil
}
func (s *nopSettler) RecordCashPayment(ctx context.Context, rideID string, amount int64) (*models.Ride, error) {
	s.calls++
	return nil, nil
}

func TestCapabilitySetsAreRoleGated(t *testing.T) {
	e := newTestEngine()
	v := views.NewBuilder(e.Store)

	rider := &models.User{ID: "u1", Role: models.RoleRider}
	driver := &models.User{ID: "u2", Role: models.RoleDriver}

	if _, err := NewRiderActions(driver, e, v, &nopSettler{}); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("driver got rider actions: %v", err)
	}
	if _, err := NewDriverActions(rider, e, v); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("rider got driver actions: %v", err)
	}
	if _, err := NewRiderActions(rider, e, v, &nopSettler{}); err != nil {
		t.Fatalf("rider denied rider actions: %v", err)
	}
	if _, err := NewDriverActions(driver, e, v); err != nil {
		t.Fatalf("driver denied driver actions: %v", err)
	}
}

func TestRiderPaymentRequiresOwnership(t *testing.T) {
	e := newTestEngine()
	v := views.NewBuilder(e.Store)
	ctx := context.Background()

	ride := requestTestRide(t, e, "u1")
	if _, err := e.AcceptRide(ctx, "d1", ride.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	settler := &nopSettler{}
	stranger, err := NewRiderActions(&models.User{ID: "u2", Role: models.RoleRider}, e, v, settler)
	if err != nil {
		t.Fatalf("rider actions: %v", err)
	}
	if _, err := stranger.PayCash(ctx, ride.ID, ride.Fare); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("stranger settled a foreign ride: %v", err)
	}
	if _, err := stranger.PayByCard(ctx, ride.ID, ""); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("stranger charged a foreign ride: %v", err)
	}
	if settler.calls != 0 {
		t.Fatalf("settler reached %d times for a foreign ride", settler.calls)
	}

	owner, _ := NewRiderActions(&models.User{ID: "u1", Role: models.RoleRider}, e, v, settler)
	if _, err := owner.PayCash(ctx, ride.ID, ride.Fare); err != nil {
		t.Fatalf("owner denied settlement: %v", err)
	}
	if settler.calls != 1 {
		t.Fatalf("owner settlement reached the settler %d times", settler.calls)
	}
}

func TestDriverActionsActAsBoundIdentity(t *testing.T) {
	e := newTestEngine()
	v := views.NewBuilder(e.Store)
	ctx := context.Background()

	ride := requestTestRide(t, e, "u1")

	driver := &models.User{ID: "d1", Role: models.RoleDriver}
	acts, err := NewDriverActions(driver, e, v)
	if err != nil {
		t.Fatalf("driver actions: %v", err)
	}

	got, err := acts.Accept(ctx, ride.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.DriverID != "d1" {
		t.Fatalf("accepted as %q, want d1", got.DriverID)
	}

	history, err := acts.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != ride.ID {
		t.Fatalf("history missing accepted ride: %+v", history)
	}
}

func TestDriverEarningsCountCompletedOnly(t *testing.T) {
	e := newTestEngine()
	v := views.NewBuilder(e.Store)
	ctx := context.Background()

	driver := &models.User{ID: "d1", Role: models.RoleDriver}
	acts, _ := NewDriverActions(driver, e, v)

	// one settled, one cancelled
	settled := requestTestRide(t, e, "u1")
	if _, err := acts.Accept(ctx, settled.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.SettlePayment(ctx, settled.ID, settled.Fare); err != nil {
		t.Fatalf("settle: %v", err)
	}

	dropped := requestTestRide(t, e, "u2")
	if _, err := acts.Accept(ctx, dropped.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := acts.Cancel(ctx, dropped.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, total, err := acts.Earnings(ctx)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if total != settled.Fare {
		t.Fatalf("earnings %d, want %d", total, settled.Fare)
	}
}
