package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/example/ride-hailing/internal/fare"
	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

func newTestEngine() *Engine {
	return &Engine{
		Store:  storage.NewMemoryStore(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

var (
	mumbai = models.Coord{Lat: 19.07, Lng: 72.87}
	pune   = models.Coord{Lat: 18.52, Lng: 73.85}
)

func requestTestRide(t *testing.T, e *Engine, riderID string) *models.Ride {
	t.Helper()
	r, err := e.RequestRide(context.Background(), riderID, RideInput{
		Pickup: &mumbai, Dropoff: &pune,
		PickupAddr: "Mumbai", DropoffAddr: "Pune",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return r
}

func TestRequestRideRequiresRider(t *testing.T) {
	e := newTestEngine()
	_, err := e.RequestRide(context.Background(), "", RideInput{})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestRideStoresComputedFare(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")

	if r.Status != models.StatusRequested {
		t.Fatalf("expected requested, got %s", r.Status)
	}
	if r.DriverID != "" {
		t.Fatalf("new ride must be unassigned, got driver %q", r.DriverID)
	}
	if want := fare.Estimate(&mumbai, &pune); r.Fare != want {
		t.Fatalf("fare %d, want %d", r.Fare, want)
	}
	if r.RideType != "standard" {
		t.Fatalf("expected default ride type, got %q", r.RideType)
	}
}

func TestRequestRideWithoutCoordsIsFree(t *testing.T) {
	e := newTestEngine()
	r, err := e.RequestRide(context.Background(), "rider-1", RideInput{
		PickupAddr: "somewhere", DropoffAddr: "elsewhere",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if r.Fare != 0 {
		t.Fatalf("expected fare 0 without coordinates, got %d", r.Fare)
	}
}

func TestAcceptRide(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")

	got, err := e.AcceptRide(context.Background(), "driver-1", r.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != models.StatusAccepted || got.DriverID != "driver-1" {
		t.Fatalf("unexpected ride after accept: %+v", got)
	}
}

func TestAcceptRideTwiceConflicts(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")

	if _, err := e.AcceptRide(context.Background(), "driver-1", r.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err := e.AcceptRide(context.Background(), "driver-2", r.ID)
	if !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("expected conflict for second driver, got %v", err)
	}

	got, _ := e.Ride(context.Background(), r.ID)
	if got.DriverID != "driver-1" {
		t.Fatalf("loser overwrote the assignment: %+v", got)
	}
}

func TestConcurrentAcceptExactlyOneWinner(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, driver := range []string{"driver-a", "driver-b"} {
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			_, err := e.AcceptRide(context.Background(), d, r.ID)
			results <- err
		}(driver)
	}
	wg.Wait()
	close(results)

	var oks, conflicts int
	for err := range results {
		switch {
		case err == nil:
			oks++
		case errors.Is(err, fault.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if oks != 1 || conflicts != 1 {
		t.Fatalf("want 1 winner and 1 conflict, got %d/%d", oks, conflicts)
	}

	got, _ := e.Ride(context.Background(), r.ID)
	if got.Status != models.StatusAccepted || got.DriverID == "" {
		t.Fatalf("ride not cleanly accepted: %+v", got)
	}
}

func TestCancelByRider(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")

	got, err := e.CancelRide(context.Background(), models.RoleRider, "rider-1", r.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.StatusCancelled || got.CancelledBy != models.RoleRider {
		t.Fatalf("unexpected ride after cancel: %+v", got)
	}
}

func TestCancelByAssignedDriver(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")
	if _, err := e.AcceptRide(context.Background(), "driver-1", r.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	got, err := e.CancelRide(context.Background(), models.RoleDriver, "driver-1", r.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.CancelledBy != models.RoleDriver {
		t.Fatalf("expected cancelled_by driver, got %q", got.CancelledBy)
	}
}

func TestCancelByStrangerForbidden(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")

	if _, err := e.CancelRide(context.Background(), models.RoleRider, "rider-2", r.ID); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("expected forbidden for other rider, got %v", err)
	}
	// an unassigned driver is not associated either
	if _, err := e.CancelRide(context.Background(), models.RoleDriver, "driver-1", r.ID); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("expected forbidden for unassigned driver, got %v", err)
	}
}

func TestCancelTerminalRideConflicts(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")
	if _, err := e.CancelRide(context.Background(), models.RoleRider, "rider-1", r.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := e.CancelRide(context.Background(), models.RoleRider, "rider-1", r.ID)
	if !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("expected conflict on cancelled ride, got %v", err)
	}
	got, _ := e.Ride(context.Background(), r.ID)
	if got.Status != models.StatusCancelled || got.CancelledBy != models.RoleRider {
		t.Fatalf("terminal ride mutated: %+v", got)
	}
}

func TestCancelMissingRideNotFound(t *testing.T) {
	e := newTestEngine()
	if _, err := e.CancelRide(context.Background(), models.RoleRider, "rider-1", "nope"); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettlePaymentCompletesAcceptedRide(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")
	if _, err := e.AcceptRide(context.Background(), "driver-1", r.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	got, err := e.SettlePayment(context.Background(), r.ID, r.Fare)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestSettlePaymentOnRequestedRideConflicts(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")

	_, err := e.SettlePayment(context.Background(), r.ID, r.Fare)
	if !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("expected conflict for unaccepted ride, got %v", err)
	}
}

func TestSettlePaymentOnTerminalRideConflicts(t *testing.T) {
	e := newTestEngine()
	r := requestTestRide(t, e, "rider-1")
	if _, err := e.AcceptRide(context.Background(), "driver-1", r.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.SettlePayment(context.Background(), r.ID, r.Fare); err != nil {
		t.Fatalf("settle: %v", err)
	}

	_, err := e.SettlePayment(context.Background(), r.ID, r.Fare)
	if !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("expected conflict on completed ride, got %v", err)
	}
}

// driver_id stays empty while the ride is requested and set from acceptance on.
func TestAssignmentTracksAcceptance(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	r := requestTestRide(t, e, "rider-1")

	check := func(stage string) {
		got, err := e.Ride(ctx, r.ID)
		if err != nil {
			t.Fatalf("%s: %v", stage, err)
		}
		unassigned := got.DriverID == ""
		requested := got.Status == models.StatusRequested
		if unassigned != requested {
			t.Fatalf("%s: driver_id %q with status %s", stage, got.DriverID, got.Status)
		}
	}

	check("after request")
	if _, err := e.AcceptRide(ctx, "driver-1", r.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	check("after accept")
	if _, err := e.SettlePayment(ctx, r.ID, r.Fare); err != nil {
		t.Fatalf("settle: %v", err)
	}
	check("after settle")
}
