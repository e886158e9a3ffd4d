package dispatch

import (
	"errors"
	"testing"

	"github.com/example/ride-hailing/internal/models"
)

type fakeConn struct {
	alerts []RideAlert
	fail   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.fail {
		return errors.New("connection gone")
	}
	c.alerts = append(c.alerts, v.(RideAlert))
	return nil
}

func TestBroadcastSkipsRequestingRider(t *testing.T) {
	reg := NewWSRegistry()
	d1 := &fakeConn{}
	d2 := &fakeConn{}
	self := &fakeConn{}
	reg.attach("d1", d1)
	reg.attach("d2", d2)
	// a driver whose identity matches the rider must not be offered the ride
	reg.attach("u1", self)

	reg.OpenRequest(&models.Ride{ID: "r1", RiderID: "u1", Pickup: "A", Dropoff: "B", Fare: 120})

	if len(d1.alerts) != 1 || len(d2.alerts) != 1 {
		t.Fatalf("drivers got %d/%d alerts, want 1/1", len(d1.alerts), len(d2.alerts))
	}
	if len(self.alerts) != 0 {
		t.Fatalf("rider received their own request: %+v", self.alerts)
	}
	got := d1.alerts[0]
	if got.RideID != "r1" || got.RiderID != "u1" || got.Fare != 120 {
		t.Fatalf("wrong alert payload: %+v", got)
	}
}

func TestBroadcastSurvivesDeadSession(t *testing.T) {
	reg := NewWSRegistry()
	dead := &fakeConn{fail: true}
	live := &fakeConn{}
	reg.attach("d1", dead)
	reg.attach("d2", live)

	reg.OpenRequest(&models.Ride{ID: "r1", RiderID: "u1"})

	if len(live.alerts) != 1 {
		t.Fatalf("live session got %d alerts, want 1", len(live.alerts))
	}
}

func TestRemoveStopsDelivery(t *testing.T) {
	reg := NewWSRegistry()
	c := &fakeConn{}
	reg.attach("d1", c)
	reg.Remove("d1")

	reg.OpenRequest(&models.Ride{ID: "r1", RiderID: "u1"})

	if len(c.alerts) != 0 {
		t.Fatalf("removed session still received %d alerts", len(c.alerts))
	}
}

type countingNotifier struct{ calls int }

func (n *countingNotifier) OpenRequest(r *models.Ride) { n.calls++ }

func TestMultiFansOut(t *testing.T) {
	a := &countingNotifier{}
	b := &countingNotifier{}
	Multi{a, b}.OpenRequest(&models.Ride{ID: "r1", RiderID: "u1"})
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("fan-out reached %d/%d notifiers, want 1/1", a.calls, b.calls)
	}
}
