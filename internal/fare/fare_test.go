package fare

import (
	"testing"

	"github.com/example/ride-hailing/internal/models"
)

func TestHaversineZero(t *testing.T) {
	if d := HaversineKm(0, 0, 0, 0); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of longitude on the equator
	d := HaversineKm(0, 0, 0, 1)
	if d < 111.1 || d > 111.3 {
		t.Fatalf("expected ~111.2 km, got %f", d)
	}
}

func TestEstimateSamePointIsBaseFare(t *testing.T) {
	p := &models.Coord{Lat: 19.07, Lng: 72.87}
	if f := Estimate(p, p); f != BaseFare {
		t.Fatalf("expected %d, got %d", BaseFare, f)
	}
}

func TestEstimateMissingEndpoint(t *testing.T) {
	p := &models.Coord{Lat: 19.07, Lng: 72.87}
	if f := Estimate(nil, p); f != 0 {
		t.Fatalf("expected 0 for missing pickup, got %d", f)
	}
	if f := Estimate(p, nil); f != 0 {
		t.Fatalf("expected 0 for missing dropoff, got %d", f)
	}
	if f := Estimate(nil, nil); f != 0 {
		t.Fatalf("expected 0 for missing both, got %d", f)
	}
}

func TestEstimateMonotonicInDistance(t *testing.T) {
	a := &models.Coord{Lat: 0, Lng: 0}
	b := &models.Coord{Lat: 0, Lng: 1}
	c := &models.Coord{Lat: 0, Lng: 2}
	if Estimate(a, c) < Estimate(a, b) {
		t.Fatalf("fare not monotonic: a->c %d < a->b %d", Estimate(a, c), Estimate(a, b))
	}
}

func TestEstimateMumbaiPune(t *testing.T) {
	pickup := &models.Coord{Lat: 19.07, Lng: 72.87}
	dropoff := &models.Coord{Lat: 18.52, Lng: 73.85}
	f := Estimate(pickup, dropoff)
	// ~120 km great-circle: 50 + 120*20 lands near 2450
	if f < 2400 || f > 2500 {
		t.Fatalf("expected fare near 2450, got %d", f)
	}
}
