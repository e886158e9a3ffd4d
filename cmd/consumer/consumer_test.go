package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/cache"
	"github.com/example/ride-hailing/internal/events"
	"github.com/example/ride-hailing/internal/models"
)

// fakeSetter implements StatusSetter for tests
type fakeSetter struct {
	fail  int // number of times to fail before succeeding
	calls int
	last  cache.StatusEntry
}

func (f *fakeSetter) Set(ctx context.Context, rideID string, e cache.StatusEntry) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("redis down")
	}
	f.last = e
	return nil
}

func TestUpdateCacheWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeSetter{fail: 1}
	ev := events.RideEvent{RideID: "r1", DriverID: "d1", Status: models.StatusAccepted, OccurredAt: time.Now()}
	start := time.Now()
	if err := updateCacheWithRetry(context.Background(), f, ev, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls < 2 {
		t.Fatalf("expected retries, got %d calls", f.calls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
	if f.last.Status != models.StatusAccepted || f.last.DriverID != "d1" {
		t.Fatalf("wrong entry written: %+v", f.last)
	}
}

func TestUpdateCacheWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeSetter{fail: 5}
	ev := events.RideEvent{RideID: "r1", Status: models.StatusCompleted, OccurredAt: time.Now()}
	if err := updateCacheWithRetry(context.Background(), f, ev, 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}
