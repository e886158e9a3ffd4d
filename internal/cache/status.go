// Package cache keeps the latest status of each ride in Redis so polling
// dashboards can check on a ride without a store round trip. Entries are
// written by the event consumer and refreshed read-through by the API.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-hailing/internal/models"
)

const entryTTL = 24 * time.Hour

type StatusEntry struct {
	Status    models.RideStatus
	DriverID  string
	UpdatedAt time.Time
}

type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(addr, password string) *StatusCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &StatusCache{client: c}
}

func NewStatusCacheFromClient(c *redis.Client) *StatusCache {
	return &StatusCache{client: c}
}

func (c *StatusCache) Set(ctx context.Context, rideID string, e StatusEntry) error {
	key := statusKey(rideID)
	if err := c.client.HSet(ctx, key, map[string]interface{}{
		"status":     string(e.Status),
		"driver_id":  e.DriverID,
		"updated_at": e.UpdatedAt.Format(time.RFC3339),
	}).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, entryTTL).Err()
}

// Get returns the cached entry and whether one was present.
func (c *StatusCache) Get(ctx context.Context, rideID string) (StatusEntry, bool, error) {
	m, err := c.client.HGetAll(ctx, statusKey(rideID)).Result()
	if err != nil {
		return StatusEntry{}, false, err
	}
	if len(m) == 0 {
		return StatusEntry{}, false, nil
	}
	e := StatusEntry{
		Status:   models.RideStatus(m["status"]),
		DriverID: m["driver_id"],
	}
	if ts, err := time.Parse(time.RFC3339, m["updated_at"]); err == nil {
		e.UpdatedAt = ts
	}
	return e, true, nil
}

func (c *StatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *StatusCache) Close() error {
	return c.client.Close()
}

func statusKey(id string) string { return "ride:status:" + id }
