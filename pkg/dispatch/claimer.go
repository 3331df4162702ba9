package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

// Claimer grants a worker exclusive ownership of a notification for the
// duration of a delivery attempt. Claim must be atomic: when several workers
// race for the same notification exactly one wins, the rest receive
// notification.ErrClaimConflict.
type Claimer interface {
	// Claim acquires an exclusive lease on the notification and returns its
	// current state. Returns notification.ErrClaimConflict when the
	// notification is already claimed or no longer eligible for delivery.
	Claim(ctx context.Context, id, workerID string, lease time.Duration) (*notification.Notification, error)

	// Release drops the lease. Only the lease holder may release; releasing
	// an expired or foreign lease is a no-op error.
	Release(ctx context.Context, id, workerID string) error
}

// StorageClaimer claims through the storage backend's own conditional update.
// This is the default: it needs no extra infrastructure and the lease lives
// on the notification record itself.
type StorageClaimer struct {
	store notification.Storage
}

// NewStorageClaimer creates a claimer backed by the notification storage.
func NewStorageClaimer(store notification.Storage) *StorageClaimer {
	return &StorageClaimer{store: store}
}

func (c *StorageClaimer) Claim(ctx context.Context, id, workerID string, lease time.Duration) (*notification.Notification, error) {
	return c.store.Claim(ctx, id, workerID, lease)
}

func (c *StorageClaimer) Release(ctx context.Context, id, workerID string) error {
	return c.store.Release(ctx, id, workerID)
}

// releaseScript deletes the lease key only when the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimer holds the delivery lease in Redis instead of on the record.
// Use it when several processes share one storage backend and you want claim
// contention resolved without write pressure on the primary store. The lease
// expires automatically via key TTL, so a crashed worker never wedges a
// notification.
type RedisClaimer struct {
	rdb       *redis.Client
	store     notification.Storage
	keyPrefix string
}

// NewRedisClaimer creates a Redis-leased claimer. The storage is still used
// to load the claimed record and to verify it is eligible for delivery.
func NewRedisClaimer(rdb *redis.Client, store notification.Storage, keyPrefix string) *RedisClaimer {
	if keyPrefix == "" {
		keyPrefix = "notification:claim:"
	}
	return &RedisClaimer{rdb: rdb, store: store, keyPrefix: keyPrefix}
}

func (c *RedisClaimer) key(id string) string {
	return c.keyPrefix + id
}

func (c *RedisClaimer) Claim(ctx context.Context, id, workerID string, lease time.Duration) (*notification.Notification, error) {
	ok, err := c.rdb.SetNX(ctx, c.key(id), workerID, lease).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire redis lease: %w", err)
	}
	if !ok {
		return nil, notification.ErrClaimConflict
	}

	n, err := c.store.Get(ctx, id)
	if err != nil {
		_ = c.Release(ctx, id, workerID)
		return nil, err
	}

	// The record may have been delivered or archived between the due query
	// and the lease grab.
	if n.Status != notification.StatusPending || n.Archived {
		_ = c.Release(ctx, id, workerID)
		return nil, notification.ErrClaimConflict
	}

	return n, nil
}

func (c *RedisClaimer) Release(ctx context.Context, id, workerID string) error {
	deleted, err := releaseScript.Run(ctx, c.rdb, []string{c.key(id)}, workerID).Int()
	if err != nil {
		return fmt.Errorf("failed to release redis lease: %w", err)
	}
	if deleted == 0 {
		return notification.ErrNotClaimed
	}
	return nil
}
