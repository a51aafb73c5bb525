package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis. Locks here are an
// advisory fast path; the authoritative serialization always comes from
// the storage layer's transactions.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquirePaymentLock attempts to acquire the payment-event lock for a
// gateway reference, so concurrent deliveries about the same payment
// are processed one at a time.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquirePaymentLock(ctx context.Context, gatewayRef string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:payment:%s", gatewayRef)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleasePaymentLock releases the payment-event lock for a gateway
// reference.
func (s *LockStore) ReleasePaymentLock(ctx context.Context, gatewayRef string) error {
	key := fmt.Sprintf("lock:payment:%s", gatewayRef)

	return s.client.Del(ctx, key).Err()
}
