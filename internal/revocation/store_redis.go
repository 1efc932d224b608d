package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"sessiongate/pkg/platform/sentinel"
)

var denylistCheckDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sessiongate_denylist_check_duration_ms",
	Help:    "Latency of denylist checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	// Redis key prefix for denylisted token IDs
	denyKeyPrefix = "gate:deny:"
)

// RedisDenylist is the Redis-backed implementation for deployments where
// several gateway instances must agree on which tokens are cut off.
type RedisDenylist struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed denylist.
func NewRedis(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

// Revoke adds a token ID to the denylist with a TTL.
// Uses a plain SET with expiry so revoking twice just refreshes the window.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	key := denyKeyPrefix + tokenID
	// Store "1" as a simple marker; the key existence is what matters
	if err := d.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %v: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}

// IsRevoked checks whether a token ID is on the denylist.
// Returns false if the key doesn't exist (not revoked or already expired).
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	start := time.Now()
	defer func() {
		denylistCheckDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if tokenID == "" {
		return false, nil
	}
	key := denyKeyPrefix + tokenID
	_, err := d.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("denylist check: %v: %w", err, sentinel.ErrUnavailable)
	}
	return true, nil
}
