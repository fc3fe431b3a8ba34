// Package cache memoises distance queries in Redis. Keys carry the model
// version, so a weight update makes older entries unreachable; they are
// then flushed or left to expire. Redis calls go through a circuit breaker
// and a per-call timeout, so an unhealthy Redis degrades to cache misses.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/resilience"
	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix        = "distance:"
	defaultOpTimeout = 250 * time.Millisecond
)

type DistanceCache struct {
	client    *pkgredis.Client
	ttl       time.Duration
	opTimeout time.Duration
	breaker   *resilience.CircuitBreaker
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

type Option func(*DistanceCache)

func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *DistanceCache) { c.breaker = cb }
}

// WithOpTimeout bounds each Redis call; non-positive disables the bound.
func WithOpTimeout(d time.Duration) Option {
	return func(c *DistanceCache) { c.opTimeout = d }
}

type entry struct {
	Distance float64 `json:"distance"`
}

func New(client *pkgredis.Client, ttl time.Duration, opts ...Option) *DistanceCache {
	c := &DistanceCache{
		client:    client,
		ttl:       ttl,
		opTimeout: defaultOpTimeout,
		logger:    slog.Default().With("component", "distance-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
		})
	}
	return c
}

func (c *DistanceCache) Get(ctx context.Context, version uint64, a, b []string) (float64, bool) {
	key := Key(version, a, b)
	var data []byte
	err := c.guard(ctx, "cache-get", func(ctx context.Context) error {
		got, err := c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		data = got
		return err
	})
	if err != nil || data == nil {
		if err != nil {
			c.logFailure("cache get failed", key, err)
		}
		c.misses.Add(1)
		return 0, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return 0, false
	}
	c.hits.Add(1)
	return e.Distance, true
}

func (c *DistanceCache) Set(ctx context.Context, version uint64, a, b []string, d float64) {
	key := Key(version, a, b)
	data, err := encode(d)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.guard(ctx, "cache-set", func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logFailure("cache set failed", key, err)
	}
}

// GetOrCompute returns the cached distance or computes and stores it.
// Concurrent misses on the same key share one computation.
func (c *DistanceCache) GetOrCompute(
	ctx context.Context,
	version uint64,
	a, b []string,
	computeFn func() (float64, error),
) (float64, bool, error) {
	if d, ok := c.Get(ctx, version, a, b); ok {
		return d, true, nil
	}
	val, err, _ := c.group.Do(Key(version, a, b), func() (any, error) {
		d, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, version, a, b, d)
		return d, nil
	})
	if err != nil {
		return 0, false, err
	}
	return val.(float64), false, nil
}

// Invalidate removes the entries of every model version.
func (c *DistanceCache) Invalidate(ctx context.Context) (int64, error) {
	return c.flush(ctx, keyPrefix+"*")
}

// InvalidateVersion removes the entries computed with one model version.
func (c *DistanceCache) InvalidateVersion(ctx context.Context, version uint64) (int64, error) {
	return c.flush(ctx, fmt.Sprintf("%sv%d:*", keyPrefix, version))
}

func (c *DistanceCache) flush(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := c.guard(ctx, "cache-flush", func(ctx context.Context) error {
		n, err := c.client.FlushByPattern(ctx, pattern)
		deleted = n
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "pattern", pattern, "keys_deleted", deleted)
	return deleted, nil
}

func (c *DistanceCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *DistanceCache) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *DistanceCache) guard(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.opTimeout, op, fn)
	})
}

func (c *DistanceCache) logFailure(msg, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Error(msg, "key", key, "error", err)
}

// Key is the cache key of the distance between a and b under a model
// version. Sides are sets and distance is symmetric, so order and
// duplicates within a side, and the order of the sides, do not matter.
func Key(version uint64, a, b []string) string {
	sides := []string{canonicalSide(a), canonicalSide(b)}
	slices.Sort(sides)
	hash := sha256.Sum256([]byte(strings.Join(sides, "|")))
	return fmt.Sprintf("%sv%d:%x", keyPrefix, version, hash[:16])
}

func canonicalSide(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	// IDs are length-prefixed so that no ID can forge a separator.
	var sb strings.Builder
	for _, id := range sorted {
		fmt.Fprintf(&sb, "%d:%s,", len(id), id)
	}
	return sb.String()
}

func encode(d float64) ([]byte, error) {
	return json.Marshal(entry{Distance: d})
}
