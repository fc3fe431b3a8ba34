// Package service serves a learning distance model to concurrent callers.
// Reads share the model under a read lock; every weight change takes the
// write lock, so claims are still applied one at a time. Each change bumps
// the model version, which keys the distance cache, names the snapshot and
// is announced to other replicas.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/events"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/resilience"
)

// DistanceCache is satisfied by *cache.DistanceCache.
type DistanceCache interface {
	GetOrCompute(ctx context.Context, version uint64, a, b []string, computeFn func() (float64, error)) (float64, bool, error)
	InvalidateVersion(ctx context.Context, version uint64) (int64, error)
	Stats() (hits, misses int64)
}

// Store is satisfied by *store.Store.
type Store interface {
	LoadClaims(ctx context.Context) ([]claim.OracleClaim, error)
	SaveSnapshot(ctx context.Context, snap snapshot.Snapshot) error
	LatestSnapshot(ctx context.Context) (snapshot.Snapshot, error)
}

// SnapshotWriter is satisfied by *snapshot.Writer.
type SnapshotWriter interface {
	Write(s snapshot.Snapshot) (string, error)
}

// EventTracker is satisfied by *events.Collector.
type EventTracker interface {
	Track(event events.ModelUpdated)
}

type Service struct {
	mu      sync.RWMutex
	learner *learning.Learner
	version uint64

	defaults   learning.Options
	instanceID string
	cache      DistanceCache
	store      Store
	snapshots  SnapshotWriter
	events     EventTracker
	metrics    *metrics.Metrics
	retry      resilience.RetryConfig
	now        func() time.Time
	learnOpts  []learning.Option
	logger     *slog.Logger
}

type Option func(*Service)

// WithDefaults sets the options used by the retrainer and by Learn callers
// that pass no options of their own.
func WithDefaults(opts learning.Options) Option {
	return func(s *Service) { s.defaults = opts }
}

func WithInstanceID(id string) Option {
	return func(s *Service) { s.instanceID = id }
}

func WithCache(c DistanceCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithStore(st Store) Option {
	return func(s *Service) { s.store = st }
}

func WithSnapshotWriter(w SnapshotWriter) Option {
	return func(s *Service) { s.snapshots = w }
}

func WithEvents(e EventTracker) Option {
	return func(s *Service) { s.events = e }
}

// WithMetrics records queries, claim outcomes and epochs on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLearnerOptions forwards options, such as a seeded generator, to the
// underlying learner.
func WithLearnerOptions(opts ...learning.Option) Option {
	return func(s *Service) { s.learnOpts = append(s.learnOpts, opts...) }
}

func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// New wraps model. The service owns the model from now on; callers must not
// use it directly.
func New(model *distance.Model, opts ...Option) *Service {
	s := &Service{
		defaults:   learning.DefaultOptions(),
		instanceID: "local",
		now:        time.Now,
		logger:     slog.Default().With("component", "distance-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	learnOpts := s.learnOpts
	if s.metrics != nil {
		learnOpts = append(learnOpts, learning.WithObserver(metricsObserver{m: s.metrics}))
		s.metrics.ModelVersion.Set(0)
	}
	s.learner = learning.New(model, learnOpts...)
	return s
}

// Version is the number of weight changes since start or since the last
// restored snapshot's version.
func (s *Service) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// HealthCheck reports the served model. The vocabulary is fixed at start,
// so the model is up whenever the service exists.
func (s *Service) HealthCheck(context.Context) health.ComponentHealth {
	s.mu.RLock()
	details := map[string]any{
		"version":     s.version,
		"items":       s.learner.ItemCount(),
		"collections": s.learner.CollectionCount(),
	}
	s.mu.RUnlock()
	if hits, misses, enabled := s.CacheStats(); enabled {
		details["cache_hits"] = hits
		details["cache_misses"] = misses
	}
	return health.ComponentHealth{Status: health.StatusUp, Details: details}
}

// Defaults returns the learning options used when a caller supplies none.
func (s *Service) Defaults() learning.Options {
	return s.defaults
}

// Distance returns the distance between two sets of collection IDs, served
// from the cache when one is configured.
func (s *Service) Distance(ctx context.Context, a, b []string) (float64, error) {
	start := time.Now()
	compute := func() (float64, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.learner.Distance(a, b), nil
	}

	status := "bypass"
	var (
		d   float64
		err error
	)
	if s.cache != nil {
		var hit bool
		d, hit, err = s.cache.GetOrCompute(ctx, s.Version(), a, b, compute)
		if hit {
			status = "hit"
		} else {
			status = "miss"
		}
	} else {
		d, err = compute()
	}
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.DistanceQueriesTotal.WithLabelValues(status).Inc()
		s.metrics.DistanceLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
		switch status {
		case "hit":
			s.metrics.CacheHitsTotal.Inc()
		case "miss":
			s.metrics.CacheMissesTotal.Inc()
		}
	}
	return d, nil
}

// VerboseDistance returns the distance with both sides' presence vectors,
// vectorizations and norms.
func (s *Service) VerboseDistance(a, b []string) distance.Verbose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learner.VerboseDistance(a, b)
}

// Vectorize returns the non-zero item coefficients of the vectorization of
// ids.
func (s *Service) Vectorize(ids []string) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	full := s.learner.ItemMap(s.learner.Vectorize(ids))
	out := make(map[string]float64, len(full))
	for item, v := range full {
		if v != 0 {
			out[item] = v
		}
	}
	return out
}

func (s *Service) Nearest(query []string, limit int) []distance.ScoredCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learner.Nearest(query, limit)
}

func (s *Service) ItemWeights() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learner.ItemWeights()
}

func (s *Service) CollectionWeights() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learner.CollectionWeights()
}

// CacheStats reports hit and miss counts; enabled is false without a cache.
func (s *Service) CacheStats() (hits, misses int64, enabled bool) {
	if s.cache == nil {
		return 0, 0, false
	}
	hits, misses = s.cache.Stats()
	return hits, misses, true
}
