package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/events"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/snapshot"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	left  = []string{"ab"}
	right = []string{"bbb"}
)

func newModel(t *testing.T) *distance.Model {
	t.Helper()
	m, err := distance.New(
		corpus.FromStrings("aa", "ab", "bbb"),
		map[string]float64{"a": 1, "b": 2},
		map[string]float64{"aa": 1, "ab": 2, "bbb": 3},
	)
	require.NoError(t, err)
	return m
}

type fakeCache struct {
	mu          sync.Mutex
	values      map[uint64]float64
	invalidated []uint64
}

func (c *fakeCache) GetOrCompute(_ context.Context, version uint64, _, _ []string, fn func() (float64, error)) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.values[version]; ok {
		return d, true, nil
	}
	d, err := fn()
	if err != nil {
		return 0, false, err
	}
	c.values[version] = d
	return d, false, nil
}

func (c *fakeCache) InvalidateVersion(_ context.Context, version uint64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, version)
	delete(c.values, version)
	return 1, nil
}

func (c *fakeCache) Stats() (int64, int64) { return 3, 4 }

type fakeStore struct {
	claims    []claim.OracleClaim
	snapshots []snapshot.Snapshot
	saveErr   error
}

func (s *fakeStore) LoadClaims(context.Context) ([]claim.OracleClaim, error) { return s.claims, nil }

func (s *fakeStore) SaveSnapshot(_ context.Context, snap snapshot.Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *fakeStore) LatestSnapshot(context.Context) (snapshot.Snapshot, error) {
	if len(s.snapshots) == 0 {
		return snapshot.Snapshot{}, apperrors.ErrNotFound
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

type fakeWriter struct{ written []uint64 }

func (w *fakeWriter) Write(s snapshot.Snapshot) (string, error) {
	w.written = append(w.written, s.Version)
	return "mem", nil
}

type fakeEvents struct{ tracked []events.ModelUpdated }

func (e *fakeEvents) Track(ev events.ModelUpdated) { e.tracked = append(e.tracked, ev) }

func shrinkClaim(t *testing.T, svc *Service) claim.OracleClaim {
	t.Helper()
	d, err := svc.Distance(context.Background(), left, right)
	require.NoError(t, err)
	c, err := claim.New(left, right, 0, d/2)
	require.NoError(t, err)
	return c
}

func TestDistanceUsesVersionedCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cache := &fakeCache{values: map[uint64]float64{}}
	svc := New(newModel(t), WithCache(cache), WithMetrics(m))
	ctx := context.Background()

	first, err := svc.Distance(ctx, left, right)
	require.NoError(t, err)
	second, err := svc.Distance(ctx, left, right)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DistanceQueriesTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DistanceQueriesTotal.WithLabelValues("hit")))

	hits, misses, enabled := svc.CacheStats()
	assert.True(t, enabled)
	assert.Equal(t, int64(3), hits)
	assert.Equal(t, int64(4), misses)
}

func TestDistanceWithoutCache(t *testing.T) {
	svc := New(newModel(t))
	d, err := svc.Distance(context.Background(), left, []string{"aa"})
	require.NoError(t, err)
	assert.InDelta(t, svc.VerboseDistance(left, []string{"aa"}).Distance, d, 1e-15)
	_, _, enabled := svc.CacheStats()
	assert.False(t, enabled)
}

func oneEpoch() learning.Options {
	opts := learning.DefaultOptions()
	opts.Iterations = 1
	return opts
}

func TestLearnCommitsNewVersion(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cache := &fakeCache{values: map[uint64]float64{}}
	store := &fakeStore{}
	writer := &fakeWriter{}
	ev := &fakeEvents{}
	svc := New(newModel(t),
		WithCache(cache), WithStore(store), WithSnapshotWriter(writer),
		WithEvents(ev), WithMetrics(m), WithInstanceID("replica-1"),
	)
	ctx := context.Background()

	before, err := svc.Distance(ctx, left, right)
	require.NoError(t, err)

	report, err := svc.Learn(ctx, []claim.OracleClaim{shrinkClaim(t, svc)}, oneEpoch())
	require.NoError(t, err)
	require.Equal(t, 1, report.Applied())

	assert.Equal(t, uint64(1), svc.Version())
	after, err := svc.Distance(ctx, left, right)
	require.NoError(t, err)
	assert.Less(t, after, before)

	assert.Equal(t, []uint64{0}, cache.invalidated)
	assert.Equal(t, []uint64{1}, writer.written)
	require.Len(t, store.snapshots, 1)
	assert.Equal(t, uint64(1), store.snapshots[0].Version)
	require.Len(t, ev.tracked, 1)
	assert.Equal(t, events.ModelUpdated{
		Reason:     events.ReasonLearn,
		Version:    1,
		Source:     "replica-1",
		Residual:   report.FinalResidual(),
		ClaimCount: 1,
	}, ev.tracked[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsProcessedTotal.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelVersion))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsWrittenTotal.WithLabelValues("ok")))
}

func TestLearnWithoutCorrectionsKeepsVersion(t *testing.T) {
	ev := &fakeEvents{}
	svc := New(newModel(t), WithEvents(ev))
	c, err := claim.New(left, right, 0, 2)
	require.NoError(t, err)

	report, err := svc.Learn(context.Background(), []claim.OracleClaim{c}, oneEpoch())
	require.NoError(t, err)
	assert.Zero(t, report.Applied())
	assert.Equal(t, 1, report.Skipped())
	assert.Equal(t, uint64(0), svc.Version())
	assert.Empty(t, ev.tracked)
}

func TestLearnRejectsInvalidClaim(t *testing.T) {
	svc := New(newModel(t))
	bad := claim.OracleClaim{Left: left, Right: right, Interval: claim.Interval{Lo: 0.9, Hi: 0.1}}
	_, err := svc.Learn(context.Background(), []claim.OracleClaim{bad}, oneEpoch())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInterval)
	assert.Equal(t, uint64(0), svc.Version())
}

func TestLearnReportsAndPublishesOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ev := &fakeEvents{}
	svc := New(newModel(t), WithEvents(ev), WithMetrics(m),
		WithLearnerOptions(learning.WithRand(learning.NewRand(7))))

	c := shrinkClaim(t, svc)
	opts := learning.DefaultOptions()
	report, err := svc.Learn(context.Background(), []claim.OracleClaim{c}, opts)
	require.NoError(t, err)
	assert.Len(t, report.Epochs, opts.Iterations)
	assert.Equal(t, uint64(1), svc.Version())
	require.Len(t, ev.tracked, 1)
	assert.Equal(t, events.ReasonLearn, ev.tracked[0].Reason)
	assert.InDelta(t, report.FinalResidual(), ev.tracked[0].Residual, 1e-15)
	assert.Equal(t, float64(opts.Iterations), testutil.ToFloat64(m.LearningEpochsTotal))
}

func TestLearnStored(t *testing.T) {
	svc := New(newModel(t))
	_, err := svc.LearnStored(context.Background(), learning.DefaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrModelNotReady)

	store := &fakeStore{}
	svc = New(newModel(t), WithStore(store))
	store.claims = []claim.OracleClaim{shrinkClaim(t, svc)}
	report, err := svc.LearnStored(context.Background(), learning.DefaultOptions())
	require.NoError(t, err)
	assert.Positive(t, report.Applied())
}

func TestSetWeightsNormalizesAndVersions(t *testing.T) {
	svc := New(newModel(t))
	ctx := context.Background()
	require.NoError(t, svc.SetItemWeights(ctx, map[string]float64{"a": 1, "b": 3}))
	assert.Equal(t, map[string]float64{"a": 0.25, "b": 0.75}, svc.ItemWeights())
	require.NoError(t, svc.SetCollectionWeights(ctx, map[string]float64{"aa": 1, "ab": 1}))
	assert.Equal(t, map[string]float64{"aa": 0.5, "ab": 0.5, "bbb": 0}, svc.CollectionWeights())
	assert.Equal(t, uint64(2), svc.Version())

	err := svc.SetItemWeights(ctx, map[string]float64{"a": -1})
	assert.ErrorIs(t, err, apperrors.ErrNegativeWeight)
	assert.Equal(t, uint64(2), svc.Version())
}

func TestReloadAdoptsNewerSnapshot(t *testing.T) {
	store := &fakeStore{}
	svc := New(newModel(t), WithStore(store), WithRetry(resilience.RetryConfig{MaxAttempts: 1}))
	ctx := context.Background()

	assert.ErrorIs(t, svc.Reload(ctx), apperrors.ErrNotFound)

	store.snapshots = append(store.snapshots, snapshot.Snapshot{
		Version:           5,
		CreatedAt:         time.Now(),
		ItemWeights:       map[string]float64{"a": 3, "b": 1},
		CollectionWeights: map[string]float64{"aa": 1, "ab": 1, "bbb": 2},
	})
	require.NoError(t, svc.Reload(ctx))
	assert.Equal(t, uint64(5), svc.Version())
	assert.Equal(t, map[string]float64{"a": 0.75, "b": 0.25}, svc.ItemWeights())

	store.snapshots[0].Version = 4
	store.snapshots[0].ItemWeights = map[string]float64{"a": 1}
	require.NoError(t, svc.Reload(ctx))
	assert.Equal(t, map[string]float64{"a": 0.75, "b": 0.25}, svc.ItemWeights())
}

func TestRestoreRollsBackOnBadCollections(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc := New(newModel(t))
	before := svc.ItemWeights()
	collections := svc.CollectionWeights()
	err := svc.Restore(snapshot.Snapshot{
		Version:           9,
		ItemWeights:       map[string]float64{"a": 1},
		CollectionWeights: map[string]float64{"aa": -1},
	})
	assert.ErrorIs(t, err, apperrors.ErrNegativeWeight)
	assert.Equal(t, before, svc.ItemWeights())
	after := svc.CollectionWeights()
	require.Len(t, after, len(collections))
	for id, w := range collections {
		assert.InDelta(t, w, after[id], 1e-15, id)
	}
	assert.Equal(t, uint64(0), svc.Version())
	assert.NotContains(t, logs.String(), "rollback")
}

func TestPublishToleratesStoreFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("db down")}
	svc := New(newModel(t), WithStore(store), WithRetry(resilience.RetryConfig{MaxAttempts: 1}))
	_, err := svc.Learn(context.Background(), []claim.OracleClaim{shrinkClaim(t, svc)}, oneEpoch())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), svc.Version())
}

func TestConcurrentReadsDuringLearning(t *testing.T) {
	svc := New(newModel(t), WithLearnerOptions(learning.WithRand(learning.NewRand(1))))
	c := shrinkClaim(t, svc)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d, err := svc.Distance(ctx, left, right)
				assert.NoError(t, err)
				assert.GreaterOrEqual(t, d, 0.0)
				svc.Nearest(left, 2)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := svc.Learn(ctx, []claim.OracleClaim{c}, oneEpoch())
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestHealthCheckReportsModel(t *testing.T) {
	svc := New(newModel(t), WithCache(&fakeCache{values: map[uint64]float64{}}))
	require.NoError(t, svc.SetItemWeights(context.Background(), map[string]float64{"a": 1, "b": 1}))

	h := svc.HealthCheck(context.Background())
	assert.Equal(t, health.StatusUp, h.Status)
	assert.Equal(t, uint64(1), h.Details["version"])
	assert.Equal(t, 2, h.Details["items"])
	assert.Equal(t, 3, h.Details["collections"])
	assert.Equal(t, int64(3), h.Details["cache_hits"])
}

func TestVectorizeDropsZeros(t *testing.T) {
	svc := New(newModel(t))
	v := svc.Vectorize([]string{"bbb"})
	assert.Contains(t, v, "b")
	assert.NotContains(t, v, "a")
}
