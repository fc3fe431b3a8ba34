package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/events"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/snapshot"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/tracing"
)

// change is a committed weight version waiting to be persisted and
// announced outside the lock.
type change struct {
	previous   uint64
	snapshot   snapshot.Snapshot
	reason     events.Reason
	claimCount int
}

// commitLocked bumps the version and captures the weights. s.mu must be
// held for writing.
func (s *Service) commitLocked(reason events.Reason, residual float64, claimCount int) *change {
	previous := s.version
	s.version++
	if s.metrics != nil {
		s.metrics.ModelVersion.Set(float64(s.version))
	}
	return &change{
		previous: previous,
		snapshot: snapshot.Snapshot{
			Version:           s.version,
			CreatedAt:         s.now().UTC(),
			ItemWeights:       s.learner.ItemWeights(),
			CollectionWeights: s.learner.CollectionWeights(),
			Residual:          residual,
		},
		reason:     reason,
		claimCount: claimCount,
	}
}

// publish persists and announces c. Failures are logged: the in-memory
// model already serves the new weights.
func (s *Service) publish(ctx context.Context, c *change) {
	ctx, span := tracing.Start(ctx, "publish")
	defer span.End()
	span.SetAttr("version", c.snapshot.Version)

	if s.snapshots != nil {
		_, step := tracing.Start(ctx, "publish.snapshot")
		status := "ok"
		if path, err := s.snapshots.Write(c.snapshot); err != nil {
			status = "error"
			s.logger.Error("failed to write snapshot", "version", c.snapshot.Version, "error", err)
		} else {
			s.logger.Debug("snapshot written", "version", c.snapshot.Version, "path", path)
		}
		if s.metrics != nil {
			s.metrics.SnapshotsWrittenTotal.WithLabelValues(status).Inc()
		}
		step.SetAttr("status", status)
		step.End()
	}
	if s.store != nil {
		storeCtx, step := tracing.Start(ctx, "publish.store")
		err := resilience.Retry(storeCtx, "save-snapshot", s.retry, func(ctx context.Context) error {
			return s.store.SaveSnapshot(ctx, c.snapshot)
		})
		if err != nil {
			s.logger.Error("failed to store snapshot", "version", c.snapshot.Version, "error", err)
			step.SetAttr("error", err.Error())
		}
		step.End()
	}
	if s.cache != nil {
		cacheCtx, step := tracing.Start(ctx, "publish.cache")
		n, err := s.cache.InvalidateVersion(cacheCtx, c.previous)
		if err != nil {
			s.logger.Warn("failed to drop stale cache entries", "version", c.previous, "error", err)
		}
		step.SetAttr("deleted", n)
		step.End()
	}
	if s.events != nil {
		s.events.Track(events.ModelUpdated{
			Reason:     c.reason,
			Version:    c.snapshot.Version,
			Source:     s.instanceID,
			Residual:   c.snapshot.Residual,
			ClaimCount: c.claimCount,
		})
	}
}

// Restore installs the weights of snap and adopts its version. Weights are
// renormalized, which leaves every distance unchanged.
func (s *Service) Restore(snap snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(snap)
}

func (s *Service) restoreLocked(snap snapshot.Snapshot) error {
	items := s.learner.ItemWeights()
	collections := s.learner.CollectionWeights()
	if err := s.learner.SetItemWeights(snap.ItemWeights); err != nil {
		return fmt.Errorf("restoring item weights of version %d: %w", snap.Version, err)
	}
	if err := s.learner.SetCollectionWeights(snap.CollectionWeights); err != nil {
		// Roll back so that both weight vectors come from the same version.
		if rbErr := errors.Join(
			s.learner.SetItemWeights(items),
			s.learner.SetCollectionWeights(collections),
		); rbErr != nil {
			s.logger.Error("rollback after failed restore left mixed weights",
				"version", s.version,
				"restoring", snap.Version,
				"error", rbErr,
			)
		}
		return fmt.Errorf("restoring collection weights of version %d: %w", snap.Version, err)
	}
	s.version = snap.Version
	if s.metrics != nil {
		s.metrics.ModelVersion.Set(float64(s.version))
	}
	s.logger.Info("weights restored", "version", snap.Version, "created_at", snap.CreatedAt)
	return nil
}

// Reload installs the newest stored snapshot if it is ahead of the served
// version.
func (s *Service) Reload(ctx context.Context) error {
	if s.store == nil {
		return apperrors.New(apperrors.ErrModelNotReady, 503, "snapshot store not configured")
	}
	var snap snapshot.Snapshot
	err := resilience.Retry(ctx, "load-snapshot", s.retryUnlessNotFound(), func(ctx context.Context) error {
		var err error
		snap, err = s.store.LatestSnapshot(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Version <= s.version {
		s.logger.Debug("stored snapshot not newer", "stored", snap.Version, "served", s.version)
		return nil
	}
	return s.restoreLocked(snap)
}

func (s *Service) retryUnlessNotFound() resilience.RetryConfig {
	cfg := s.retry
	cfg.Retryable = func(err error) bool {
		return !errors.Is(err, apperrors.ErrNotFound)
	}
	return cfg
}
