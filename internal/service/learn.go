package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/events"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/tracing"
)

// SetItemWeights normalizes and installs item weights as a new version.
func (s *Service) SetItemWeights(ctx context.Context, weights map[string]float64) error {
	return s.setWeights(ctx, weights, func(w map[string]float64) error {
		return s.learner.SetItemWeights(w)
	})
}

// SetCollectionWeights normalizes and installs collection weights as a new
// version.
func (s *Service) SetCollectionWeights(ctx context.Context, weights map[string]float64) error {
	return s.setWeights(ctx, weights, func(w map[string]float64) error {
		return s.learner.SetCollectionWeights(w)
	})
}

func (s *Service) setWeights(ctx context.Context, weights map[string]float64, set func(map[string]float64) error) error {
	ctx, span := tracing.Start(ctx, "set_weights")
	defer span.End()
	s.mu.Lock()
	if err := set(weights); err != nil {
		s.mu.Unlock()
		return err
	}
	pending := s.commitLocked(events.ReasonSetWeights, 0, 0)
	s.mu.Unlock()

	s.publish(ctx, pending)
	return nil
}

// Learn runs a full learning pass over claims under the write lock. Readers
// wait for the whole pass, so they never observe a half-finished epoch.
func (s *Service) Learn(ctx context.Context, claims []claim.OracleClaim, opts learning.Options) (learning.Report, error) {
	ctx, span := tracing.Start(ctx, "learn")
	defer span.End()
	span.SetAttr("claims", len(claims))

	start := time.Now()
	_, train := tracing.Start(ctx, "learn.train")
	s.mu.Lock()
	report, err := s.learner.Learn(claims, opts)
	var pending *change
	if report.Applied() > 0 {
		pending = s.commitLocked(events.ReasonLearn, report.FinalResidual(), len(claims))
	}
	s.mu.Unlock()
	train.SetAttr("epochs", len(report.Epochs))
	train.SetAttr("applied", report.Applied())
	train.End()

	if s.metrics != nil {
		s.metrics.LearningRunDuration.Observe(time.Since(start).Seconds())
	}
	if pending != nil {
		s.publish(ctx, pending)
	}
	if err != nil {
		span.SetAttr("error", err.Error())
		return report, err
	}
	span.SetAttr("residual", report.FinalResidual())
	s.logger.Info("learning run complete",
		"claims", len(claims),
		"epochs", len(report.Epochs),
		"applied", report.Applied(),
		"skipped", report.Skipped(),
		"residual", report.FinalResidual(),
		"duration", time.Since(start),
	)
	return report, nil
}

// LearnStored runs Learn over every claim in the store.
func (s *Service) LearnStored(ctx context.Context, opts learning.Options) (learning.Report, error) {
	if s.store == nil {
		return learning.Report{}, apperrors.New(apperrors.ErrModelNotReady, 503, "claim store not configured")
	}
	claims, err := s.store.LoadClaims(ctx)
	if err != nil {
		return learning.Report{}, fmt.Errorf("loading stored claims: %w", err)
	}
	return s.Learn(ctx, claims, opts)
}
