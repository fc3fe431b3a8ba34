// Package consumer watches the claim-ingest topic and periodically relearns
// the model over the stored claim set once new claims have arrived.
package consumer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/kafka"
)

// Trainer is satisfied by *service.Service.
type Trainer interface {
	LearnStored(ctx context.Context, opts learning.Options) (learning.Report, error)
}

// Retrainer counts claims announced on the ingest topic and runs a full
// batch learning pass when the count is non-zero.
type Retrainer struct {
	trainer  Trainer
	opts     learning.Options
	interval time.Duration
	pending  atomic.Int64
	logger   *slog.Logger
}

func NewRetrainer(trainer Trainer, opts learning.Options, interval time.Duration) *Retrainer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Retrainer{
		trainer:  trainer,
		opts:     opts,
		interval: interval,
		logger:   slog.Default().With("component", "retrainer"),
	}
}

// Pending returns the number of claims seen since the last pass.
func (r *Retrainer) Pending() int64 {
	return r.pending.Load()
}

// HandleMessage returns a MessageHandler that decodes each ClaimEvent and
// marks it pending. Undecodable or invalid events are logged and committed
// so they do not block the partition.
func (r *Retrainer) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[claims.ClaimEvent](value)
		if err != nil {
			r.logger.Error("failed to decode claim event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := event.Claim().Validate(); err != nil {
			r.logger.Warn("dropping invalid claim event", "claim_id", event.ClaimID, "error", err)
			return nil
		}
		n := r.pending.Add(1)
		r.logger.Debug("claim pending", "claim_id", event.ClaimID, "pending", n)
		return nil
	}
}

// Flush runs a learning pass if any claims are pending. It reports whether
// a pass ran. On failure the pending count is restored.
func (r *Retrainer) Flush(ctx context.Context) (learning.Report, bool, error) {
	n := r.pending.Swap(0)
	if n == 0 {
		return learning.Report{}, false, nil
	}
	report, err := r.trainer.LearnStored(ctx, r.opts)
	if err != nil {
		r.pending.Add(n)
		return report, true, err
	}
	r.logger.Info("retrained on stored claims",
		"new_claims", n,
		"applied", report.Applied(),
		"residual", report.FinalResidual(),
	)
	return report, true, nil
}

// Run flushes every interval until ctx is cancelled.
func (r *Retrainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.Info("retrainer starting", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("retrainer stopping", "pending", r.pending.Load())
			return nil
		case <-ticker.C:
			if _, _, err := r.Flush(ctx); err != nil {
				r.logger.Error("periodic retrain failed", "error", err)
			}
		}
	}
}
