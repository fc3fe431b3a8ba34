// Package publisher persists oracle claims and announces them on the
// claim-ingest topic so that serving replicas can learn from them.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/kafka"
	"github.com/google/uuid"
)

// ClaimStore is the persistence the publisher needs; *store.Store
// satisfies it.
type ClaimStore interface {
	SaveClaim(ctx context.Context, c claim.OracleClaim, idempotencyKey string) (id string, created bool, err error)
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	store    ClaimStore
	producer EventPublisher
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Publisher. Either dependency may be nil: without a store
// claims are not persisted and idempotency keys are not honoured, without a
// producer nothing is announced.
func New(store ClaimStore, producer EventPublisher) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		now:      time.Now,
		logger:   slog.Default().With("component", "claim-publisher"),
	}
}

// Submit stores the claim and publishes a ClaimEvent. A repeated
// idempotency key returns the original claim ID with StatusDuplicate and
// publishes nothing.
func (p *Publisher) Submit(ctx context.Context, req *claims.SubmitRequest) (*claims.SubmitResponse, error) {
	c := req.Claim()
	c.ID = uuid.NewString()
	if p.store != nil {
		id, created, err := p.store.SaveClaim(ctx, c, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("storing claim: %w", err)
		}
		if !created {
			return &claims.SubmitResponse{ClaimID: id, Status: claims.StatusDuplicate}, nil
		}
		c.ID = id
	}

	if p.producer != nil {
		event := kafka.Event{
			Key: c.ID,
			Value: claims.ClaimEvent{
				ClaimID:     c.ID,
				Left:        c.Left,
				Right:       c.Right,
				Lo:          c.Interval.Lo,
				Hi:          c.Interval.Hi,
				SubmittedAt: p.now().UTC(),
			},
		}
		if err := p.producer.Publish(ctx, event); err != nil {
			// The claim is stored; the next full retrain picks it up.
			p.logger.Error("failed to publish claim event",
				"claim_id", c.ID,
				"error", err,
			)
		}
	}
	return &claims.SubmitResponse{ClaimID: c.ID, Status: claims.StatusAccepted}, nil
}
