// Package claims defines the request/response types and Kafka event schema
// of the oracle-claim ingestion pipeline.
package claims

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
)

const (
	StatusAccepted  = "ACCEPTED"
	StatusDuplicate = "DUPLICATE"
)

// SubmitRequest is the JSON body accepted by POST /api/v1/claims.
type SubmitRequest struct {
	Left           []string `json:"left"`
	Right          []string `json:"right"`
	Lo             float64  `json:"lo"`
	Hi             float64  `json:"hi"`
	IdempotencyKey string   `json:"idempotency_key"`
}

func (r SubmitRequest) Claim() claim.OracleClaim {
	return claim.OracleClaim{
		Left:     r.Left,
		Right:    r.Right,
		Interval: claim.Interval{Lo: r.Lo, Hi: r.Hi},
	}
}

type SubmitResponse struct {
	ClaimID string `json:"claim_id"`
	Status  string `json:"status"`
}

// ClaimEvent is published on the claim-ingest topic once a claim is stored.
type ClaimEvent struct {
	ClaimID     string    `json:"claim_id"`
	Left        []string  `json:"left"`
	Right       []string  `json:"right"`
	Lo          float64   `json:"lo"`
	Hi          float64   `json:"hi"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (e ClaimEvent) Claim() claim.OracleClaim {
	return claim.OracleClaim{
		ID:       e.ClaimID,
		Left:     e.Left,
		Right:    e.Right,
		Interval: claim.Interval{Lo: e.Lo, Hi: e.Hi},
	}
}
