// Package events announces weight changes on the model-updated topic and
// lets replicas reload the newest weights when another instance learns.
package events

import "time"

type Reason string

const (
	ReasonLearn      Reason = "learn"
	ReasonSetWeights Reason = "set_weights"
)

// ModelUpdated is published whenever an instance changes its weights.
type ModelUpdated struct {
	Reason     Reason    `json:"reason"`
	Version    uint64    `json:"version"`
	Source     string    `json:"source"`
	Residual   float64   `json:"residual,omitempty"`
	ClaimCount int       `json:"claim_count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
