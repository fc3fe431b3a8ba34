// Package claim holds oracle claims: supervisory statements that the
// distance between two sets of collections should fall in a given interval.
package claim

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
)

// MaxDistance is the largest value cosine distance can take.
const MaxDistance = 2.0

// Interval is a closed target-distance interval [Lo, Hi].
type Interval struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// NewInterval validates lo <= hi and that both bounds are within [0, 2].
func NewInterval(lo, hi float64) (Interval, error) {
	iv := Interval{Lo: lo, Hi: hi}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate reports why iv cannot be used as a target interval.
func (iv Interval) Validate() error {
	switch {
	case math.IsNaN(iv.Lo) || math.IsNaN(iv.Hi):
		return apperrors.Invalid(apperrors.ErrInvalidInterval, "bounds must be numbers")
	case iv.Lo > iv.Hi:
		return apperrors.Invalid(apperrors.ErrInvalidInterval, "lo %g greater than hi %g", iv.Lo, iv.Hi)
	case iv.Lo < 0 || iv.Hi > MaxDistance:
		return apperrors.Invalid(apperrors.ErrInvalidInterval, "[%g, %g] outside [0, %g]", iv.Lo, iv.Hi, MaxDistance)
	}
	return nil
}

// Contains reports whether v lies in the interval.
func (iv Interval) Contains(v float64) bool {
	return iv.Lo <= v && v <= iv.Hi
}

// Closest returns the point of the interval nearest to v.
func (iv Interval) Closest(v float64) float64 {
	return ClosestPoint(v, iv)
}

// ClosestPoint returns lo when v < lo, hi when v > hi, and v otherwise.
func ClosestPoint(v float64, iv Interval) float64 {
	if v < iv.Lo {
		return iv.Lo
	}
	if v > iv.Hi {
		return iv.Hi
	}
	return v
}

// OracleClaim states that the distance between the collection sets Left
// and Right should lie in Interval. Sides are sets of collection IDs.
type OracleClaim struct {
	ID       string   `json:"id,omitempty" yaml:"id"`
	Left     []string `json:"left" yaml:"left"`
	Right    []string `json:"right" yaml:"right"`
	Interval Interval `json:"interval" yaml:"interval"`
}

// New builds a validated claim.
func New(left, right []string, lo, hi float64) (OracleClaim, error) {
	c := OracleClaim{Left: left, Right: right, Interval: Interval{Lo: lo, Hi: hi}}
	if err := c.Validate(); err != nil {
		return OracleClaim{}, err
	}
	return c, nil
}

// Validate checks the interval. An empty side is valid: it vectorizes to
// zero and learning skips the claim.
func (c OracleClaim) Validate() error {
	if err := c.Interval.Validate(); err != nil {
		return fmt.Errorf("claim %q: %w", c.ID, err)
	}
	return nil
}
