package learning

import (
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/linalg"
)

type SkipReason string

const (
	SkipNone SkipReason = ""
	// SkipAtTarget: the target is indistinguishable from the current distance.
	SkipAtTarget SkipReason = "at_target"
	// SkipZeroNorm: one side vectorizes to the zero vector.
	SkipZeroNorm SkipReason = "zero_norm"
	// SkipFlatGradient: both gradients vanish so no step size exists.
	SkipFlatGradient SkipReason = "flat_gradient"
)

// Update is the outcome of one claim.
type Update struct {
	ClaimID string     `json:"claim_id,omitempty"`
	Applied bool       `json:"applied"`
	Skip    SkipReason `json:"skip,omitempty"`
	Current float64    `json:"current"`
	Target  float64    `json:"target"`
}

// enrichedClaim is a claim evaluated against the current weights.
type enrichedClaim struct {
	distance.Verbose
	target float64
}

func enrich(m *distance.Model, c claim.OracleClaim, effort float64) enrichedClaim {
	v := m.VerboseDistance(c.Left, c.Right)
	closest := c.Interval.Closest(v.Distance)
	return enrichedClaim{
		Verbose: v,
		target:  v.Distance + effort*(closest-v.Distance),
	}
}

func (e enrichedClaim) skipReason() SkipReason {
	switch {
	case linalg.IsClose(e.Distance, e.target):
		return SkipAtTarget
	case linalg.IsClose(e.Left.Norm, 0), linalg.IsClose(e.Right.Norm, 0):
		return SkipZeroNorm
	}
	return SkipNone
}

// rescalingVectors computes the multiplicative factors for item and
// collection weights. K is the linearization of cosine distance around the
// two current vectorizations; the common factor sizes the step so that the
// first-order change in distance is target - current.
func (l *Learner) rescalingVectors(e enrichedClaim, ratio float64) (itemFactors, collectionFactors []float64, ok bool) {
	c, nA, nB := e.Distance, e.Left.Norm, e.Right.Norm
	k := [][]float64{
		{(1 - c) * nB / nA, -1},
		{-1, (1 - c) * nA / nB},
	}

	vectorizations := [][]float64{e.Left.Vectorization, e.Right.Vectorization}
	xItem := hadamardBilinear(vectorizations, k, vectorizations)

	wItem, wColl := l.ItemWeightVector(), l.CollectionWeightVector()
	projected := [][]float64{
		linalg.DiagMulVecT(wColl, l.Matrix(), wItem, e.Left.Vectorization),
		linalg.DiagMulVecT(wColl, l.Matrix(), wItem, e.Right.Vectorization),
	}
	presences := [][]float64{e.Left.Presence, e.Right.Presence}
	xColl := hadamardBilinear(presences, k, projected)

	denominator := ratio*ratio*linalg.Dot(xItem, xItem) + (1-ratio)*(1-ratio)*linalg.Dot(xColl, xColl)
	// Both gradients scale like nA·nB; anything below that by the absolute
	// tolerance is rounding noise around an exactly flat direction.
	if flat := linalg.AbsTolerance * nA * nB; denominator <= flat*flat {
		return nil, nil, false
	}
	commonFactor := nA * nB * (e.target - c) / denominator

	xItem = linalg.Scaled(commonFactor*ratio, xItem)
	xColl = linalg.Scaled(commonFactor*(1-ratio), xColl)
	if !linalg.IsFinite(xItem) || !linalg.IsFinite(xColl) {
		return nil, nil, false
	}
	return linalg.RescaleAndAddOne(xItem), linalg.RescaleAndAddOne(xColl), true
}

// hadamardBilinear returns Σ_i Σ_j k[i][j] · (left[i] ⊙ right[j]).
func hadamardBilinear(left [][]float64, k [][]float64, right [][]float64) []float64 {
	if len(left) == 0 {
		return nil
	}
	out := linalg.Zeros(len(left[0]))
	for i, l := range left {
		for j, r := range right {
			if k[i][j] == 0 {
				continue
			}
			linalg.AddScaledInPlace(out, k[i][j], linalg.Hadamard(l, r))
		}
	}
	return out
}
