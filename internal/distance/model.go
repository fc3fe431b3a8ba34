// Package distance implements the weighted cosine distance between sets of
// collections. A Model owns one weight per item and one weight per
// collection; a set of collections is vectorized as
//
//	v = w_item ⊙ (M · (w_coll ⊙ presence))
//
// where M is the item x collection incidence matrix of the training corpus.
package distance

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/space"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/linalg"
)

// Model is a weighted cosine distance over a fixed vector space. It is not
// safe for concurrent mutation; see internal/service for a guarded wrapper.
type Model struct {
	*space.Space
	itemWeights       []float64
	collectionWeights []float64
	logger            *slog.Logger
}

// Side is one half of a verbose distance computation.
type Side struct {
	Presence      []float64
	Vectorization []float64
	Norm          float64
}

// Verbose carries every intermediate quantity of a distance computation.
type Verbose struct {
	Distance float64
	Left     Side
	Right    Side
}

// New builds the vector space of collections and installs the weights. A
// nil itemWeights defaults to inverse document frequency, a nil
// collectionWeights to the inverse of each collection's length. Both are
// L1-normalized before use.
func New(collections []corpus.Collection, itemWeights, collectionWeights map[string]float64) (*Model, error) {
	s, err := space.New(collections)
	if err != nil {
		return nil, err
	}
	m := &Model{
		Space:  s,
		logger: slog.Default().With("component", "distance-model"),
	}

	if itemWeights == nil {
		itemWeights = m.TFIDFItemWeights()
		if sumOf(itemWeights) == 0 {
			m.logger.Warn("every item occurs in every collection, falling back to uniform item weights",
				"items", s.ItemCount(),
			)
			itemWeights = uniform(s.Items().Keys())
		}
	}
	if err := m.SetItemWeights(itemWeights); err != nil {
		return nil, fmt.Errorf("setting item weights: %w", err)
	}

	if collectionWeights == nil {
		collectionWeights, err = inverseLengthWeights(collections)
		if err != nil {
			return nil, err
		}
	}
	if err := m.SetCollectionWeights(collectionWeights); err != nil {
		return nil, fmt.Errorf("setting collection weights: %w", err)
	}

	m.logger.Debug("distance model built",
		"items", s.ItemCount(),
		"collections", s.CollectionCount(),
		"nnz", s.Matrix().NNZ(),
	)
	return m, nil
}

// Distance returns the cosine distance between the vectorizations of a and b.
func (m *Model) Distance(a, b []string) float64 {
	return m.VerboseDistance(a, b).Distance
}

// Vectorize returns the item-space vector of a set of collection IDs.
func (m *Model) Vectorize(ids []string) []float64 {
	v, _ := m.verboseVectorize(ids)
	return v
}

// VerboseDistance returns the distance together with both presence vectors,
// vectorizations and norms.
func (m *Model) VerboseDistance(a, b []string) Verbose {
	va, pa := m.verboseVectorize(a)
	vb, pb := m.verboseVectorize(b)
	d, na, nb := linalg.VerboseCosineDistance(va, vb)
	return Verbose{
		Distance: d,
		Left:     Side{Presence: pa, Vectorization: va, Norm: na},
		Right:    Side{Presence: pb, Vectorization: vb, Norm: nb},
	}
}

func (m *Model) verboseVectorize(ids []string) (vectorization, presence []float64) {
	presence = m.Presence(ids)
	vectorization = linalg.DiagMulVec(m.itemWeights, m.Matrix(), m.collectionWeights, presence)
	return vectorization, presence
}

// TFIDFItemWeights returns ln(N / df(item)) for every indexed item, N being
// the number of training collections. An item with df 0 weighs 0.
func (m *Model) TFIDFItemWeights() map[string]float64 {
	n := m.CollectionCount()
	weights := make(map[string]float64, m.ItemCount())
	for _, item := range m.Items().Keys() {
		weights[item] = logRatioOrZero(n, m.CollectionsContaining(item))
	}
	return weights
}

// ItemWeights returns the current item weights.
func (m *Model) ItemWeights() map[string]float64 {
	return m.ItemMap(m.itemWeights)
}

// CollectionWeights returns the current collection weights.
func (m *Model) CollectionWeights() map[string]float64 {
	return m.CollectionMap(m.collectionWeights)
}

// SetItemWeights L1-normalizes weights and installs them. Unknown items are
// ignored and missing items weigh 0.
func (m *Model) SetItemWeights(weights map[string]float64) error {
	normalized, err := normalize(m.Items(), weights)
	if err != nil {
		return err
	}
	m.itemWeights = m.ItemVector(normalized)
	return nil
}

// SetCollectionWeights is SetItemWeights over collections.
func (m *Model) SetCollectionWeights(weights map[string]float64) error {
	normalized, err := normalize(m.Collections(), weights)
	if err != nil {
		return err
	}
	m.collectionWeights = m.CollectionVector(normalized)
	return nil
}

// ItemWeightVector returns a copy of the dense item weights.
func (m *Model) ItemWeightVector() []float64 {
	return linalg.Clone(m.itemWeights)
}

// CollectionWeightVector returns a copy of the dense collection weights.
func (m *Model) CollectionWeightVector() []float64 {
	return linalg.Clone(m.collectionWeights)
}

// Rescale multiplies both weight vectors coefficient-wise by the given
// factors. Factors must be non-negative; the result is not renormalized.
func (m *Model) Rescale(itemFactors, collectionFactors []float64) error {
	if len(itemFactors) != len(m.itemWeights) || len(collectionFactors) != len(m.collectionWeights) {
		return fmt.Errorf("rescaling weights: %w: got %d/%d factors for %d/%d weights",
			apperrors.ErrDimensionMismatch,
			len(itemFactors), len(collectionFactors),
			len(m.itemWeights), len(m.collectionWeights),
		)
	}
	for _, factors := range [][]float64{itemFactors, collectionFactors} {
		for _, f := range factors {
			if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("rescaling weights: %w: factor %g", apperrors.ErrNegativeWeight, f)
			}
		}
	}
	linalg.HadamardInPlace(m.itemWeights, itemFactors)
	linalg.HadamardInPlace(m.collectionWeights, collectionFactors)
	return nil
}

func logRatioOrZero(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return math.Log(float64(numerator) / float64(denominator))
}

func inverseLengthWeights(collections []corpus.Collection) (map[string]float64, error) {
	weights := make(map[string]float64, len(collections))
	for _, c := range collections {
		if _, seen := weights[c.ID]; seen {
			continue
		}
		if len(c.Items) == 0 {
			return nil, apperrors.Invalid(apperrors.ErrInvalidInput, "collection %q has no items", c.ID)
		}
		weights[c.ID] = 1 / float64(len(c.Items))
	}
	return weights, nil
}

// normalize keeps the keys known to idx and divides them by their sum.
func normalize(idx *space.Index, weights map[string]float64) (map[string]float64, error) {
	known := make(map[string]float64, len(weights))
	for key, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, apperrors.Invalid(apperrors.ErrInvalidInput, "weight of %q is not finite", key)
		}
		if w < 0 {
			return nil, apperrors.Invalid(apperrors.ErrNegativeWeight, "weight of %q is %g", key, w)
		}
		if _, ok := idx.Lookup(key); ok {
			known[key] = w
		}
	}
	var total float64
	for _, key := range idx.Keys() {
		total += known[key]
	}
	if total <= 0 {
		return nil, apperrors.Invalid(apperrors.ErrInvalidInput, "weights of known keys sum to %g", total)
	}
	for key, w := range known {
		known[key] = w / total
	}
	return known, nil
}

func sumOf(weights map[string]float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	return total
}

func uniform(keys []string) map[string]float64 {
	weights := make(map[string]float64, len(keys))
	for _, k := range keys {
		weights[k] = 1
	}
	return weights
}
