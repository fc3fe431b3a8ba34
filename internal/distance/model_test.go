package distance

import (
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/linalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	itemWeights       = map[string]float64{"a": 1, "b": 2}
	collectionWeights = map[string]float64{"aa": 1, "ab": 2, "bbb": 3}
)

func newWeightedModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(corpus.FromStrings("aa", "ab", "bbb"), itemWeights, collectionWeights)
	require.NoError(t, err)
	return m
}

func TestVectorize(t *testing.T) {
	m := newWeightedModel(t)

	v0 := m.Vectorize([]string{"ab"})
	v1 := m.Vectorize([]string{"bbb"})
	assert.True(t, linalg.AlmostColinear(v0, []float64{2, 4}), "got %v", v0)
	assert.True(t, linalg.AlmostColinear(v1, []float64{0, 18}), "got %v", v1)

	sum := linalg.Clone(v0)
	linalg.AddScaledInPlace(sum, 1, v1)
	assert.True(t, linalg.AlmostEqual(sum, m.Vectorize([]string{"ab", "bbb"})))
}

func TestVectorizeAdditiveOverDisjointCollections(t *testing.T) {
	m, err := New(corpus.FromStrings("banana", "ananas", "base", "nab"), nil, nil)
	require.NoError(t, err)
	ids := m.Collections().Keys()
	for i := range ids {
		for j := range ids {
			if i == j {
				continue
			}
			sum := linalg.Clone(m.Vectorize([]string{ids[i]}))
			linalg.AddScaledInPlace(sum, 1, m.Vectorize([]string{ids[j]}))
			assert.True(t, linalg.AlmostEqual(sum, m.Vectorize([]string{ids[i], ids[j]})),
				"%s + %s", ids[i], ids[j])
		}
	}
}

func TestPresenceDoesNotDoubleCount(t *testing.T) {
	m := newWeightedModel(t)
	assert.Equal(t, m.Vectorize([]string{"ab"}), m.Vectorize([]string{"ab", "ab"}))
}

func TestTFIDFDefaults(t *testing.T) {
	m, err := New(corpus.FromStrings("aa", "ab", "bbb"), nil, nil)
	require.NoError(t, err)

	raw := m.TFIDFItemWeights()
	assert.InDelta(t, math.Log(1.5), raw["a"], 1e-12)
	assert.InDelta(t, math.Log(1.5), raw["b"], 1e-12)

	w := m.ItemWeights()
	assert.InDelta(t, 0.5, w["a"], 1e-12)
	assert.InDelta(t, 0.5, w["b"], 1e-12)

	cw := m.CollectionWeights()
	assert.InDelta(t, 3.0/8, cw["aa"], 1e-12)
	assert.InDelta(t, 3.0/8, cw["ab"], 1e-12)
	assert.InDelta(t, 1.0/4, cw["bbb"], 1e-12)
}

func TestUniformFallbackWhenIDFVanishes(t *testing.T) {
	m, err := New(corpus.FromStrings("ab", "ba"), nil, nil)
	require.NoError(t, err)
	w := m.ItemWeights()
	assert.InDelta(t, 0.5, w["a"], 1e-12)
	assert.InDelta(t, 0.5, w["b"], 1e-12)
}

func TestNewRejectsEmptyCollectionWithDefaultWeights(t *testing.T) {
	_, err := New([]corpus.Collection{corpus.New("empty"), corpus.FromString("ab")}, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNewRejectsEmptyCorpus(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCorpus)
}

func TestVerboseDistance(t *testing.T) {
	m := newWeightedModel(t)
	v := m.VerboseDistance([]string{"ab"}, []string{"bbb"})

	expected := 1 - linalg.Dot(v.Left.Vectorization, v.Right.Vectorization)/v.Left.Norm/v.Right.Norm
	assert.InDelta(t, expected, v.Distance, 1e-12)
	assert.InDelta(t, 1-2/math.Sqrt(5), v.Distance, 1e-12)

	wi, wc := m.ItemWeightVector(), m.CollectionWeightVector()
	assert.Equal(t, linalg.DiagMulVec(wi, m.Matrix(), wc, v.Left.Presence), v.Left.Vectorization)
	assert.Equal(t, linalg.DiagMulVec(wi, m.Matrix(), wc, v.Right.Presence), v.Right.Vectorization)
	assert.Equal(t, []float64{0, 1, 0}, v.Left.Presence)
	assert.Equal(t, []float64{0, 0, 1}, v.Right.Presence)
}

func TestDistanceRange(t *testing.T) {
	m := newWeightedModel(t)
	sets := [][]string{{"aa"}, {"ab"}, {"bbb"}, {"aa", "bbb"}, {"ab", "bbb", "aa"}}
	for _, a := range sets {
		assert.InDelta(t, 0, m.Distance(a, a), 1e-12, "%v", a)
		for _, b := range sets {
			d := m.Distance(a, b)
			assert.GreaterOrEqual(t, d, -1e-12)
			assert.LessOrEqual(t, d, 2.0)
			assert.InDelta(t, d, m.Distance(b, a), 1e-12)
		}
	}
}

func TestDistanceAgainstUnknownCollection(t *testing.T) {
	m := newWeightedModel(t)
	v := m.VerboseDistance([]string{"ab"}, []string{"never-seen"})
	assert.Equal(t, 1.0, v.Distance)
	assert.Equal(t, 0.0, v.Right.Norm)
}

func TestSetWeightsRoundTrip(t *testing.T) {
	m := newWeightedModel(t)

	require.NoError(t, m.SetItemWeights(map[string]float64{"a": 2, "b": 6, "zz": 5}))
	w := m.ItemWeights()
	assert.InDelta(t, 0.25, w["a"], 1e-12)
	assert.InDelta(t, 0.75, w["b"], 1e-12)
	assert.NotContains(t, w, "zz")

	require.NoError(t, m.SetCollectionWeights(map[string]float64{"bbb": 4}))
	cw := m.CollectionWeights()
	assert.Equal(t, map[string]float64{"aa": 0, "ab": 0, "bbb": 1}, cw)
}

func TestSetWeightsRejectsBadInput(t *testing.T) {
	m := newWeightedModel(t)
	before := m.ItemWeights()

	assert.ErrorIs(t, m.SetItemWeights(map[string]float64{"a": -1, "b": 2}), apperrors.ErrNegativeWeight)
	assert.ErrorIs(t, m.SetItemWeights(map[string]float64{"a": 0}), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, m.SetItemWeights(map[string]float64{"a": math.Inf(1)}), apperrors.ErrInvalidInput)
	assert.Equal(t, before, m.ItemWeights())
}

func TestRescale(t *testing.T) {
	m := newWeightedModel(t)
	wi := m.ItemWeightVector()

	require.NoError(t, m.Rescale([]float64{2, 0.5}, []float64{1, 1, 1}))
	assert.InDeltaSlice(t, []float64{wi[0] * 2, wi[1] * 0.5}, m.ItemWeightVector(), 1e-15)

	assert.ErrorIs(t, m.Rescale([]float64{1}, []float64{1, 1, 1}), apperrors.ErrDimensionMismatch)
	assert.ErrorIs(t, m.Rescale([]float64{1, -1}, []float64{1, 1, 1}), apperrors.ErrNegativeWeight)
}

func TestNearest(t *testing.T) {
	m := newWeightedModel(t)
	ranked := m.Nearest([]string{"ab"}, 0)
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"ab", "bbb", "aa"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
	assert.InDelta(t, 0, ranked[0].Distance, 1e-12)
	assert.InDelta(t, 1-1/math.Sqrt(5), ranked[2].Distance, 1e-12)

	assert.Len(t, m.Nearest([]string{"ab"}, 2), 2)
}
