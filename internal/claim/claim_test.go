package claim

import (
	"math"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosestPoint(t *testing.T) {
	iv := Interval{Lo: -2, Hi: 4}
	assert.Equal(t, -2.0, ClosestPoint(-3, iv))
	assert.Equal(t, -2.0, ClosestPoint(-2, iv))
	assert.Equal(t, 4.0, ClosestPoint(4, iv))
	assert.Equal(t, 4.0, ClosestPoint(5, iv))
	assert.Equal(t, 1.0, ClosestPoint(1, iv))
	assert.Equal(t, 1.0, iv.Closest(1))
}

func TestNewInterval(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  float64
		wantErr bool
	}{
		{"valid", 0.2, 0.8, false},
		{"degenerate point", 0.5, 0.5, false},
		{"full range", 0, 2, false},
		{"inverted", 0.8, 0.2, true},
		{"negative", -0.1, 0.5, true},
		{"above two", 0.5, 2.5, true},
		{"nan", math.NaN(), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := NewInterval(tt.lo, tt.hi)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInterval)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Interval{Lo: tt.lo, Hi: tt.hi}, iv)
		})
	}
}

func TestContains(t *testing.T) {
	iv := Interval{Lo: 0.2, Hi: 0.4}
	assert.True(t, iv.Contains(0.2))
	assert.True(t, iv.Contains(0.4))
	assert.False(t, iv.Contains(0.41))
}

func TestNewClaim(t *testing.T) {
	c, err := New([]string{"ab"}, []string{"bbb"}, 0.1, 0.9)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab"}, c.Left)
	assert.Equal(t, Interval{Lo: 0.1, Hi: 0.9}, c.Interval)

	empty, err := New(nil, []string{"bbb"}, 0.1, 0.9)
	require.NoError(t, err)
	assert.Empty(t, empty.Left)

	_, err = New([]string{"ab"}, []string{"bbb"}, 0.9, 0.1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInterval)
}

func TestParse(t *testing.T) {
	claims, err := Parse([]byte(`
claims:
  - id: c1
    left: [ab]
    right: [bbb, aa]
    interval: {lo: 0.5, hi: 1}
`))
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, OracleClaim{
		ID:       "c1",
		Left:     []string{"ab"},
		Right:    []string{"bbb", "aa"},
		Interval: Interval{Lo: 0.5, Hi: 1},
	}, claims[0])

	_, err = Parse([]byte("claims:\n  - left: [a]\n    right: [b]\n    interval: {lo: 1, hi: 0}\n"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInterval)
}
