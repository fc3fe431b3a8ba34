// Package linalg provides the small set of dense-vector and sparse-matrix
// operations the distance model is built on. Dense operations delegate to
// gonum's floats package; the incidence matrix lives in a compressed
// sparse-row structure (see sparse.go).
package linalg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	// RelTolerance and AbsTolerance drive every "is this effectively equal"
	// decision in the module.
	RelTolerance = 1e-9
	AbsTolerance = 1e-12
)

// Zeros returns a zero vector of length n.
func Zeros(n int) []float64 {
	return make([]float64, n)
}

// Ones returns a vector of length n filled with 1.
func Ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// Clone returns a copy of v.
func Clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Dot is the scalar product of a and b.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// Norm is the Euclidean norm of v.
func Norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// IsZero reports whether every entry of v is exactly zero.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Hadamard returns the coefficient-wise product of a and b in a new slice.
func Hadamard(a, b []float64) []float64 {
	return floats.MulTo(make([]float64, len(a)), a, b)
}

// HadamardInPlace multiplies dst coefficient-wise by s.
func HadamardInPlace(dst, s []float64) {
	floats.Mul(dst, s)
}

// Scaled returns c*v in a new slice.
func Scaled(c float64, v []float64) []float64 {
	return floats.ScaleTo(make([]float64, len(v)), c, v)
}

// AddScaledInPlace performs dst += c*s.
func AddScaledInPlace(dst []float64, c float64, s []float64) {
	floats.AddScaled(dst, c, s)
}

// Sum returns the sum of the entries of v.
func Sum(v []float64) float64 {
	return floats.Sum(v)
}

// VerboseNormalize returns v scaled to unit length together with its
// original norm. A zero vector is returned unchanged with norm 0.
func VerboseNormalize(v []float64) ([]float64, float64) {
	if IsZero(v) {
		return v, 0
	}
	n := Norm(v)
	return Scaled(1/n, v), n
}

// CosineDistance is 1 - cos(a, b), with cosine similarity against a zero
// vector taken as 0.
func CosineDistance(a, b []float64) float64 {
	d, _, _ := VerboseCosineDistance(a, b)
	return d
}

// VerboseCosineDistance returns the cosine distance between a and b along
// with both norms.
func VerboseCosineDistance(a, b []float64) (distance, normA, normB float64) {
	ua, normA := VerboseNormalize(a)
	ub, normB := VerboseNormalize(b)
	return 1 - Dot(ua, ub), normA, normB
}

// RescaleToLowerBound shrinks v uniformly so that its minimum entry is not
// below bound. bound must be negative; v is returned as-is when it already
// satisfies the bound.
func RescaleToLowerBound(v []float64, bound float64) []float64 {
	if len(v) == 0 {
		return v
	}
	lowest := floats.Min(v)
	if lowest < bound {
		return Scaled(bound/lowest, v)
	}
	return v
}

// RescaleAndAddOne turns an additive direction into a multiplicative
// rescaling vector: the direction is shrunk so no entry is below -1, then 1
// is added to every entry. Every entry of the result is >= 0.
func RescaleAndAddOne(v []float64) []float64 {
	out := Clone(RescaleToLowerBound(v, -1))
	floats.AddConst(1, out)
	for i, x := range out {
		// rounding in the rescale can leave -1 + 1 a hair below zero
		if x < 0 {
			out[i] = 0
		}
	}
	return out
}

// IsClose reports whether a and b are equal within the module tolerances.
func IsClose(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, AbsTolerance, RelTolerance)
}

// AlmostEqual reports whether a and b have the same length and are
// coefficient-wise close.
func AlmostEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !IsClose(a[i], b[i]) {
			return false
		}
	}
	return true
}

// AlmostColinear reports whether b is (approximately) a scalar multiple of a.
// A zero a is colinear with anything.
func AlmostColinear(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	if IsZero(a) {
		return true
	}
	for i, x := range a {
		if x != 0 {
			return AlmostEqual(Scaled(b[i]/x, a), b)
		}
	}
	return true
}

// IsFinite reports whether every entry of v is a finite number.
func IsFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
