package multiview

import (
	"math"

	"github.com/pkg/errors"
)

// tolerance decides when a bracket [a, b] is small enough.
type tolerance func(a, b float64) bool

// epsTolerance accepts a bracket once its width is within the given number of significant
// bits of its smaller end.
func epsTolerance(bits int) tolerance {
	eps := math.Max(math.Ldexp(1, 1-bits), 4*epsilon)
	return func(a, b float64) bool {
		return math.Abs(a-b) <= eps*math.Min(math.Abs(a), math.Abs(b))
	}
}

// epsilon is the difference between 1 and the next representable float64.
var epsilon = math.Nextafter(1, 2) - 1

// bisect narrows [lo, hi] around a sign change of f. f(lo) and f(hi) must have opposite
// signs. It stops when tol accepts the bracket, when the midpoint can no longer be
// represented between the ends, or after maxIter halvings. The returned bracket keeps the
// sign of each end.
func bisect(f func(float64) float64, lo, hi float64, tol tolerance, maxIter int) (float64, float64, error) {
	fLo := f(lo)
	fHi := f(hi)
	switch {
	case fLo == 0:
		return lo, lo, nil
	case fHi == 0:
		return hi, hi, nil
	case math.IsNaN(fLo) || math.IsNaN(fHi) || math.Signbit(fLo) == math.Signbit(fHi):
		return lo, hi, errors.Errorf("no change of sign in [%v, %v]: f = %v, %v", lo, hi, fLo, fHi)
	}

	for i := 0; i < maxIter && !tol(lo, hi); i++ {
		mid := lo + (hi-lo)/2
		if mid == lo || mid == hi {
			break
		}
		fMid := f(mid)
		if fMid == 0 {
			return mid, mid, nil
		}
		if math.Signbit(fMid) == math.Signbit(fLo) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return lo, hi, nil
}
