// Package mathx collects the ordered-type numeric helpers used to bound
// values in the power and cmux packages: the CFUN gate's extended-timeout
// clamp and the cmux channel's flow-control watermarks.
package mathx

import "golang.org/x/exp/constraints"

func orderedBounds[T constraints.Ordered](lo, hi T) (T, T) {
	if hi < lo {
		return hi, lo
	}
	return lo, hi
}

// Clamp bounds v to the closed interval [lo, hi], tolerating a swapped
// (lo, hi) pair by reordering them first.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	lo, hi = orderedBounds(lo, hi)
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// Within reports whether v falls within [lo, hi], tolerating a swapped
// (lo, hi) pair the same way Clamp does.
func Within[T constraints.Ordered](v, lo, hi T) bool {
	lo, hi = orderedBounds(lo, hi)
	return lo <= v && v <= hi
}

// Min returns whichever of a, b sorts lower.
func Min[T constraints.Ordered](a, b T) T {
	if b < a {
		return b
	}
	return a
}

// Max returns whichever of a, b sorts higher.
func Max[T constraints.Ordered](a, b T) T {
	if b > a {
		return b
	}
	return a
}

// Abs returns the absolute value of a signed integer x.
func Abs[T ~int | ~int8 | ~int16 | ~int32 | ~int64](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
