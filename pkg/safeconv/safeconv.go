// Package safeconv provides integer conversions for byte sizes and offsets
// that panic instead of silently wrapping.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MustIntToUint64 converts a non-negative int to uint64, panics if negative.
// Use for lengths and offsets, which are never negative.
func MustIntToUint64(v int) uint64 {
	if v < 0 {
		panic("safeconv: negative int to uint64 conversion")
	}

	return uint64(v)
}

// MustInt64ToUint64 converts a non-negative int64 to uint64, panics if negative.
func MustInt64ToUint64(v int64) uint64 {
	if v < 0 {
		panic("safeconv: negative int64 to uint64 conversion")
	}

	return uint64(v)
}

// Uint64ToInt64 converts v to int64, reporting false when it does not fit.
// Sizes parsed from user input go through here.
func Uint64ToInt64(v uint64) (int64, bool) {
	if v > math.MaxInt64 {
		return 0, false
	}

	return int64(v), true
}

// ClampInt64ToInt converts v to int, saturating at the int bounds.
func ClampInt64ToInt(v int64) int {
	switch {
	case v > int64(MaxInt):
		return MaxInt
	case v < int64(-MaxInt-1):
		return -MaxInt - 1
	default:
		return int(v)
	}
}
