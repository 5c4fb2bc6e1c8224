// Package wide holds the bit manipulation the codec needs on 128-bit
// patterns. Every value flows through the codec as a uint128.Uint128 whose
// low bits hold the native-width pattern.
package wide

import (
	"math/bits"

	"lukechampine.com/uint128"
)

// Len returns the number of significant bits in u; Len of zero is 0.
func Len(u uint128.Uint128) int {
	if u.Hi != 0 {
		return 64 + bits.Len64(u.Hi)
	}
	return bits.Len64(u.Lo)
}

// Low keeps the n low bits of u.
func Low(u uint128.Uint128, n int) uint128.Uint128 {
	switch {
	case n <= 0:
		return uint128.Zero
	case n < 64:
		return uint128.New(u.Lo&(1<<uint(n)-1), 0)
	case n == 64:
		return uint128.New(u.Lo, 0)
	case n < 128:
		return uint128.New(u.Lo, u.Hi&(1<<uint(n-64)-1))
	}
	return u
}

// FillAbove sets every bit at position n and higher.
func FillAbove(u uint128.Uint128, n int) uint128.Uint128 {
	switch {
	case n <= 0:
		return uint128.Max
	case n < 64:
		return uint128.New(u.Lo|^(1<<uint(n)-1), ^uint64(0))
	case n < 128:
		return uint128.New(u.Lo, u.Hi|^(1<<uint(n-64)-1))
	}
	return u
}

// SignExtend treats the n low bits of u as a two's complement number and
// extends its sign to 128 bits.
func SignExtend(u uint128.Uint128, n int) uint128.Uint128 {
	if n <= 0 || n >= 128 {
		return u
	}
	u = Low(u, n)
	if Bit(u, n-1) {
		return FillAbove(u, n)
	}
	return u
}

// Bit reports whether bit i of u is set.
func Bit(u uint128.Uint128, i int) bool {
	switch {
	case i < 0 || i >= 128:
		return false
	case i < 64:
		return u.Lo>>uint(i)&1 == 1
	}
	return u.Hi>>uint(i-64)&1 == 1
}

// Negative reports whether the top bit of u is set.
func Negative(u uint128.Uint128) bool {
	return Bit(u, 127)
}

// Neg returns the two's complement negation of u.
func Neg(u uint128.Uint128) uint128.Uint128 {
	lo, borrow := bits.Sub64(0, u.Lo, 0)
	hi, _ := bits.Sub64(0, u.Hi, borrow)
	return uint128.New(lo, hi)
}

// Magnitude returns |u| for a sign-extended two's complement u.
func Magnitude(u uint128.Uint128) uint128.Uint128 {
	if Negative(u) {
		return Neg(u)
	}
	return u
}

// SignedLen returns the two's complement width needed for the
// sign-extended u, sign bit included.
func SignedLen(u uint128.Uint128) int {
	if Negative(u) {
		return Len(uint128.New(^u.Lo, ^u.Hi)) + 1
	}
	return Len(u) + 1
}

// FromInt64 sign-extends v to 128 bits.
func FromInt64(v int64) uint128.Uint128 {
	hi := uint64(0)
	if v < 0 {
		hi = ^uint64(0)
	}
	return uint128.New(uint64(v), hi)
}
