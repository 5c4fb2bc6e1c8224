package value

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/internal/wide"
)

// Int128 is a signed 128-bit integer in two's complement.
type Int128 struct {
	Hi int64
	Lo uint64
}

// Int128From64 sign-extends v.
func Int128From64(v int64) Int128 {
	return Int128FromBits(wide.FromInt64(v))
}

// Int128FromBits reinterprets a 128-bit pattern.
func Int128FromBits(u uint128.Uint128) Int128 {
	return Int128{Hi: int64(u.Hi), Lo: u.Lo}
}

// Bits returns the two's complement pattern.
func (i Int128) Bits() uint128.Uint128 {
	return uint128.New(i.Lo, uint64(i.Hi))
}

// Sign returns -1, 0 or 1.
func (i Int128) Sign() int {
	switch {
	case i.Hi < 0:
		return -1
	case i.Hi == 0 && i.Lo == 0:
		return 0
	}
	return 1
}

// Big converts i to a big.Int.
func (i Int128) Big() *big.Int {
	mag := wide.Magnitude(i.Bits())
	n := new(big.Int).SetUint64(mag.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(mag.Lo))
	if i.Sign() < 0 {
		n.Neg(n)
	}
	return n
}

func (i Int128) String() string {
	return i.Big().String()
}

var (
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// Int128FromBig converts n, failing when it does not fit.
func Int128FromBig(n *big.Int) (Int128, error) {
	if n.Cmp(minInt128) < 0 || n.Cmp(maxInt128) > 0 {
		return Int128{}, errors.WidthOverflow(errors.PhaseConfig, "i128", n, n.BitLen()+1, 128)
	}
	mag := new(big.Int).Abs(n)
	u := uint128.New(new(big.Int).And(mag, new(big.Int).SetUint64(^uint64(0))).Uint64(), new(big.Int).Rsh(mag, 64).Uint64())
	if n.Sign() < 0 {
		u = wide.Neg(u)
	}
	return Int128FromBits(u), nil
}

// ParseInt128 parses a base-10 signed integer.
func ParseInt128(s string) (Int128, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Int128{}, errors.InvalidInput(errors.PhaseConfig, "invalid i128 literal "+s)
	}
	return Int128FromBig(n)
}

// Uint128FromBig converts n, failing when it is negative or too wide.
func Uint128FromBig(n *big.Int) (uint128.Uint128, error) {
	if n.Sign() < 0 || n.Cmp(maxUint128) > 0 {
		return uint128.Zero, errors.WidthOverflow(errors.PhaseConfig, "u128", n, n.BitLen(), 128)
	}
	lo := new(big.Int).And(n, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(n, 64).Uint64()
	return uint128.New(lo, hi), nil
}

// ParseUint128 parses a base-10 unsigned integer.
func ParseUint128(s string) (uint128.Uint128, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return uint128.Zero, errors.InvalidInput(errors.PhaseConfig, "invalid u128 literal "+s)
	}
	return Uint128FromBig(n)
}
