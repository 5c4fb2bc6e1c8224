package codec

import (
	"lukechampine.com/uint128"

	"github.com/wippyai/sml/channel"
)

// NibbleBits is the length granularity of self-describing integers.
const NibbleBits = 4

// Nibbles returns the nibble count the self-describing rule writes for a
// payload with sig significant bits. Zero takes one nibble.
func Nibbles(sig int) int {
	return max(1, (sig+NibbleBits-1)/NibbleBits)
}

// writeWide writes the n low bits of u, most significant first.
func writeWide(w channel.BitWriter, u uint128.Uint128, n int) error {
	if n > 64 {
		if err := w.WriteBits(u.Hi, uint8(n-64)); err != nil {
			return err
		}
		return w.WriteBits(u.Lo, 64)
	}
	return w.WriteBits(u.Lo, uint8(n))
}

// readWide reads an n-bit field written by writeWide.
func readWide(r channel.BitReader, n int) (uint128.Uint128, error) {
	if n > 64 {
		hi, err := r.ReadBits(uint8(n - 64))
		if err != nil {
			return uint128.Zero, err
		}
		lo, err := r.ReadBits(64)
		if err != nil {
			return uint128.Zero, err
		}
		return uint128.New(lo, hi), nil
	}
	lo, err := r.ReadBits(uint8(n))
	if err != nil {
		return uint128.Zero, err
	}
	return uint128.From64(lo), nil
}
