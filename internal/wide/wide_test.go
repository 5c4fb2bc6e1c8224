package wide

import (
	"math"
	"testing"

	"lukechampine.com/uint128"
)

func TestLen(t *testing.T) {
	tests := []struct {
		u    uint128.Uint128
		want int
	}{
		{uint128.Zero, 0},
		{uint128.From64(1), 1},
		{uint128.From64(16), 5},
		{uint128.From64(math.MaxUint32), 32},
		{uint128.From64(math.MaxUint64), 64},
		{uint128.New(0, 1), 65},
		{uint128.Max, 128},
	}
	for _, tt := range tests {
		if got := Len(tt.u); got != tt.want {
			t.Errorf("Len(%v) = %d, want %d", tt.u, got, tt.want)
		}
	}
}

func TestLow(t *testing.T) {
	tests := []struct {
		n    int
		want uint128.Uint128
	}{
		{0, uint128.Zero},
		{4, uint128.From64(0xF)},
		{64, uint128.From64(math.MaxUint64)},
		{72, uint128.New(math.MaxUint64, 0xFF)},
		{128, uint128.Max},
	}
	for _, tt := range tests {
		if got := Low(uint128.Max, tt.n); !got.Equals(tt.want) {
			t.Errorf("Low(max, %d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		name string
		u    uint128.Uint128
		n    int
		want uint128.Uint128
	}{
		{"positive nibble", uint128.From64(0x7), 4, uint128.From64(0x7)},
		{"negative nibble", uint128.From64(0x8), 4, FromInt64(-8)},
		{"negative byte", uint128.From64(0xF0), 8, FromInt64(-16)},
		{"drops garbage above n", uint128.From64(0x1F0), 8, FromInt64(-16)},
		{"i64 min", uint128.From64(1 << 63), 64, FromInt64(math.MinInt64)},
		{"full width unchanged", uint128.Max, 128, uint128.Max},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SignExtend(tt.u, tt.n); !got.Equals(tt.want) {
				t.Errorf("SignExtend = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFillAbove(t *testing.T) {
	// low nibble 0111 of -9, sign known negative
	if got := FillAbove(uint128.From64(0x7), 4); !got.Equals(FromInt64(-9)) {
		t.Errorf("FillAbove = %v, want -9", got)
	}
	if got := FillAbove(uint128.From64(0x7), 70); got.Hi != 0xFFFFFFFFFFFFFFC0 {
		t.Errorf("FillAbove(70).Hi = %x", got.Hi)
	}
}

func TestNegMagnitude(t *testing.T) {
	tests := []struct {
		v    int64
		want uint64
	}{
		{0, 0},
		{5, 5},
		{-5, 5},
		{-128, 128},
		{math.MinInt64, 1 << 63},
	}
	for _, tt := range tests {
		got := Magnitude(FromInt64(tt.v))
		if !got.Equals(uint128.From64(tt.want)) {
			t.Errorf("Magnitude(%d) = %v, want %d", tt.v, got, tt.want)
		}
	}
	if !Neg(uint128.From64(1)).Equals(uint128.Max) {
		t.Error("Neg(1) should be all ones")
	}
}

func TestSignedLen(t *testing.T) {
	tests := []struct {
		v    int64
		want int
	}{
		{0, 1},
		{1, 2},
		{-1, 1},
		{127, 8},
		{-128, 8},
		{128, 9},
		{-129, 9},
		{math.MinInt64, 64},
		{math.MaxInt64, 64},
	}
	for _, tt := range tests {
		if got := SignedLen(FromInt64(tt.v)); got != tt.want {
			t.Errorf("SignedLen(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestBit(t *testing.T) {
	u := uint128.New(1, 1)
	if !Bit(u, 0) || !Bit(u, 64) || Bit(u, 1) || Bit(u, 200) {
		t.Error("Bit mismatch")
	}
	if Negative(u) || !Negative(uint128.Max) {
		t.Error("Negative mismatch")
	}
}
