package codec

import (
	"bytes"
	goerrors "errors"
	"math"
	"testing"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

func newDecoder(t *testing.T, data []byte, opts ...Option) *Decoder {
	t.Helper()
	d, err := NewDecoder(channel.NewReader(bytes.NewReader(data)), opts...)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return d
}

func roundTrip(t *testing.T, v value.Value, opts ...Option) value.Value {
	t.Helper()
	_, data := encodeBits(t, encodeValue(v), opts...)
	got, err := newDecoder(t, data, opts...).Decode()
	if err != nil {
		t.Fatalf("Decode(%s): %v", v, err)
	}
	return got
}

// fromBits packs a string of 0/1 (spaces ignored) MSB-first.
func fromBits(s string) []byte {
	var out []byte
	n := 0
	for _, c := range s {
		if c != '0' && c != '1' {
			continue
		}
		if n%8 == 0 {
			out = append(out, 0)
		}
		if c == '1' {
			out[n/8] |= 0x80 >> (n % 8)
		}
		n++
	}
	return out
}

func TestRoundTripPrimitives(t *testing.T) {
	vs := []value.Value{
		value.Bool(true), value.Bool(false),
		value.Uint8(0), value.Uint8(16), value.Uint8(math.MaxUint8),
		value.Uint16(math.MaxUint16),
		value.Uint32(0), value.Uint32(math.MaxUint32),
		value.Uint64(math.MaxUint32),
		value.Uint128(uint128.From64(1 << 20)),
		value.Int8(0), value.Int8(-1), value.Int8(math.MinInt8), value.Int8(math.MaxInt8),
		value.Int16(-300), value.Int16(math.MinInt16),
		value.Int32(math.MinInt32), value.Int32(math.MaxInt32),
		value.Int64(-(1 << 31)), value.Int64(1<<32 - 1),
		value.Int128Value(value.Int128From64(-123456789)),
		value.Char('a'), value.Char('é'), value.Char('€'), value.Char('😀'), value.Char(0),
		value.Float32(0), value.Float32(-1.5), value.Float32(float32(math.Inf(1))),
		value.Float32(float32(math.NaN())),
		value.Float64(0), value.Float64(math.Float64frombits(0xFFFFFFFF)),
	}
	for _, v := range vs {
		t.Run(v.String(), func(t *testing.T) {
			got := roundTrip(t, v)
			if !got.Equal(v) {
				t.Errorf("got %s, want %s", got, v)
			}
		})
	}
}

func TestRoundTripComposites(t *testing.T) {
	vs := []value.Value{
		value.Struct(),
		value.Struct(value.Uint8(16), value.Bool(true)),
		value.Struct(value.Struct(value.Char('x')), value.Array(value.Int8(-3))),
		value.None(value.Prim(tag.U8)),
		value.None(value.OptionOf(value.Prim(tag.Bool))),
		value.Some(value.Uint8(7)),
		value.Some(value.Some(value.Int16(-9))),
		value.Some(value.Struct(value.Float32(2), value.None(value.Prim(tag.Char)))),
		value.Array(),
		value.Array(value.Uint8(1), value.Uint8(2), value.Uint8(255)),
		value.Array(value.Bool(true), value.Char('q'), value.Struct()),
		value.Array(value.Array(value.Uint16(300)), value.Array()),
	}
	for _, v := range vs {
		for _, mode := range []ArrayMode{ArraySequence, ArrayPacked} {
			t.Run(mode.String()+"/"+v.String(), func(t *testing.T) {
				got := roundTrip(t, v, WithArrayMode(mode))
				if !got.Equal(v) {
					t.Errorf("got %s, want %s", got, v)
				}
			})
		}
	}
}

func TestDecodeNoneOfComposite(t *testing.T) {
	tests := []struct {
		in      value.Value
		dynamic value.Type
	}{
		{value.None(value.StructOf(value.Prim(tag.U8))), value.OptionOf(value.AnyStruct())},
		{value.None(value.ArrayOf(value.Prim(tag.U8))), value.OptionOf(value.AnyArray())},
	}
	for _, tt := range tests {
		t.Run(tt.in.Type().String(), func(t *testing.T) {
			_, data := encodeBits(t, encodeValue(tt.in))

			got, err := newDecoder(t, data).Decode()
			if err != nil {
				t.Fatal(err)
			}
			if !got.Type().Equal(tt.dynamic) {
				t.Errorf("Decode type = %s, want %s", got.Type(), tt.dynamic)
			}
			if got.Equal(tt.in) {
				t.Errorf("Decode kept the inner shape %s", got.Type())
			}

			got, err = newDecoder(t, data).DecodeAs(tt.in.Type())
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.in) {
				t.Errorf("DecodeAs = %s, want %s", got, tt.in)
			}
		})
	}
}

func TestPackedArrayRoundTrip(t *testing.T) {
	arrays := []value.Value{
		value.Array(value.Uint16(3), value.Uint16(1000), value.Uint16(0)),
		value.Array(value.Int32(-5), value.Int32(70000), value.Int32(-1)),
		value.Array(value.Char('a'), value.Char('€')),
		value.Array(value.Float64(1), value.Float64(-0.5)),
		value.Array(value.Float32(1), value.Float32(3)),
		value.Array(value.Bool(true), value.Bool(false)),
		value.Array(value.Uint128(uint128.Max)),
	}
	for _, align := range []bool{false, true} {
		for _, v := range arrays {
			var modes []string
			trace := WithTrace(func(ev Event) {
				if ev.Label == "mode" {
					modes = append(modes, ev.Text)
				}
			})
			got := roundTrip(t, v, WithArrayMode(ArrayPacked), WithAlignHeader(align), trace)
			if !got.Equal(v) {
				t.Errorf("align=%v: got %s, want %s", align, got, v)
			}
			for _, m := range modes {
				if m != "packed" {
					t.Errorf("%s written as %s", v, m)
				}
			}
		}
	}
}

func TestPackedArrayFallsBackToSequence(t *testing.T) {
	var modes []string
	trace := WithTrace(func(ev Event) {
		if ev.Label == "mode" {
			modes = append(modes, ev.Text)
		}
	})
	v := value.Array(value.Uint8(1), value.Uint16(2))
	got := roundTrip(t, v, WithArrayMode(ArrayPacked), trace)
	if !got.Equal(v) {
		t.Errorf("got %s, want %s", got, v)
	}
	// encode and decode each report the mode once
	if len(modes) != 2 || modes[0] != "sequence" {
		t.Errorf("modes = %v", modes)
	}
}

func TestDecodeAs(t *testing.T) {
	structType := value.StructOf(value.Prim(tag.U8), value.Prim(tag.Bool))

	t.Run("accepts declared order", func(t *testing.T) {
		_, data := encodeBits(t, encodeValue(value.Struct(value.Uint8(16), value.Bool(true))))
		got, err := newDecoder(t, data).DecodeAs(structType)
		if err != nil {
			t.Fatal(err)
		}
		f := got.Fields()
		if len(f) != 2 || f[0].Uint() != 16 || !f[1].Bool() {
			t.Errorf("got %s", got)
		}
	})

	t.Run("rejects reordered fields", func(t *testing.T) {
		_, data := encodeBits(t, encodeValue(value.Struct(value.Bool(true), value.Uint8(16))))
		_, err := newDecoder(t, data).DecodeAs(structType)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Fatalf("expected type_mismatch, got %v", err)
		}
		var e *errors.Error
		if goerrors.As(err, &e) && (len(e.Path) != 1 || e.Path[0] != "field[0]") {
			t.Errorf("path = %v, want [field[0]]", e.Path)
		}
	})

	t.Run("rejects omitted field", func(t *testing.T) {
		_, data := encodeBits(t, encodeValue(value.Struct(value.Uint8(16))))
		_, err := newDecoder(t, data).DecodeAs(structType)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("truncated struct", func(t *testing.T) {
		_, data := encodeBits(t, encodeValue(value.Struct(value.Uint8(16), value.Bool(true))))
		// drop the last byte, which holds the bool tag tail and payload
		_, err := newDecoder(t, data[:len(data)-1]).DecodeAs(structType)
		if !errors.HasKind(err, errors.KindTruncatedInput) {
			t.Errorf("expected truncated_input, got %v", err)
		}
	})

	t.Run("rejects wrong primitive", func(t *testing.T) {
		_, data := encodeBits(t, encodeValue(value.Uint16(1)))
		_, err := newDecoder(t, data).DecodeAs(value.Prim(tag.U8))
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("option element", func(t *testing.T) {
		_, data := encodeBits(t, encodeValue(value.Some(value.Uint8(7))))
		_, err := newDecoder(t, data).DecodeAs(value.OptionOf(value.Prim(tag.Bool)))
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("array element", func(t *testing.T) {
		_, data := encodeBits(t, encodeValue(value.Array(value.Uint8(1), value.Char('x'))))
		_, err := newDecoder(t, data).DecodeAs(value.ArrayOf(value.Prim(tag.U8)))
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})
}

func TestOptionPayloadMismatch(t *testing.T) {
	// option<u8> type tags, presence true, then a bool payload
	data := fromBits("01111 00010 00000 1 00000 1")
	_, err := newDecoder(t, data).Decode()
	if !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Errorf("expected type_mismatch, got %v", err)
	}
}

func TestOptionPresenceMustBeBool(t *testing.T) {
	// option<u8> type tags, then a u8 where the presence bool belongs
	data := fromBits("01111 00010 00010 000 0001")
	_, err := newDecoder(t, data).Decode()
	if !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Errorf("expected type_mismatch, got %v", err)
	}
}

func TestUnknownTag(t *testing.T) {
	for _, code := range []string{"10000", "10101", "11110"} {
		_, err := newDecoder(t, fromBits(code+"000")).Decode()
		if !errors.HasKind(err, errors.KindUnknownTag) {
			t.Errorf("code %s: expected unknown_tag, got %v", code, err)
		}
	}
}

func TestTruncatedInput(t *testing.T) {
	_, data := encodeBits(t, encodeValue(value.Uint32(math.MaxUint32)))
	for n := 0; n < len(data); n++ {
		_, err := newDecoder(t, data[:n]).Decode()
		if !errors.HasKind(err, errors.KindTruncatedInput) {
			t.Errorf("%d bytes: expected truncated_input, got %v", n, err)
		}
	}
}

func TestDecodeRejectsOversizedPayload(t *testing.T) {
	// u8 tag with three nibbles: 0x100 does not fit in 8 bits
	data := fromBits("00010 010 0001 0000 0000")
	_, err := newDecoder(t, data).Decode()
	if !errors.HasKind(err, errors.KindInvalidData) {
		t.Errorf("expected invalid_data, got %v", err)
	}

	// i8 tag, negative, three nibbles: -0x801 does not fit in 8 bits
	data = fromBits("01000 1 010 0111 1111 1111")
	_, err = newDecoder(t, data).Decode()
	if !errors.HasKind(err, errors.KindInvalidData) {
		t.Errorf("expected invalid_data, got %v", err)
	}
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	tests := map[string]string{
		"lone continuation": "00001 00 10000000",
		"overlong":          "00001 01 11000000 10000000",
		"class too long":    "00001 01 01100001 01100010",
	}
	for name, bits := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newDecoder(t, fromBits(bits)).Decode()
			if !errors.HasKind(err, errors.KindInvalidUTF8) {
				t.Errorf("expected invalid_utf8, got %v", err)
			}
		})
	}
}

func TestNextStopsAtEndOfStream(t *testing.T) {
	vs := []value.Value{value.Uint8(1), value.Char('z'), value.Some(value.Bool(false))}
	_, data := encodeBits(t, func(e *Encoder) error {
		for _, v := range vs {
			if err := e.Encode(v); err != nil {
				return err
			}
		}
		return e.WriteEndOfStream()
	})

	d := newDecoder(t, data)
	var got []value.Value
	for {
		v, ok, err := d.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, v)
	}
	if len(got) != len(vs) {
		t.Fatalf("got %d values, want %d", len(got), len(vs))
	}
	for i := range vs {
		if !got[i].Equal(vs[i]) {
			t.Errorf("value %d = %s, want %s", i, got[i], vs[i])
		}
	}
}

func TestDecodeRejectsBareEndOfStream(t *testing.T) {
	_, err := newDecoder(t, fromBits("11111")).Decode()
	if !errors.HasKind(err, errors.KindInvalidData) {
		t.Errorf("expected invalid_data, got %v", err)
	}
}

func TestReadFloatPrecision(t *testing.T) {
	_, data := encodeBits(t, func(e *Encoder) error { return e.WriteF32(2) })
	if _, err := newDecoder(t, data).ReadF64(); !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Errorf("ReadF64 of f32: expected type_mismatch, got %v", err)
	}
	// f64 patterns need more than the default 32 payload bits.
	_, data = encodeBits(t, func(e *Encoder) error { return e.WriteF64(2) }, WithLengthBits(5))
	if _, err := newDecoder(t, data, WithLengthBits(5)).ReadF32(); !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Errorf("ReadF32 of f64: expected type_mismatch, got %v", err)
	}
}

func TestDecoderTraceMatchesEncoder(t *testing.T) {
	v := value.Struct(value.Int16(-300), value.Some(value.Char('€')), value.Array(value.Uint8(9)))
	var enc, dec []Event
	_, data := encodeBits(t, encodeValue(v), WithTrace(func(ev Event) { enc = append(enc, ev) }))
	if _, err := newDecoder(t, data, WithTrace(func(ev Event) { dec = append(dec, ev) })).Decode(); err != nil {
		t.Fatal(err)
	}
	if len(enc) != len(dec) {
		t.Fatalf("encoder emitted %d events, decoder %d", len(enc), len(dec))
	}
	for i := range enc {
		if enc[i] != dec[i] {
			t.Errorf("event %d: encoder %+v, decoder %+v", i, enc[i], dec[i])
		}
	}
}
