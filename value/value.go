package value

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/internal/wide"
	"github.com/wippyai/sml/tag"
)

// Value is an immutable tagged variant holding any SML value.
//
// Integers are stored as 128-bit patterns: unsigned values zero-extended,
// signed values sign-extended. Floats store their IEEE-754 bit pattern,
// chars their code point and bools 0 or 1.
type Value struct {
	elem   *Type
	items  []Value
	bits   uint128.Uint128
	tag    tag.Tag
	double bool
}

func Bool(b bool) Value {
	v := Value{tag: tag.Bool}
	if b {
		v.bits = uint128.From64(1)
	}
	return v
}

func Uint8(x uint8) Value   { return Value{tag: tag.U8, bits: uint128.From64(uint64(x))} }
func Uint16(x uint16) Value { return Value{tag: tag.U16, bits: uint128.From64(uint64(x))} }
func Uint32(x uint32) Value { return Value{tag: tag.U32, bits: uint128.From64(uint64(x))} }
func Uint64(x uint64) Value { return Value{tag: tag.U64, bits: uint128.From64(x)} }

func Uint128(x uint128.Uint128) Value { return Value{tag: tag.U128, bits: x} }

func Int8(x int8) Value   { return Value{tag: tag.I8, bits: wide.FromInt64(int64(x))} }
func Int16(x int16) Value { return Value{tag: tag.I16, bits: wide.FromInt64(int64(x))} }
func Int32(x int32) Value { return Value{tag: tag.I32, bits: wide.FromInt64(int64(x))} }
func Int64(x int64) Value { return Value{tag: tag.I64, bits: wide.FromInt64(x)} }

// Int128Value returns an i128 value.
func Int128Value(x Int128) Value { return Value{tag: tag.I128, bits: x.Bits()} }

// Char returns a char value. Invalid runes are kept as-is and rejected by
// the encoder.
func Char(r rune) Value {
	return Value{tag: tag.Char, bits: uint128.From64(uint64(uint32(r)))}
}

func Float32(f float32) Value {
	return Value{tag: tag.Float, bits: uint128.From64(uint64(math.Float32bits(f)))}
}

func Float64(f float64) Value {
	return Value{tag: tag.Float, bits: uint128.From64(math.Float64bits(f)), double: true}
}

// FloatBits builds a float from its raw pattern.
func FloatBits(raw uint64, double bool) Value {
	if !double {
		raw &= math.MaxUint32
	}
	return Value{tag: tag.Float, bits: uint128.From64(raw), double: double}
}

// FromRaw builds a bool or integer value from its native-width bit pattern.
// Signed patterns are sign-extended; bits above the native width are
// ignored.
func FromRaw(t tag.Tag, raw uint128.Uint128) Value {
	n := t.NativeBits()
	if t.IsSigned() {
		return Value{tag: t, bits: wide.SignExtend(raw, n)}
	}
	return Value{tag: t, bits: wide.Low(raw, n)}
}

// Struct returns a struct value with ordered fields.
func Struct(fields ...Value) Value {
	return Value{tag: tag.Struct, items: append([]Value{}, fields...)}
}

// Some returns a present option holding v.
func Some(v Value) Value {
	elem := v.Type()
	return Value{tag: tag.Option, elem: &elem, items: []Value{v}}
}

// None returns an empty option of the given payload type.
func None(elem Type) Value {
	return Value{tag: tag.Option, elem: &elem}
}

// Array returns an array value.
func Array(items ...Value) Value {
	return Value{tag: tag.Array, items: append([]Value{}, items...)}
}

// Tag returns the value's tag.
func (v Value) Tag() tag.Tag {
	return v.tag
}

// Type returns the value's shape. Arrays whose items all share one type
// report it as their element type.
func (v Value) Type() Type {
	switch v.tag {
	case tag.Option:
		return OptionOf(*v.elem)
	case tag.Struct:
		fields := make([]Type, len(v.items))
		for i, f := range v.items {
			fields[i] = f.Type()
		}
		return StructOf(fields...)
	case tag.Array:
		if len(v.items) == 0 {
			return AnyArray()
		}
		elem := v.items[0].Type()
		for _, it := range v.items[1:] {
			if !it.Type().Equal(elem) {
				return AnyArray()
			}
		}
		return ArrayOf(elem)
	}
	return Prim(v.tag)
}

// Bool returns the boolean payload.
func (v Value) Bool() bool {
	return v.bits.Lo&1 == 1
}

// Uint returns the low 64 bits of an unsigned payload.
func (v Value) Uint() uint64 {
	return v.bits.Lo
}

// Uint128 returns the full unsigned payload.
func (v Value) Uint128() uint128.Uint128 {
	return v.bits
}

// Int returns a signed payload truncated to 64 bits.
func (v Value) Int() int64 {
	return int64(v.bits.Lo)
}

// Int128 returns the full signed payload.
func (v Value) Int128() Int128 {
	return Int128FromBits(v.bits)
}

// Char returns the char payload.
func (v Value) Char() rune {
	return rune(uint32(v.bits.Lo))
}

// Float returns a float payload widened to float64.
func (v Value) Float() float64 {
	if v.double {
		return math.Float64frombits(v.bits.Lo)
	}
	return float64(math.Float32frombits(uint32(v.bits.Lo)))
}

// IsDouble reports whether a float value has double precision.
func (v Value) IsDouble() bool {
	return v.double
}

// FloatWidth returns 64 for doubles and 32 for singles.
func (v Value) FloatWidth() int {
	if v.double {
		return 64
	}
	return 32
}

// Bits returns the stored 128-bit pattern: sign-extended for signed
// integers, raw IEEE-754 bits for floats, the code point for chars.
func (v Value) Bits() uint128.Uint128 {
	return v.bits
}

// Fields returns the struct fields.
func (v Value) Fields() []Value {
	if v.tag != tag.Struct {
		return nil
	}
	return v.items
}

// Items returns the array items.
func (v Value) Items() []Value {
	if v.tag != tag.Array {
		return nil
	}
	return v.items
}

// Elem returns an option's payload and whether it is present.
func (v Value) Elem() (Value, bool) {
	if v.tag != tag.Option || len(v.items) == 0 {
		return Value{}, false
	}
	return v.items[0], true
}

// ElemType returns an option's payload type.
func (v Value) ElemType() Type {
	if v.elem == nil {
		return Type{}
	}
	return *v.elem
}

// Equal reports structural equality. Floats compare by bit pattern, so a
// NaN equals itself.
func (v Value) Equal(o Value) bool {
	if v.tag != o.tag || !v.bits.Equals(o.bits) || v.double != o.double {
		return false
	}
	if v.tag == tag.Option && !v.elem.Equal(*o.elem) {
		return false
	}
	if len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if !v.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.tag {
	case tag.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case tag.U8, tag.U16, tag.U32, tag.U64, tag.U128:
		b.WriteString(v.tag.String())
		b.WriteByte('(')
		b.WriteString(v.bits.String())
		b.WriteByte(')')
	case tag.I8, tag.I16, tag.I32, tag.I64, tag.I128:
		b.WriteString(v.tag.String())
		b.WriteByte('(')
		b.WriteString(v.Int128().String())
		b.WriteByte(')')
	case tag.Char:
		r := v.Char()
		if utf8.ValidRune(r) {
			b.WriteString(strconv.QuoteRune(r))
		} else {
			b.WriteString("char(" + strconv.FormatUint(uint64(uint32(r)), 16) + ")")
		}
	case tag.Float:
		if v.double {
			b.WriteString("f64(" + strconv.FormatFloat(v.Float(), 'g', -1, 64) + ")")
		} else {
			b.WriteString("f32(" + strconv.FormatFloat(v.Float(), 'g', -1, 32) + ")")
		}
	case tag.Option:
		if e, ok := v.Elem(); ok {
			b.WriteString("some(")
			e.format(b)
			b.WriteByte(')')
		} else {
			b.WriteString("none<" + v.elem.String() + ">")
		}
	case tag.Struct, tag.Array:
		open, end := byte('{'), byte('}')
		if v.tag == tag.Array {
			open, end = '[', ']'
		}
		b.WriteByte(open)
		for i, it := range v.items {
			if i > 0 {
				b.WriteString(", ")
			}
			it.format(b)
		}
		b.WriteByte(end)
	default:
		b.WriteString(v.tag.String())
	}
}
