package value

import (
	"math"
	"testing"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
)

func TestConstructorsAndAccessors(t *testing.T) {
	if !Bool(true).Bool() || Bool(false).Bool() {
		t.Error("Bool accessor mismatch")
	}
	if got := Uint8(200).Uint(); got != 200 {
		t.Errorf("Uint8 = %d", got)
	}
	if got := Uint64(math.MaxUint64).Uint(); got != math.MaxUint64 {
		t.Errorf("Uint64 = %d", got)
	}
	if got := Int8(-3).Int(); got != -3 {
		t.Errorf("Int8 = %d", got)
	}
	if got := Int64(math.MinInt64).Int(); got != math.MinInt64 {
		t.Errorf("Int64 = %d", got)
	}
	if got := Char('é').Char(); got != 'é' {
		t.Errorf("Char = %q", got)
	}
	if got := Float32(1.5).Float(); got != 1.5 {
		t.Errorf("Float32 = %v", got)
	}
	if Float32(1.5).IsDouble() || !Float64(1.5).IsDouble() {
		t.Error("precision mismatch")
	}
	big := uint128.New(1, 2)
	if got := Uint128(big).Uint128(); !got.Equals(big) {
		t.Errorf("Uint128 = %v", got)
	}
	neg := Int128From64(-7)
	if got := Int128Value(neg).Int128(); got != neg {
		t.Errorf("Int128 = %v", got)
	}
}

func TestFromRaw(t *testing.T) {
	tests := []struct {
		name string
		tag  tag.Tag
		raw  uint64
		want Value
	}{
		{"u8", tag.U8, 0x1FF, Uint8(0xFF)},
		{"i8 negative", tag.I8, 0x80, Int8(-128)},
		{"i16 positive", tag.I16, 0x7FFF, Int16(math.MaxInt16)},
		{"i32 minus one", tag.I32, 0xFFFFFFFF, Int32(-1)},
		{"bool", tag.Bool, 1, Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromRaw(tt.tag, uint128.From64(tt.raw))
			if !got.Equal(tt.want) {
				t.Errorf("FromRaw = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Uint8(1), "u8"},
		{Float64(1), "float"},
		{Some(Uint8(7)), "option<u8>"},
		{None(Prim(tag.I32)), "option<i32>"},
		{Struct(Uint8(16), Bool(true)), "struct{u8,bool}"},
		{Struct(), "struct{}"},
		{Array(Uint16(1), Uint16(2)), "array<u16>"},
		{Array(Uint16(1), Bool(true)), "array"},
		{Array(), "array"},
		{Some(Some(Char('x'))), "option<option<char>>"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.v.Type().String(); got != tt.want {
				t.Errorf("Type() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	nan := Float64(math.NaN())
	if !nan.Equal(nan) {
		t.Error("NaN should equal itself by bit pattern")
	}
	if Float32(1).Equal(Float64(1)) {
		t.Error("different precisions must not be equal")
	}
	if Uint8(1).Equal(Uint16(1)) {
		t.Error("different tags must not be equal")
	}
	if None(Prim(tag.U8)).Equal(None(Prim(tag.U16))) {
		t.Error("nones of different payload types must not be equal")
	}
	if !Struct(Uint8(1), Some(Bool(true))).Equal(Struct(Uint8(1), Some(Bool(true)))) {
		t.Error("equal structs reported different")
	}
	if Struct(Uint8(1)).Equal(Struct(Uint8(1), Uint8(2))) {
		t.Error("structs of different length reported equal")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Bool(true), "true"},
		{Uint8(16), "u8(16)"},
		{Int16(-5), "i16(-5)"},
		{Char('a'), "'a'"},
		{Float32(0.5), "f32(0.5)"},
		{Some(Uint8(7)), "some(u8(7))"},
		{None(Prim(tag.U8)), "none<u8>"},
		{Struct(Uint8(16), Bool(true)), "{u8(16), true}"},
		{Array(Bool(false)), "[false]"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestElem(t *testing.T) {
	if _, ok := None(Prim(tag.U8)).Elem(); ok {
		t.Error("None should have no payload")
	}
	e, ok := Some(Uint8(7)).Elem()
	if !ok || !e.Equal(Uint8(7)) {
		t.Errorf("Elem = %v, %v", e, ok)
	}
	if Uint8(1).Fields() != nil || Uint8(1).Items() != nil {
		t.Error("primitive has no fields or items")
	}
}

func TestParseType(t *testing.T) {
	good := []string{
		"bool", "u8", "u128", "i64", "char", "float",
		"option<u8>", "option<option<i8>>", "struct", "struct{}",
		"struct{u8,bool}", "struct{option<u8>,struct{char}}",
		"array", "array<u32>",
	}
	for _, s := range good {
		t.Run(s, func(t *testing.T) {
			typ, err := ParseType(s)
			if err != nil {
				t.Fatalf("ParseType(%q): %v", s, err)
			}
			if typ.String() != s {
				t.Errorf("round trip = %q", typ.String())
			}
		})
	}

	if typ, err := ParseType("struct{ f32 , f64 }"); err != nil || typ.String() != "struct{float,float}" {
		t.Errorf("ParseType with spaces = %v, %v", typ, err)
	}

	bad := []string{"", "string", "end", "option", "option<u8", "struct{u8", "struct{u8;bool}", "u8 extra"}
	for _, s := range bad {
		if _, err := ParseType(s); !errors.HasKind(err, errors.KindInvalidInput) {
			t.Errorf("ParseType(%q) error = %v, want invalid_input", s, err)
		}
	}
}

func TestAcceptsAndRefine(t *testing.T) {
	want := StructOf(Prim(tag.U8), OptionOf(AnyStruct()))
	wire := AnyStruct()
	if !want.Accepts(wire) {
		t.Error("any struct on the wire should be accepted")
	}
	if want.Accepts(Prim(tag.U8)) {
		t.Error("different tags must not be accepted")
	}

	opt := OptionOf(Prim(tag.U8))
	if opt.Accepts(OptionOf(Prim(tag.Bool))) {
		t.Error("option payload mismatch must not be accepted")
	}

	arr := AnyArray().Refine(ArrayOf(Prim(tag.Char)))
	if arr.String() != "array<char>" {
		t.Errorf("Refine = %s", arr)
	}
	if got := want.Refine(wire); !got.Equal(want) {
		t.Errorf("Refine should keep the more specific type, got %s", got)
	}
}
