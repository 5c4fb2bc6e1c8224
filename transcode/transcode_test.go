package transcode

import (
	"bytes"
	goerrors "errors"
	"math"
	"testing"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

func sampleValues() []value.Value {
	return []value.Value{
		value.Bool(true),
		value.Uint8(16),
		value.Uint64(math.MaxUint64),
		value.Uint128(uint128.Max),
		value.Int8(math.MinInt8),
		value.Int128Value(value.Int128From64(-1 << 62)),
		value.Char('€'),
		value.Float32(0.1),
		value.Float64(-2.5e300),
		value.Struct(value.Char('a'), value.None(value.Prim(tag.I16))),
		value.Some(value.Some(value.Uint16(9))),
		value.None(value.StructOf(value.Prim(tag.U8))),
		value.Array(value.Int32(-1), value.Int32(2)),
		value.Array(),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatYAML, FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			vs := sampleValues()
			data, err := Marshal(f, vs)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Unmarshal(f, data)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(vs) {
				t.Fatalf("got %d values, want %d", len(got), len(vs))
			}
			for i := range vs {
				if !got[i].Equal(vs[i]) {
					t.Errorf("[%d] = %s, want %s", i, got[i], vs[i])
				}
			}
		})
	}
}

func TestCBORIsDeterministic(t *testing.T) {
	a, err := Marshal(FormatCBOR, sampleValues())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(FormatCBOR, sampleValues())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal documents encoded differently")
	}
}

func TestFromValue(t *testing.T) {
	tests := []struct {
		v    value.Value
		want Node
	}{
		{value.Uint8(16), Node{Type: "u8", Value: "16"}},
		{value.Int16(-300), Node{Type: "i16", Value: "-300"}},
		{value.Float32(1.5), Node{Type: "f32", Value: "1.5"}},
		{value.Float64(0.1), Node{Type: "f64", Value: "0.1"}},
		{value.Char('x'), Node{Type: "char", Value: "x"}},
		{value.None(value.Prim(tag.U8)), Node{Type: "option", Elem: "u8"}},
	}
	for _, tt := range tests {
		t.Run(tt.v.String(), func(t *testing.T) {
			got, err := FromValue(tt.v)
			if err != nil {
				t.Fatal(err)
			}
			if got.Type != tt.want.Type || got.Value != tt.want.Value || got.Elem != tt.want.Elem {
				t.Errorf("FromValue = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnmarshalYAML(t *testing.T) {
	src := `
values:
  - type: u8
    value: "200"
  - type: struct
    fields:
      - {type: char, value: "é"}
      - {type: option, elem: i16}
  - type: option
    some: {type: bool, value: "false"}
`
	got, err := Unmarshal(FormatYAML, []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := []value.Value{
		value.Uint8(200),
		value.Struct(value.Char('é'), value.None(value.Prim(tag.I16))),
		value.Some(value.Bool(false)),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d values", len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind errors.Kind
	}{
		{"u8 out of range", `{values: [{type: u8, value: "256"}]}`, errors.KindInvalidData},
		{"negative unsigned", `{values: [{type: u32, value: "-1"}]}`, errors.KindInvalidData},
		{"unknown type", `{values: [{type: string, value: "x"}]}`, errors.KindInvalidData},
		{"two runes", `{values: [{type: char, value: "ab"}]}`, errors.KindInvalidData},
		{"bad bool", `{values: [{type: bool, value: "yes"}]}`, errors.KindInvalidData},
		{"none without elem", `{values: [{type: option}]}`, errors.KindInvalidData},
		{"some of wrong elem", `{values: [{type: option, elem: u8, some: {type: bool, value: "true"}}]}`, errors.KindTypeMismatch},
		{"unknown field", `{values: [{type: u8, value: "1", width: 3}]}`, errors.KindInvalidData},
		{"not yaml", `values: [`, errors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(FormatYAML, []byte(tt.src))
			if !errors.HasKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestErrorPath(t *testing.T) {
	doc := Document{Values: []Node{
		{Type: "u8", Value: "1"},
		{Type: "struct", Fields: []Node{{Type: "i8", Value: "x"}}},
	}}
	_, err := doc.ToValues()
	if !errors.HasKind(err, errors.KindInvalidData) {
		t.Fatalf("expected invalid_data, got %v", err)
	}
	var e *errors.Error
	if !goerrors.As(err, &e) {
		t.Fatalf("not an *errors.Error: %v", err)
	}
	if len(e.Path) != 2 || e.Path[0] != "values[1]" || e.Path[1] != "field[0]" {
		t.Errorf("path = %v", e.Path)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"yaml": FormatYAML, "yml": FormatYAML, "cbor": FormatCBOR} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("json"); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}
