package transcode

import (
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// Node is the document form of one value. Scalars carry their payload as
// a string so 128-bit integers survive every document format.
//
//	{type: u8, value: "16"}
//	{type: option, elem: u8, some: {type: u8, value: "7"}}
//	{type: struct, fields: [{type: bool, value: "true"}]}
//	{type: array, items: [{type: char, value: "a"}]}
type Node struct {
	Some   *Node  `yaml:"some,omitempty" cbor:"some,omitempty"`
	Type   string `yaml:"type" cbor:"type"`
	Value  string `yaml:"value,omitempty" cbor:"value,omitempty"`
	Elem   string `yaml:"elem,omitempty" cbor:"elem,omitempty"`
	Fields []Node `yaml:"fields,omitempty" cbor:"fields,omitempty"`
	Items  []Node `yaml:"items,omitempty" cbor:"items,omitempty"`
}

// Document is a run of values.
type Document struct {
	Values []Node `yaml:"values" cbor:"values"`
}

// FromValue converts v to its document form.
func FromValue(v value.Value) (Node, error) {
	switch t := v.Tag(); {
	case t == tag.Bool:
		return Node{Type: t.String(), Value: strconv.FormatBool(v.Bool())}, nil
	case t == tag.U128:
		return Node{Type: t.String(), Value: v.Uint128().String()}, nil
	case t == tag.I128:
		return Node{Type: t.String(), Value: v.Int128().String()}, nil
	case t.IsUnsigned():
		return Node{Type: t.String(), Value: strconv.FormatUint(v.Uint(), 10)}, nil
	case t.IsSigned():
		return Node{Type: t.String(), Value: strconv.FormatInt(v.Int(), 10)}, nil
	case t == tag.Char:
		if !utf8.ValidRune(v.Char()) {
			return Node{}, errors.New(errors.PhaseEncode, errors.KindInvalidUTF8).
				Value(uint32(v.Char())).
				Detail("%#x is not a valid code point", uint32(v.Char())).
				Build()
		}
		return Node{Type: t.String(), Value: string(v.Char())}, nil
	case t == tag.Float:
		w := v.FloatWidth()
		return Node{Type: "f" + strconv.Itoa(w), Value: strconv.FormatFloat(v.Float(), 'g', -1, w)}, nil
	case t == tag.Struct:
		fields, err := fromValues(v.Fields(), "field")
		return Node{Type: t.String(), Fields: fields}, err
	case t == tag.Array:
		items, err := fromValues(v.Items(), "")
		return Node{Type: t.String(), Items: items}, err
	case t == tag.Option:
		n := Node{Type: t.String(), Elem: v.ElemType().String()}
		if inner, ok := v.Elem(); ok {
			some, err := FromValue(inner)
			if err != nil {
				return Node{}, errors.WithPath(err, "some")
			}
			n.Some = &some
		}
		return n, nil
	}
	return Node{}, errors.Unsupported(errors.PhaseEncode, "no document form for "+v.Tag().String())
}

func fromValues(vs []value.Value, prefix string) ([]Node, error) {
	out := make([]Node, len(vs))
	for i, v := range vs {
		n, err := FromValue(v)
		if err != nil {
			return nil, errors.WithPath(err, prefix+"["+strconv.Itoa(i)+"]")
		}
		out[i] = n
	}
	return out, nil
}

// ToValue converts n back to a value.
func (n Node) ToValue() (value.Value, error) {
	switch n.Type {
	case "struct":
		fields, err := toValues(n.Fields, "field")
		if err != nil {
			return value.Value{}, err
		}
		return value.Struct(fields...), nil
	case "array":
		items, err := toValues(n.Items, "")
		if err != nil {
			return value.Value{}, err
		}
		return value.Array(items...), nil
	case "option":
		return n.option()
	case "f32", "f64":
		bits := 32
		if n.Type == "f64" {
			bits = 64
		}
		f, err := strconv.ParseFloat(n.Value, bits)
		if err != nil {
			return value.Value{}, n.invalid(err)
		}
		if bits == 32 {
			return value.Float32(float32(f)), nil
		}
		return value.Float64(f), nil
	case "char":
		r, size := utf8.DecodeRuneInString(n.Value)
		if r == utf8.RuneError && size <= 1 || size != len(n.Value) {
			return value.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Type("char").
				Value(n.Value).
				Detail("char value must be exactly one code point").
				Build()
		}
		return value.Char(r), nil
	case "bool":
		switch n.Value {
		case "true":
			return value.Bool(true), nil
		case "false":
			return value.Bool(false), nil
		}
		return value.Value{}, n.invalid(nil)
	}

	t, ok := tag.Lookup(n.Type)
	if !ok || !t.IsInteger() {
		return value.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Type(n.Type).
			Detail("unknown node type %q", n.Type).
			Build()
	}
	return n.integer(t)
}

func (n Node) integer(t tag.Tag) (value.Value, error) {
	switch t {
	case tag.U128:
		u, err := value.ParseUint128(n.Value)
		if err != nil {
			return value.Value{}, n.invalid(err)
		}
		return value.Uint128(u), nil
	case tag.I128:
		i, err := value.ParseInt128(n.Value)
		if err != nil {
			return value.Value{}, n.invalid(err)
		}
		return value.Int128Value(i), nil
	}
	if t.IsUnsigned() {
		u, err := strconv.ParseUint(n.Value, 10, t.NativeBits())
		if err != nil {
			return value.Value{}, n.invalid(err)
		}
		return value.FromRaw(t, value.Uint64(u).Bits()), nil
	}
	i, err := strconv.ParseInt(n.Value, 10, t.NativeBits())
	if err != nil {
		return value.Value{}, n.invalid(err)
	}
	return value.FromRaw(t, value.Int64(i).Bits()), nil
}

func (n Node) option() (value.Value, error) {
	if n.Some != nil {
		inner, err := n.Some.ToValue()
		if err != nil {
			return value.Value{}, errors.WithPath(err, "some")
		}
		if n.Elem != "" {
			elem, err := value.ParseType(n.Elem)
			if err != nil {
				return value.Value{}, err
			}
			if !elem.Accepts(inner.Type()) {
				return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{"some"}, elem.String(), inner.Type().String())
			}
		}
		return value.Some(inner), nil
	}
	if n.Elem == "" {
		return value.Value{}, errors.InvalidData(errors.PhaseDecode, nil, "empty option needs an elem type")
	}
	elem, err := value.ParseType(n.Elem)
	if err != nil {
		return value.Value{}, err
	}
	return value.None(elem), nil
}

func (n Node) invalid(cause error) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Type(n.Type).
		Value(n.Value).
		Cause(cause).
		Detail("%q is not a valid %s", n.Value, n.Type).
		Build()
}

func toValues(ns []Node, prefix string) ([]value.Value, error) {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		v, err := n.ToValue()
		if err != nil {
			return nil, errors.WithPath(err, prefix+"["+strconv.Itoa(i)+"]")
		}
		out[i] = v
	}
	return out, nil
}
