package value

import (
	"strings"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
)

// Type describes the shape of a value. Primitive types carry only a tag.
// Option types carry Elem. Struct types carry their ordered Fields, or nil
// to mean "any struct". Array types carry an optional Elem.
//
// Float types carry no precision: the precision flag is part of the payload.
type Type struct {
	Elem   *Type
	Fields []Type
	Tag    tag.Tag
}

// Prim returns the primitive type for t.
func Prim(t tag.Tag) Type {
	return Type{Tag: t}
}

// OptionOf returns option<elem>.
func OptionOf(elem Type) Type {
	return Type{Tag: tag.Option, Elem: &elem}
}

// StructOf returns a struct type with the given ordered fields.
func StructOf(fields ...Type) Type {
	if fields == nil {
		fields = []Type{}
	}
	return Type{Tag: tag.Struct, Fields: fields}
}

// AnyStruct matches every struct shape.
func AnyStruct() Type {
	return Type{Tag: tag.Struct}
}

// ArrayOf returns array<elem>.
func ArrayOf(elem Type) Type {
	return Type{Tag: tag.Array, Elem: &elem}
}

// AnyArray matches every array.
func AnyArray() Type {
	return Type{Tag: tag.Array}
}

func (t Type) String() string {
	var b strings.Builder
	t.format(&b)
	return b.String()
}

func (t Type) format(b *strings.Builder) {
	switch t.Tag {
	case tag.Option:
		b.WriteString("option<")
		if t.Elem != nil {
			t.Elem.format(b)
		}
		b.WriteByte('>')
	case tag.Array:
		b.WriteString("array")
		if t.Elem != nil {
			b.WriteByte('<')
			t.Elem.format(b)
			b.WriteByte('>')
		}
	case tag.Struct:
		b.WriteString("struct")
		if t.Fields != nil {
			b.WriteByte('{')
			for i, f := range t.Fields {
				if i > 0 {
					b.WriteByte(',')
				}
				f.format(b)
			}
			b.WriteByte('}')
		}
	default:
		b.WriteString(t.Tag.String())
	}
}

// Equal reports whether t and o describe exactly the same shape.
func (t Type) Equal(o Type) bool {
	if t.Tag != o.Tag {
		return false
	}
	if (t.Elem == nil) != (o.Elem == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*o.Elem) {
		return false
	}
	if (t.Fields == nil) != (o.Fields == nil) || len(t.Fields) != len(o.Fields) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

// Accepts reports whether a value of type got may be decoded where t is
// expected. Unspecified parts (nil Elem, nil Fields) on either side match
// anything.
func (t Type) Accepts(got Type) bool {
	if t.Tag != got.Tag {
		return false
	}
	if t.Elem != nil && got.Elem != nil && !t.Elem.Accepts(*got.Elem) {
		return false
	}
	if t.Fields != nil && got.Fields != nil {
		if len(t.Fields) != len(got.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Accepts(got.Fields[i]) {
				return false
			}
		}
	}
	return true
}

// Refine fills the unspecified parts of t from got. Callers check Accepts
// first.
func (t Type) Refine(got Type) Type {
	out := t
	switch {
	case t.Elem == nil && got.Elem != nil:
		out.Elem = got.Elem
	case t.Elem != nil && got.Elem != nil:
		e := t.Elem.Refine(*got.Elem)
		out.Elem = &e
	}
	if t.Fields == nil && got.Fields != nil {
		out.Fields = got.Fields
	}
	return out
}

// ParseType parses the notation produced by Type.String. "f32" and "f64"
// are accepted as spellings of float.
//
//	u8  option<u8>  struct{u8,bool}  struct  array  array<char>
func ParseType(s string) (Type, error) {
	p := typeParser{src: s}
	t, err := p.parse()
	if err != nil {
		return Type{}, err
	}
	if p.pos != len(p.src) {
		return Type{}, p.fail("unexpected trailing input")
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) parse() (Type, error) {
	name := p.ident()
	switch name {
	case "":
		return Type{}, p.fail("expected type name")
	case "option":
		if !p.consume('<') {
			return Type{}, p.fail("expected '<' after option")
		}
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if !p.consume('>') {
			return Type{}, p.fail("expected '>'")
		}
		return OptionOf(elem), nil
	case "array":
		if !p.consume('<') {
			return AnyArray(), nil
		}
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if !p.consume('>') {
			return Type{}, p.fail("expected '>'")
		}
		return ArrayOf(elem), nil
	case "struct":
		if !p.consume('{') {
			return AnyStruct(), nil
		}
		fields := []Type{}
		if p.consume('}') {
			return StructOf(fields...), nil
		}
		for {
			f, err := p.parse()
			if err != nil {
				return Type{}, err
			}
			fields = append(fields, f)
			if p.consume('}') {
				return StructOf(fields...), nil
			}
			if !p.consume(',') {
				return Type{}, p.fail("expected ',' or '}'")
			}
		}
	case "f32", "f64":
		return Prim(tag.Float), nil
	}
	t, ok := tag.Lookup(name)
	if !ok || !t.IsPrimitive() {
		return Type{}, p.fail("unknown type " + name)
	}
	return Prim(t), nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) consume(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) fail(msg string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(p.src).
		Detail("type %q at offset %d: %s", p.src, p.pos, msg).
		Build()
}
