package tag

import (
	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/errors"
)

// Tag identifies the shape of an encoded value.
type Tag uint8

// Bits is the fixed wire width of a tag.
const Bits = 5

const (
	Bool   Tag = 0
	Char   Tag = 1
	U8     Tag = 2
	U16    Tag = 3
	U32    Tag = 4
	U64    Tag = 5
	U128   Tag = 6
	Struct Tag = 7
	I8     Tag = 8
	I16    Tag = 9
	I32    Tag = 10
	I64    Tag = 11
	I128   Tag = 12
	Float  Tag = 13
	Array  Tag = 14
	Option Tag = 15

	// EndOfStream terminates self-describing sequences of unknown length.
	EndOfStream Tag = 1<<Bits - 1
)

var tagNames = [...]string{
	Bool:        "bool",
	Char:        "char",
	U8:          "u8",
	U16:         "u16",
	U32:         "u32",
	U64:         "u64",
	U128:        "u128",
	Struct:      "struct",
	I8:          "i8",
	I16:         "i16",
	I32:         "i32",
	I64:         "i64",
	I128:        "i128",
	Float:       "float",
	Array:       "array",
	Option:      "option",
	EndOfStream: "end",
}

var byName = func() map[string]Tag {
	m := make(map[string]Tag, len(tagNames))
	for code, name := range tagNames {
		if name != "" {
			m[name] = Tag(code)
		}
	}
	return m
}()

func (t Tag) String() string {
	if int(t) < len(tagNames) && tagNames[t] != "" {
		return tagNames[t]
	}
	return "unknown"
}

// Valid reports whether t is a registered tag.
func (t Tag) Valid() bool {
	return int(t) < len(tagNames) && tagNames[t] != ""
}

// IsPrimitive reports whether t is a scalar with no nested values.
func (t Tag) IsPrimitive() bool {
	switch t {
	case Bool, Char, Float:
		return true
	}
	return t.IsInteger()
}

func (t Tag) IsInteger() bool {
	return t.IsUnsigned() || t.IsSigned()
}

func (t Tag) IsUnsigned() bool {
	return t >= U8 && t <= U128
}

func (t Tag) IsSigned() bool {
	return t >= I8 && t <= I128
}

// NativeBits returns the declared storage width of bool and integer tags,
// and 0 for everything else.
func (t Tag) NativeBits() int {
	switch t {
	case Bool:
		return 1
	case U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32:
		return 32
	case U64, I64:
		return 64
	case U128, I128:
		return 128
	}
	return 0
}

// Lookup returns the tag registered under name.
func Lookup(name string) (Tag, bool) {
	t, ok := byName[name]
	return t, ok
}

// All returns every registered tag in code order.
func All() []Tag {
	out := make([]Tag, 0, len(byName))
	for code, name := range tagNames {
		if name != "" {
			out = append(out, Tag(code))
		}
	}
	return out
}

// Write writes t as a Bits-wide field.
func Write(w channel.BitWriter, t Tag) error {
	if !t.Valid() {
		return errors.New(errors.PhaseEncode, errors.KindUnknownTag).
			Value(uint8(t)).
			Detail("tag code %d is not registered", uint8(t)).
			Build()
	}
	return w.WriteBits(uint64(t), Bits)
}

// Read reads a Bits-wide field and rejects unregistered codes.
func Read(r channel.BitReader) (Tag, error) {
	off := channel.Position(r)
	code, err := r.ReadBits(Bits)
	if err != nil {
		return 0, err
	}
	t := Tag(code)
	if !t.Valid() {
		return 0, errors.UnknownTag(off, code)
	}
	return t, nil
}
