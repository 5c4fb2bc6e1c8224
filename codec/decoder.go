package codec

import (
	"strconv"
	"unicode/utf8"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/header"
	"github.com/wippyai/sml/internal/wide"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// preallocLimit caps slice preallocation driven by counts read off the
// wire.
const preallocLimit = 1024

// Decoder reads self-describing values from a bit channel. It is not safe
// for concurrent use.
type Decoder struct {
	r   channel.BitReader
	tr  tracer
	cfg Config
}

// NewDecoder creates a decoder reading from r. The options must match the
// ones the data was encoded with; Trace may differ.
func NewDecoder(r channel.BitReader, opts ...Option) (*Decoder, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Decoder{r: r, cfg: cfg, tr: tracer{fn: cfg.Trace, pos: r}}, nil
}

// Config returns the decoder's configuration.
func (d *Decoder) Config() Config {
	return d.cfg
}

// Decode reads one value of whatever type the wire declares.
//
// Type tags carry no struct field types and no array element type, so an
// empty option over a struct or array decodes as none<struct> or
// none<array>. Use DecodeAs with the declared type to keep the full shape.
func (d *Decoder) Decode() (value.Value, error) {
	t, err := d.ReadType()
	if err != nil {
		return value.Value{}, err
	}
	if t.Tag == tag.EndOfStream {
		return value.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Offset(channel.Position(d.r)).
			Detail("unexpected end-of-stream marker").
			Build()
	}
	return d.ReadValue(t)
}

// DecodeAs reads one value and fails with a type mismatch unless the wire
// type is accepted by want.
func (d *Decoder) DecodeAs(want value.Type) (value.Value, error) {
	got, err := d.ReadType()
	if err != nil {
		return value.Value{}, err
	}
	if !want.Accepts(got) {
		return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, nil, want.String(), got.String())
	}
	return d.ReadValue(want.Refine(got))
}

// Next reads the next value of a run closed by EndOfStream. It reports
// false once the marker is consumed.
func (d *Decoder) Next() (value.Value, bool, error) {
	t, err := d.ReadType()
	if err != nil {
		return value.Value{}, false, err
	}
	if t.Tag == tag.EndOfStream {
		return value.Value{}, false, nil
	}
	v, err := d.ReadValue(t)
	if err != nil {
		return value.Value{}, false, err
	}
	return v, true, nil
}

// ReadType reads the type tags of one value. EndOfStream is returned as a
// primitive type so callers can detect it.
func (d *Decoder) ReadType() (value.Type, error) {
	t, err := d.readTag()
	if err != nil {
		return value.Type{}, err
	}
	switch t {
	case tag.Option:
		off := channel.Position(d.r)
		elem, err := d.ReadType()
		if err != nil {
			return value.Type{}, err
		}
		if elem.Tag == tag.EndOfStream {
			return value.Type{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Offset(off).
				Detail("option of end-of-stream marker").
				Build()
		}
		return value.OptionOf(elem), nil
	case tag.Struct:
		return value.AnyStruct(), nil
	case tag.Array:
		return value.AnyArray(), nil
	}
	return value.Prim(t), nil
}

// ReadValue reads the payload of a value of type t.
func (d *Decoder) ReadValue(t value.Type) (value.Value, error) {
	switch tt := t.Tag; {
	case tt == tag.Bool:
		b, err := d.readField("payload", 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b == 1), nil
	case tt.IsUnsigned():
		u, err := d.readUnsigned(tt.NativeBits(), "payload")
		if err != nil {
			return value.Value{}, err
		}
		return value.FromRaw(tt, u), nil
	case tt.IsSigned():
		return d.readSigned(tt)
	case tt == tag.Char:
		r, err := d.readChar()
		if err != nil {
			return value.Value{}, err
		}
		return value.Char(r), nil
	case tt == tag.Float:
		double, err := d.readField("precision", 1)
		if err != nil {
			return value.Value{}, err
		}
		width := 32
		if double == 1 {
			width = 64
		}
		u, err := d.readUnsigned(width, "payload")
		if err != nil {
			return value.Value{}, err
		}
		return value.FloatBits(u.Lo, double == 1), nil
	case tt == tag.Struct:
		return d.readStruct(t)
	case tt == tag.Option:
		return d.readOption(t)
	case tt == tag.Array:
		return d.readArray(t)
	case tt == tag.EndOfStream:
		return value.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Offset(channel.Position(d.r)).
			Detail("end-of-stream marker has no payload").
			Build()
	}
	return value.Value{}, errors.Unsupported(errors.PhaseDecode, "cannot decode tag "+t.Tag.String())
}

func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.DecodeAs(value.Prim(tag.Bool))
	return v.Bool(), err
}

func (d *Decoder) ReadU8() (uint8, error) {
	v, err := d.DecodeAs(value.Prim(tag.U8))
	return uint8(v.Uint()), err
}

func (d *Decoder) ReadU16() (uint16, error) {
	v, err := d.DecodeAs(value.Prim(tag.U16))
	return uint16(v.Uint()), err
}

func (d *Decoder) ReadU32() (uint32, error) {
	v, err := d.DecodeAs(value.Prim(tag.U32))
	return uint32(v.Uint()), err
}

func (d *Decoder) ReadU64() (uint64, error) {
	v, err := d.DecodeAs(value.Prim(tag.U64))
	return v.Uint(), err
}

func (d *Decoder) ReadU128() (uint128.Uint128, error) {
	v, err := d.DecodeAs(value.Prim(tag.U128))
	return v.Uint128(), err
}

func (d *Decoder) ReadI8() (int8, error) {
	v, err := d.DecodeAs(value.Prim(tag.I8))
	return int8(v.Int()), err
}

func (d *Decoder) ReadI16() (int16, error) {
	v, err := d.DecodeAs(value.Prim(tag.I16))
	return int16(v.Int()), err
}

func (d *Decoder) ReadI32() (int32, error) {
	v, err := d.DecodeAs(value.Prim(tag.I32))
	return int32(v.Int()), err
}

func (d *Decoder) ReadI64() (int64, error) {
	v, err := d.DecodeAs(value.Prim(tag.I64))
	return v.Int(), err
}

func (d *Decoder) ReadI128() (value.Int128, error) {
	v, err := d.DecodeAs(value.Prim(tag.I128))
	return v.Int128(), err
}

func (d *Decoder) ReadChar() (rune, error) {
	v, err := d.DecodeAs(value.Prim(tag.Char))
	return v.Char(), err
}

// ReadF32 reads a single precision float. A double on the wire is a type
// mismatch.
func (d *Decoder) ReadF32() (float32, error) {
	v, err := d.readFloat(false)
	return float32(v.Float()), err
}

// ReadF64 reads a double precision float. A single on the wire is a type
// mismatch.
func (d *Decoder) ReadF64() (float64, error) {
	v, err := d.readFloat(true)
	return v.Float(), err
}

func (d *Decoder) readFloat(double bool) (value.Value, error) {
	v, err := d.DecodeAs(value.Prim(tag.Float))
	if err != nil {
		return value.Value{}, err
	}
	if v.IsDouble() != double {
		want, got := "f32", "f64"
		if double {
			want, got = got, want
		}
		return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, nil, want, got)
	}
	return v, nil
}

func (d *Decoder) readTag() (tag.Tag, error) {
	off := d.tr.offset()
	t, err := tag.Read(d.r)
	if err != nil {
		return 0, err
	}
	d.tr.field("tag", off, tag.Bits, uint64(t))
	return t, nil
}

func (d *Decoder) readField(label string, n uint8) (uint64, error) {
	off := d.tr.offset()
	v, err := d.r.ReadBits(n)
	if err != nil {
		return 0, err
	}
	d.tr.field(label, off, int(n), v)
	return v, nil
}

// readNibbles reads a length field and the nibbles it announces.
func (d *Decoder) readNibbles(label string) (uint128.Uint128, int, error) {
	n, err := d.readField("length", d.cfg.LengthBits)
	if err != nil {
		return uint128.Zero, 0, err
	}
	width := int(n+1) * NibbleBits
	off := d.tr.offset()
	u, err := readWide(d.r, width)
	if err != nil {
		return uint128.Zero, 0, err
	}
	d.tr.wide(label, off, width, u)
	return u, width, nil
}

// readUnsigned reads a nibble-coded payload and rejects values wider than
// native bits.
func (d *Decoder) readUnsigned(native int, label string) (uint128.Uint128, error) {
	off := channel.Position(d.r)
	u, _, err := d.readNibbles(label)
	if err != nil {
		return uint128.Zero, err
	}
	if n := wide.Len(u); n > native {
		return uint128.Zero, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Offset(off).
			Value(u.String()).
			Detail("%d-bit payload exceeds %d-bit native width", n, native).
			Build()
	}
	return u, nil
}

func (d *Decoder) readSigned(t tag.Tag) (value.Value, error) {
	off := channel.Position(d.r)
	sign, err := d.readField("sign", 1)
	if err != nil {
		return value.Value{}, err
	}
	u, width, err := d.readNibbles("payload")
	if err != nil {
		return value.Value{}, err
	}
	if sign == 1 {
		u = wide.FillAbove(u, width)
	}
	if n := wide.SignedLen(u); n > t.NativeBits() {
		return value.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Offset(off).
			Type(t.String()).
			Value(value.Int128FromBits(u).String()).
			Detail("%d-bit payload exceeds %d-bit native width", n, t.NativeBits()).
			Build()
	}
	return value.FromRaw(t, u), nil
}

func (d *Decoder) readChar() (rune, error) {
	class, err := d.readField("class", 2)
	if err != nil {
		return 0, err
	}
	return readRune(d.r, &d.tr, int(class)+1)
}

func (d *Decoder) readStruct(t value.Type) (value.Value, error) {
	count, err := d.readUnsigned(64, "count")
	if err != nil {
		return value.Value{}, err
	}
	if t.Fields != nil && !count.Equals64(uint64(len(t.Fields))) {
		return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, nil, t.String(),
			"struct with "+count.String()+" fields")
	}
	d.tr.enter()
	defer d.tr.leave()
	fields := make([]value.Value, 0, min(count.Lo, preallocLimit))
	for i := uint64(0); i < count.Lo; i++ {
		ft, err := d.ReadType()
		if err != nil {
			return value.Value{}, errors.WithPath(err, fieldName(int(i)))
		}
		if ft.Tag == tag.EndOfStream {
			return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{fieldName(int(i))}, fieldWant(t, i), ft.String())
		}
		if t.Fields != nil {
			want := t.Fields[i]
			if !want.Accepts(ft) {
				return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{fieldName(int(i))}, want.String(), ft.String())
			}
			ft = want.Refine(ft)
		}
		f, err := d.ReadValue(ft)
		if err != nil {
			return value.Value{}, errors.WithPath(err, fieldName(int(i)))
		}
		fields = append(fields, f)
	}
	return value.Struct(fields...), nil
}

func fieldWant(t value.Type, i uint64) string {
	if t.Fields != nil {
		return t.Fields[i].String()
	}
	return "field"
}

func (d *Decoder) readOption(t value.Type) (value.Value, error) {
	pt, err := d.readTag()
	if err != nil {
		return value.Value{}, err
	}
	if pt != tag.Bool {
		return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{"presence"}, tag.Bool.String(), pt.String())
	}
	present, err := d.readField("presence", 1)
	if err != nil {
		return value.Value{}, err
	}
	if present == 0 {
		if t.Elem == nil {
			return value.Value{}, errors.InvalidInput(errors.PhaseDecode, "option type without element type")
		}
		return value.None(*t.Elem), nil
	}

	d.tr.enter()
	defer d.tr.leave()
	it, err := d.ReadType()
	if err != nil {
		return value.Value{}, errors.WithPath(err, "some")
	}
	if t.Elem != nil {
		if !t.Elem.Accepts(it) {
			return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{"some"}, t.Elem.String(), it.String())
		}
		it = t.Elem.Refine(it)
	}
	inner, err := d.ReadValue(it)
	if err != nil {
		return value.Value{}, errors.WithPath(err, "some")
	}
	return value.Some(inner), nil
}

func (d *Decoder) readArray(t value.Type) (value.Value, error) {
	mode, err := d.readField("mode", 1)
	if err != nil {
		return value.Value{}, err
	}
	d.tr.enter()
	defer d.tr.leave()
	if ArrayMode(mode) == ArrayPacked {
		return d.readPacked(t)
	}

	var items []value.Value
	for i := 0; ; i++ {
		it, err := d.ReadType()
		if err != nil {
			return value.Value{}, errors.WithPath(err, itemName(i))
		}
		if it.Tag == tag.EndOfStream {
			break
		}
		if t.Elem != nil {
			if !t.Elem.Accepts(it) {
				return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{itemName(i)}, t.Elem.String(), it.String())
			}
			it = t.Elem.Refine(it)
		}
		v, err := d.ReadValue(it)
		if err != nil {
			return value.Value{}, errors.WithPath(err, itemName(i))
		}
		items = append(items, v)
	}
	return value.Array(items...), nil
}

func (d *Decoder) readPacked(t value.Type) (value.Value, error) {
	count, err := d.readUnsigned(64, "count")
	if err != nil {
		return value.Value{}, err
	}
	off := channel.Position(d.r)
	et, err := d.readTag()
	if err != nil {
		return value.Value{}, err
	}
	if t.Elem != nil && !t.Elem.Accepts(value.Prim(et)) {
		return value.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{"[elem]"}, t.Elem.String(), et.String())
	}
	double := false
	if et == tag.Float {
		p, err := d.readField("precision", 1)
		if err != nil {
			return value.Value{}, err
		}
		double = p == 1
	}
	slot, ok := header.SlotFor(et, double)
	if !ok {
		return value.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Offset(off).
			Type(et.String()).
			Detail("packed array elements must be primitive").
			Build()
	}

	hoff := d.tr.offset()
	h, err := header.Decode(d.r, d.cfg.AlignHeader)
	if err != nil {
		return value.Value{}, err
	}
	d.tr.emit("header", hoff, int(d.tr.offset()-hoff), 0, h.String())

	pd := &PackedDecoder{r: d.r, h: h, tr: d.tr}
	items := make([]value.Value, 0, min(count.Lo, preallocLimit))
	for i := uint64(0); i < count.Lo; i++ {
		v, err := pd.Decode(slot)
		if err != nil {
			return value.Value{}, errors.WithPath(err, "["+strconv.FormatUint(i, 10)+"]")
		}
		items = append(items, v)
	}
	return value.Array(items...), nil
}

// readRune reads n raw bytes and decodes exactly one code point from them.
func readRune(r channel.BitReader, tr *tracer, n int) (rune, error) {
	off := tr.offset()
	var buf [utf8.UTFMax]byte
	p := buf[:n]
	if err := r.ReadBytes(p); err != nil {
		return 0, err
	}
	c, size := utf8.DecodeRune(p)
	if (c == utf8.RuneError && size <= 1) || size != n {
		return 0, errors.InvalidUTF8(errors.PhaseDecode, p)
	}
	tr.emit("utf8", off, n*8, packBytes(p), strconv.QuoteRune(c))
	return c, nil
}
