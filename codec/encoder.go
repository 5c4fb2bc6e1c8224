package codec

import (
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/header"
	"github.com/wippyai/sml/internal/wide"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// Encoder writes self-describing values to a bit channel. It is not safe
// for concurrent use.
type Encoder struct {
	w   channel.BitWriter
	tr  tracer
	cfg Config
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w channel.BitWriter, opts ...Option) (*Encoder, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Encoder{w: w, cfg: cfg, tr: tracer{fn: cfg.Trace, pos: w}}, nil
}

// Config returns the encoder's configuration.
func (e *Encoder) Config() Config {
	return e.cfg
}

// Encode writes v's type tags followed by its payload. Limits and UTF-8
// validity are checked for the whole value before the first bit is written.
func (e *Encoder) Encode(v value.Value) error {
	if err := e.check(v); err != nil {
		return err
	}
	if err := e.WriteType(v.Type()); err != nil {
		return err
	}
	return e.writeValue(v)
}

// WriteType writes the type tags of t: one tag, or for options the Option
// tag followed by the element's type tags.
func (e *Encoder) WriteType(t value.Type) error {
	if err := e.writeTag(t.Tag); err != nil {
		return err
	}
	if t.Tag != tag.Option {
		return nil
	}
	if t.Elem == nil {
		return errors.InvalidInput(errors.PhaseEncode, "option type without element type")
	}
	return e.WriteType(*t.Elem)
}

// WriteValue writes v's payload without its type tags. The reader must
// learn the type some other way, for example from a preceding WriteType.
func (e *Encoder) WriteValue(v value.Value) error {
	if err := e.check(v); err != nil {
		return err
	}
	return e.writeValue(v)
}

func (e *Encoder) WriteBool(b bool) error            { return e.Encode(value.Bool(b)) }
func (e *Encoder) WriteU8(x uint8) error             { return e.Encode(value.Uint8(x)) }
func (e *Encoder) WriteU16(x uint16) error           { return e.Encode(value.Uint16(x)) }
func (e *Encoder) WriteU32(x uint32) error           { return e.Encode(value.Uint32(x)) }
func (e *Encoder) WriteU64(x uint64) error           { return e.Encode(value.Uint64(x)) }
func (e *Encoder) WriteU128(x uint128.Uint128) error { return e.Encode(value.Uint128(x)) }
func (e *Encoder) WriteI8(x int8) error              { return e.Encode(value.Int8(x)) }
func (e *Encoder) WriteI16(x int16) error            { return e.Encode(value.Int16(x)) }
func (e *Encoder) WriteI32(x int32) error            { return e.Encode(value.Int32(x)) }
func (e *Encoder) WriteI64(x int64) error            { return e.Encode(value.Int64(x)) }
func (e *Encoder) WriteI128(x value.Int128) error    { return e.Encode(value.Int128Value(x)) }
func (e *Encoder) WriteChar(r rune) error            { return e.Encode(value.Char(r)) }
func (e *Encoder) WriteF32(f float32) error          { return e.Encode(value.Float32(f)) }
func (e *Encoder) WriteF64(f float64) error          { return e.Encode(value.Float64(f)) }

// WriteEndOfStream writes the bare EndOfStream tag that closes a run of
// values read with Decoder.Next.
func (e *Encoder) WriteEndOfStream() error {
	return e.writeTag(tag.EndOfStream)
}

// check validates v against the configured limits without writing.
func (e *Encoder) check(v value.Value) error {
	switch t := v.Tag(); {
	case t == tag.Bool:
		return nil
	case t.IsUnsigned():
		return e.checkLen(t.String(), v, wide.Len(v.Bits()))
	case t.IsSigned():
		return e.checkLen(t.String(), v, wide.Len(wide.Magnitude(v.Bits())))
	case t == tag.Float:
		return e.checkLen("f"+strconv.Itoa(v.FloatWidth()), v, wide.Len(v.Bits()))
	case t == tag.Char:
		if !utf8.ValidRune(v.Char()) {
			return invalidRune(errors.PhaseEncode, v.Char())
		}
		return nil
	case t == tag.Struct:
		return e.checkAll(v.Fields(), "field")
	case t == tag.Array:
		if e.cfg.ArrayMode == ArrayPacked {
			if _, ok := packableSlot(v.Items()); ok {
				return e.checkPacked(v.Items())
			}
		}
		return e.checkAll(v.Items(), "")
	case t == tag.Option:
		if err := checkType(v.ElemType()); err != nil {
			return err
		}
		if inner, ok := v.Elem(); ok {
			return errors.WithPath(e.check(inner), "some")
		}
		return nil
	}
	return errors.Unsupported(errors.PhaseEncode, "cannot encode tag "+v.Tag().String())
}

func (e *Encoder) checkAll(vs []value.Value, prefix string) error {
	if n := len(vs); Nibbles(wide.Len(uint128.From64(uint64(n)))) > e.cfg.MaxNibbles() {
		return errors.WidthOverflow(errors.PhaseEncode, "count", n, wide.Len(uint128.From64(uint64(n))), e.cfg.MaxNibbles()*NibbleBits)
	}
	for i, f := range vs {
		if err := e.check(f); err != nil {
			return errors.WithPath(err, prefix+"["+strconv.Itoa(i)+"]")
		}
	}
	return nil
}

// checkPacked validates the items of an array written in packed mode, where
// only the count goes through the nibble rule.
func (e *Encoder) checkPacked(items []value.Value) error {
	if sig := wide.Len(uint128.From64(uint64(len(items)))); Nibbles(sig) > e.cfg.MaxNibbles() {
		return errors.WidthOverflow(errors.PhaseEncode, "count", len(items), sig, e.cfg.MaxNibbles()*NibbleBits)
	}
	for i, it := range items {
		if _, _, err := header.MinWidth(it); err != nil {
			return errors.WithPath(err, itemName(i))
		}
	}
	return nil
}

func (e *Encoder) checkLen(typ string, v value.Value, sig int) error {
	if limit := e.cfg.MaxNibbles() * NibbleBits; sig > limit {
		return errors.WidthOverflow(errors.PhaseEncode, typ, v.String(), sig, limit)
	}
	return nil
}

func checkType(t value.Type) error {
	if t.Tag != tag.Option {
		return nil
	}
	if t.Elem == nil {
		return errors.InvalidInput(errors.PhaseEncode, "option type without element type")
	}
	return checkType(*t.Elem)
}

func (e *Encoder) writeValue(v value.Value) error {
	switch t := v.Tag(); {
	case t == tag.Bool:
		return e.writeField("payload", v.Bits().Lo, 1)
	case t.IsUnsigned():
		return e.writeUnsigned(v.Bits(), "payload")
	case t.IsSigned():
		return e.writeSigned(v.Bits())
	case t == tag.Char:
		return e.writeChar(v.Char())
	case t == tag.Float:
		var double uint64
		if v.IsDouble() {
			double = 1
		}
		if err := e.writeField("precision", double, 1); err != nil {
			return err
		}
		return e.writeUnsigned(v.Bits(), "payload")
	case t == tag.Struct:
		return e.writeStruct(v)
	case t == tag.Option:
		return e.writeOption(v)
	case t == tag.Array:
		return e.writeArray(v)
	}
	return errors.Unsupported(errors.PhaseEncode, "cannot encode tag "+v.Tag().String())
}

func (e *Encoder) writeTag(t tag.Tag) error {
	off := e.tr.offset()
	if err := tag.Write(e.w, t); err != nil {
		return err
	}
	e.tr.field("tag", off, tag.Bits, uint64(t))
	return nil
}

func (e *Encoder) writeField(label string, v uint64, n uint8) error {
	off := e.tr.offset()
	if err := e.w.WriteBits(v, n); err != nil {
		return err
	}
	e.tr.field(label, off, int(n), v)
	return nil
}

// writeUnsigned applies the nibble rule: a LengthBits field holding the
// nibble count minus one, then that many nibbles of u.
func (e *Encoder) writeUnsigned(u uint128.Uint128, label string) error {
	sig := wide.Len(u)
	n := Nibbles(sig)
	if n > e.cfg.MaxNibbles() {
		return errors.WidthOverflow(errors.PhaseEncode, label, u.String(), sig, e.cfg.MaxNibbles()*NibbleBits)
	}
	return e.writeNibbles(u, n, label)
}

func (e *Encoder) writeNibbles(u uint128.Uint128, n int, label string) error {
	if err := e.writeField("length", uint64(n-1), e.cfg.LengthBits); err != nil {
		return err
	}
	off := e.tr.offset()
	if err := writeWide(e.w, u, n*NibbleBits); err != nil {
		return err
	}
	e.tr.wide(label, off, n*NibbleBits, u)
	return nil
}

// writeSigned writes the sign, then the low bits of the two's complement
// pattern, sized by the magnitude.
func (e *Encoder) writeSigned(u uint128.Uint128) error {
	var sign uint64
	if wide.Negative(u) {
		sign = 1
	}
	if err := e.writeField("sign", sign, 1); err != nil {
		return err
	}
	sig := wide.Len(wide.Magnitude(u))
	n := Nibbles(sig)
	if n > e.cfg.MaxNibbles() {
		return errors.WidthOverflow(errors.PhaseEncode, "signed", value.Int128FromBits(u).String(), sig, e.cfg.MaxNibbles()*NibbleBits)
	}
	return e.writeNibbles(wide.Low(u, n*NibbleBits), n, "payload")
}

func (e *Encoder) writeChar(r rune) error {
	if !utf8.ValidRune(r) {
		return invalidRune(errors.PhaseEncode, r)
	}
	buf := utf8.AppendRune(nil, r)
	if err := e.writeField("class", uint64(len(buf)-1), 2); err != nil {
		return err
	}
	off := e.tr.offset()
	if err := e.w.WriteBytes(buf); err != nil {
		return err
	}
	e.tr.emit("utf8", off, len(buf)*8, packBytes(buf), strconv.QuoteRune(r))
	return nil
}

func (e *Encoder) writeStruct(v value.Value) error {
	fields := v.Fields()
	if err := e.writeUnsigned(uint128.From64(uint64(len(fields))), "count"); err != nil {
		return err
	}
	e.tr.enter()
	defer e.tr.leave()
	for i, f := range fields {
		if err := e.WriteType(f.Type()); err != nil {
			return errors.WithPath(err, fieldName(i))
		}
		if err := e.writeValue(f); err != nil {
			return errors.WithPath(err, fieldName(i))
		}
	}
	return nil
}

func (e *Encoder) writeOption(v value.Value) error {
	inner, present := v.Elem()
	if err := e.writeTag(tag.Bool); err != nil {
		return err
	}
	var bit uint64
	if present {
		bit = 1
	}
	if err := e.writeField("presence", bit, 1); err != nil {
		return err
	}
	if !present {
		return nil
	}
	e.tr.enter()
	defer e.tr.leave()
	if err := e.WriteType(inner.Type()); err != nil {
		return errors.WithPath(err, "some")
	}
	return errors.WithPath(e.writeValue(inner), "some")
}

func (e *Encoder) writeArray(v value.Value) error {
	items := v.Items()
	mode := e.cfg.ArrayMode
	slot, packable := packableSlot(items)
	if mode == ArrayPacked && !packable {
		Logger().Debug("array cannot be packed, writing sequence",
			zap.Int("items", len(items)))
		mode = ArraySequence
	}
	if err := e.writeField("mode", uint64(mode), 1); err != nil {
		return err
	}
	e.tr.enter()
	defer e.tr.leave()
	if mode == ArrayPacked {
		return e.writePacked(items, slot)
	}
	for i, it := range items {
		if err := e.WriteType(it.Type()); err != nil {
			return errors.WithPath(err, itemName(i))
		}
		if err := e.writeValue(it); err != nil {
			return errors.WithPath(err, itemName(i))
		}
	}
	return e.writeTag(tag.EndOfStream)
}

func (e *Encoder) writePacked(items []value.Value, slot header.Slot) error {
	if err := e.writeUnsigned(uint128.From64(uint64(len(items))), "count"); err != nil {
		return err
	}
	if err := e.writeTag(slot.Tag()); err != nil {
		return err
	}
	if slot.Tag() == tag.Float {
		var double uint64
		if slot == header.SlotF64 {
			double = 1
		}
		if err := e.writeField("precision", double, 1); err != nil {
			return err
		}
	}
	h, err := header.ForAll(items)
	if err != nil {
		return err
	}
	off := e.tr.offset()
	if err := h.Encode(e.w, e.cfg.AlignHeader); err != nil {
		return err
	}
	e.tr.emit("header", off, int(e.tr.offset()-off), 0, h.String())

	pe := &PackedEncoder{w: e.w, h: h, tr: e.tr}
	for i, it := range items {
		if err := pe.Encode(it); err != nil {
			return errors.WithPath(err, itemName(i))
		}
	}
	return nil
}

// packableSlot reports the shared slot of a non-empty run of primitive
// values.
func packableSlot(items []value.Value) (header.Slot, bool) {
	if len(items) == 0 {
		return 0, false
	}
	slot, ok := header.SlotOf(items[0])
	if !ok {
		return 0, false
	}
	for _, it := range items[1:] {
		if s, ok := header.SlotOf(it); !ok || s != slot {
			return 0, false
		}
	}
	return slot, true
}

func invalidRune(phase errors.Phase, r rune) *errors.Error {
	return errors.New(phase, errors.KindInvalidUTF8).
		Type(tag.Char.String()).
		Value(uint32(r)).
		Detail("%#x is not a valid code point", uint32(r)).
		Build()
}

func packBytes(p []byte) uint64 {
	var raw uint64
	for _, b := range p {
		raw = raw<<8 | uint64(b)
	}
	return raw
}

func fieldName(i int) string { return "field[" + strconv.Itoa(i) + "]" }
func itemName(i int) string  { return "[" + strconv.Itoa(i) + "]" }
