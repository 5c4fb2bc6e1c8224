package codec

import (
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/header"
	"github.com/wippyai/sml/internal/wide"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// PackedEncoder writes primitive values with no tag and no length field,
// each in exactly the width its slot has in the header.
//
// A value that does not fit its declared width fails with a width overflow
// before any of its bits are written. A slot of width 0 accepts no values.
type PackedEncoder struct {
	w  channel.BitWriter
	tr tracer
	h  header.Header
}

// NewPackedEncoder creates a packed encoder writing under h.
func NewPackedEncoder(w channel.BitWriter, h header.Header) *PackedEncoder {
	return &PackedEncoder{w: w, h: h, tr: tracer{pos: w}}
}

// Header returns the header values are written under.
func (p *PackedEncoder) Header() header.Header {
	return p.h
}

// Encode writes v's payload in its slot's declared width. Composite values
// are unsupported.
func (p *PackedEncoder) Encode(v value.Value) error {
	slot, need, err := header.MinWidth(v)
	if err != nil {
		if errors.HasKind(err, errors.KindUnsupported) {
			return errors.Unsupported(errors.PhaseEncode, v.Tag().String()+" has no schema-elided form")
		}
		return err
	}
	width := p.h.Width(slot)
	if width == 0 || need > width {
		return errors.WidthOverflow(errors.PhaseEncode, slot.String(), v.String(), int(need), int(width))
	}

	off := p.tr.offset()
	if slot == header.SlotChar {
		buf := utf8.AppendRune(nil, v.Char())
		if err := p.w.WriteBits(uint64(len(buf)-1), width); err != nil {
			return err
		}
		p.tr.field("class", off, int(width), uint64(len(buf)-1))
		off = p.tr.offset()
		if err := p.w.WriteBytes(buf); err != nil {
			return err
		}
		p.tr.emit("utf8", off, len(buf)*8, packBytes(buf), strconv.QuoteRune(v.Char()))
		return nil
	}

	bits := wide.Low(v.Bits(), int(width))
	if err := writeWide(p.w, bits, int(width)); err != nil {
		return err
	}
	p.tr.wide("payload", off, int(width), bits)
	return nil
}

// PackedDecoder reads values written by a PackedEncoder under the same
// header. The caller supplies each value's slot.
type PackedDecoder struct {
	r  channel.BitReader
	tr tracer
	h  header.Header
}

// NewPackedDecoder creates a packed decoder reading under h.
func NewPackedDecoder(r channel.BitReader, h header.Header) *PackedDecoder {
	return &PackedDecoder{r: r, h: h, tr: tracer{pos: r}}
}

// Header returns the header values are read under.
func (p *PackedDecoder) Header() header.Header {
	return p.h
}

// Decode reads one value of the given slot. Signed slots are sign-extended
// from their declared width.
func (p *PackedDecoder) Decode(slot header.Slot) (value.Value, error) {
	if int(slot) >= len(header.Slots()) {
		return value.Value{}, errors.InvalidInput(errors.PhaseDecode, "unknown slot "+strconv.Itoa(int(slot)))
	}
	width := p.h.Width(slot)
	if width == 0 {
		return value.Value{}, errors.New(errors.PhaseDecode, errors.KindWidthOverflow).
			Offset(channel.Position(p.r)).
			Type(slot.String()).
			Detail("slot has width 0 in the header").
			Build()
	}

	off := p.tr.offset()
	raw, err := readWide(p.r, int(width))
	if err != nil {
		return value.Value{}, err
	}

	switch {
	case slot == header.SlotChar:
		p.tr.field("class", off, int(width), raw.Lo)
		r, err := readRune(p.r, &p.tr, int(raw.Lo)+1)
		if err != nil {
			return value.Value{}, err
		}
		return value.Char(r), nil
	case slot == header.SlotBool:
		p.tr.field("payload", off, 1, raw.Lo)
		return value.Bool(raw.Lo == 1), nil
	}

	p.tr.wide("payload", off, int(width), raw)
	switch {
	case slot == header.SlotF32:
		return value.FloatBits(raw.Lo, false), nil
	case slot == header.SlotF64:
		return value.FloatBits(raw.Lo, true), nil
	case slot.Signed():
		return value.FromRaw(slot.Tag(), wide.SignExtend(raw, int(width))), nil
	}
	return value.FromRaw(slot.Tag(), raw), nil
}

// PackBatch computes the minimal shared header of vs, writes it and then
// every value schema-elided under it. Every value must be primitive.
func PackBatch(w channel.BitWriter, vs []value.Value, opts ...Option) (header.Header, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return header.Header{}, err
	}
	for i, v := range vs {
		if _, ok := header.SlotOf(v); !ok {
			return header.Header{}, errors.WithPath(
				errors.Unsupported(errors.PhaseEncode, v.Tag().String()+" has no schema-elided form"),
				itemName(i))
		}
	}
	h, err := header.ForAll(vs)
	if err != nil {
		return header.Header{}, err
	}
	Logger().Debug("packing batch",
		zap.Int("values", len(vs)),
		zap.Stringer("header", h),
		zap.Int("payload_bits", PackedSize(h, vs)))

	tr := tracer{fn: cfg.Trace, pos: w}
	off := tr.offset()
	if err := h.Encode(w, cfg.AlignHeader); err != nil {
		return header.Header{}, err
	}
	tr.emit("header", off, int(tr.offset()-off), 0, h.String())

	pe := &PackedEncoder{w: w, h: h, tr: tr}
	for i, v := range vs {
		if err := pe.Encode(v); err != nil {
			return header.Header{}, errors.WithPath(err, itemName(i))
		}
	}
	return h, nil
}

// UnpackBatch reads a header and one value per slot, as written by
// PackBatch.
func UnpackBatch(r channel.BitReader, slots []header.Slot, opts ...Option) ([]value.Value, header.Header, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, header.Header{}, err
	}
	tr := tracer{fn: cfg.Trace, pos: r}
	off := tr.offset()
	h, err := header.Decode(r, cfg.AlignHeader)
	if err != nil {
		return nil, header.Header{}, err
	}
	tr.emit("header", off, int(tr.offset()-off), 0, h.String())

	pd := &PackedDecoder{r: r, h: h, tr: tr}
	out := make([]value.Value, 0, len(slots))
	for i, s := range slots {
		v, err := pd.Decode(s)
		if err != nil {
			return nil, h, errors.WithPath(err, itemName(i))
		}
		out = append(out, v)
	}
	return out, h, nil
}

// PackedSize returns the schema-elided payload size of vs under h in bits,
// header excluded.
func PackedSize(h header.Header, vs []value.Value) int {
	total := 0
	for _, v := range vs {
		w, _ := h.WidthFor(v)
		total += int(w)
		if v.Tag() == tag.Char {
			total += utf8.RuneLen(v.Char()) * 8
		}
	}
	return total
}

// SlotsOf returns the slot of every value in vs, for use with UnpackBatch.
func SlotsOf(vs []value.Value) ([]header.Slot, error) {
	out := make([]header.Slot, len(vs))
	for i, v := range vs {
		s, ok := header.SlotOf(v)
		if !ok {
			return nil, errors.WithPath(
				errors.Unsupported(errors.PhaseEncode, v.Tag().String()+" has no schema-elided form"),
				itemName(i))
		}
		out[i] = s
	}
	return out, nil
}
