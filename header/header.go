package header

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/internal/wide"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// FieldBits is the wire width of one slot's width field.
const FieldBits = 8

// MaxWidth is the largest width any slot can declare.
const MaxWidth = 128

// Header records the bit width used for each primitive slot in
// schema-elided mode. Width 0 means the slot never appears. The bool slot is
// always 1. Headers are values: copy freely, compare with ==.
type Header struct {
	widths [numSlots]uint8
}

// Native returns the header declaring every slot at full width.
func Native() Header {
	var h Header
	for s := range h.widths {
		h.widths[s] = slotTable[s].native
	}
	return h
}

// Zero returns the header reserving nothing but the fixed bool width. It is
// the identity of Combine.
func Zero() Header {
	var h Header
	h.widths[SlotBool] = 1
	return h
}

// Width returns the width declared for s.
func (h Header) Width(s Slot) uint8 {
	if s >= numSlots {
		return 0
	}
	return h.widths[s]
}

// WidthFor returns the width declared for v's slot. It reports false for
// composite values, which have no slot.
func (h Header) WidthFor(v value.Value) (uint8, bool) {
	s, ok := SlotOf(v)
	if !ok {
		return 0, false
	}
	return h.widths[s], true
}

// Equal reports whether both headers declare the same widths.
func (h Header) Equal(o Header) bool {
	return h == o
}

func (h Header) String() string {
	var b strings.Builder
	for s, w := range h.widths {
		if s > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(slotTable[s].name)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(w)))
	}
	return b.String()
}

// Combine returns the elementwise maximum of a and b.
func Combine(a, b Header) Header {
	var out Header
	for s := range out.widths {
		out.widths[s] = max(a.widths[s], b.widths[s])
	}
	return out
}

// Fold combines every header in hs, starting from Zero.
func Fold(hs ...Header) Header {
	acc := Zero()
	for _, h := range hs {
		acc = Combine(acc, h)
	}
	return acc
}

// MinWidth returns the slot of a primitive value and the fewest bits that
// hold it losslessly. The result is never 0, so a present slot is always
// reserved.
func MinWidth(v value.Value) (Slot, uint8, error) {
	s, ok := SlotOf(v)
	if !ok {
		return 0, 0, errors.New(errors.PhaseHeader, errors.KindUnsupported).
			Type(v.Tag().String()).
			Detail("only primitive values have a slot").
			Build()
	}
	var n int
	switch {
	case s == SlotBool:
		n = 1
	case s == SlotChar:
		r := v.Char()
		if !utf8.ValidRune(r) {
			return 0, 0, errors.New(errors.PhaseHeader, errors.KindInvalidUTF8).
				Value(uint32(r)).
				Detail("invalid rune %#x", uint32(r)).
				Build()
		}
		n = wide.Len(wide.FromInt64(int64(utf8.RuneLen(r) - 1)))
	case s.Signed():
		n = wide.SignedLen(v.Bits())
	default:
		n = wide.Len(v.Bits())
	}
	return s, uint8(max(n, 1)), nil
}

// For returns the minimal header for v: every slot v uses, recursively
// through struct fields, option payloads and array items, at the fewest
// bits that hold it.
func For(v value.Value) (Header, error) {
	switch v.Tag() {
	case tag.Struct:
		return ForAll(v.Fields())
	case tag.Array:
		return ForAll(v.Items())
	case tag.Option:
		if e, ok := v.Elem(); ok {
			return For(e)
		}
		return Zero(), nil
	}
	s, n, err := MinWidth(v)
	if err != nil {
		return Header{}, err
	}
	h := Zero()
	h.widths[s] = n
	return h, nil
}

// ForAll folds For over a batch. Encoding every value of vs under the
// result is lossless.
func ForAll(vs []value.Value) (Header, error) {
	acc := Zero()
	for _, v := range vs {
		h, err := For(v)
		if err != nil {
			return Header{}, err
		}
		acc = Combine(acc, h)
	}
	return acc, nil
}

// Encode writes every slot width as a FieldBits field in slot order, then
// aligns the channel when align is set.
func (h Header) Encode(w channel.BitWriter, align bool) error {
	for _, width := range h.widths {
		if err := w.WriteBits(uint64(width), FieldBits); err != nil {
			return err
		}
	}
	if align {
		return w.Align()
	}
	return nil
}

// Decode reads a header written by Encode with the same align setting.
func Decode(r channel.BitReader, align bool) (Header, error) {
	var h Header
	for s := range h.widths {
		off := channel.Position(r)
		width, err := r.ReadBits(FieldBits)
		if err != nil {
			return Header{}, err
		}
		if err := checkWidth(Slot(s), width); err != nil {
			err.Phase = errors.PhaseDecode
			err.Kind = errors.KindInvalidData
			err.Offset = off
			return Header{}, err
		}
		h.widths[s] = uint8(width)
	}
	if align {
		if err := r.SkipToAlign(); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

func checkWidth(s Slot, width uint64) *errors.Error {
	if s == SlotBool && width != 1 {
		return errors.New(errors.PhaseHeader, errors.KindInvalidInput).
			Path(s.String()).
			Value(width).
			Detail("bool width is fixed at 1, got %d", width).
			Build()
	}
	if width > uint64(s.Native()) {
		return errors.New(errors.PhaseHeader, errors.KindInvalidInput).
			Path(s.String()).
			Value(width).
			Detail("width %d exceeds native width %d", width, s.Native()).
			Build()
	}
	return nil
}
