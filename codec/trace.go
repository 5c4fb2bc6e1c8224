package codec

import (
	"strconv"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/tag"
)

// Event describes one field read from or written to the channel.
type Event struct {
	// Label names the field: tag, length, payload, sign, class, utf8,
	// precision, presence, count, mode or header.
	Label string
	// Text is a rendering of the field's meaning, such as a tag name.
	Text string
	// Offset is the bit position of the field, or errors.NoOffset when the
	// channel does not track one.
	Offset int64
	// Raw holds the field bits for fields up to 64 bits wide.
	Raw uint64
	// Width is the field width in bits.
	Width int
	// Depth is the composite nesting level.
	Depth int
}

// TraceFunc receives trace events.
type TraceFunc func(Event)

type tracer struct {
	fn    TraceFunc
	pos   any
	depth int
}

func (t *tracer) offset() int64 {
	if t.fn == nil {
		return 0
	}
	return channel.Position(t.pos)
}

// field reports a fixed field up to 64 bits wide.
func (t *tracer) field(label string, off int64, width int, raw uint64) {
	if t.fn == nil {
		return
	}
	t.emit(label, off, width, raw, describe(label, raw))
}

// wide reports a payload that may exceed 64 bits.
func (t *tracer) wide(label string, off int64, width int, u uint128.Uint128) {
	if t.fn == nil {
		return
	}
	t.emit(label, off, width, u.Lo, u.String())
}

func (t *tracer) emit(label string, off int64, width int, raw uint64, text string) {
	if t.fn == nil {
		return
	}
	t.fn(Event{
		Label:  label,
		Text:   text,
		Offset: off,
		Raw:    raw,
		Width:  width,
		Depth:  t.depth,
	})
}

func (t *tracer) enter() { t.depth++ }
func (t *tracer) leave() { t.depth-- }

func describe(label string, raw uint64) string {
	switch label {
	case "tag":
		return tag.Tag(raw).String()
	case "length":
		return strconv.FormatUint(raw+1, 10) + " nibbles"
	case "class":
		return strconv.FormatUint(raw+1, 10) + " bytes"
	case "sign":
		if raw == 1 {
			return "negative"
		}
		return "positive"
	case "presence":
		if raw == 1 {
			return "some"
		}
		return "none"
	case "precision":
		if raw == 1 {
			return "f64"
		}
		return "f32"
	case "mode":
		return ArrayMode(raw).String()
	}
	return strconv.FormatUint(raw, 10)
}
