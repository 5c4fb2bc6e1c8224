package channel

import (
	goerrors "errors"
	"io"

	"github.com/icza/bitio"

	"github.com/wippyai/sml/errors"
)

// MaxBits is the widest field a single WriteBits/ReadBits call accepts.
const MaxBits = 64

// BitWriter is the write side of a bit channel. Fields are written
// most-significant bit first.
type BitWriter interface {
	// WriteBits writes the n low bits of v, 0 <= n <= 64.
	WriteBits(v uint64, n uint8) error
	// WriteBytes writes p as-is at the current bit position.
	WriteBytes(p []byte) error
	// Align pads with zero bits up to the next byte boundary.
	Align() error
}

// BitReader is the read side of a bit channel.
type BitReader interface {
	ReadBits(n uint8) (uint64, error)
	ReadBytes(p []byte) error
	// SkipToAlign discards bits up to the next byte boundary.
	SkipToAlign() error
}

// Positioner is implemented by channels that track their bit cursor.
type Positioner interface {
	Position() int64
}

// Position returns the bit cursor of c, or errors.NoOffset when c does not
// track one.
func Position(c any) int64 {
	if p, ok := c.(Positioner); ok {
		return p.Position()
	}
	return errors.NoOffset
}

// Writer is a BitWriter over an io.Writer.
type Writer struct {
	bw  *bitio.Writer
	pos int64
}

// NewWriter creates a Writer. Close must be called to flush a trailing
// partial byte.
func NewWriter(out io.Writer) *Writer {
	return &Writer{bw: bitio.NewWriter(out)}
}

// Position returns the number of bits written so far, padding included.
func (w *Writer) Position() int64 {
	return w.pos
}

// WriteBits writes the n low bits of v.
func (w *Writer) WriteBits(v uint64, n uint8) error {
	if n > MaxBits {
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Offset(w.pos).
			Detail("field width %d exceeds %d bits", n, MaxBits).
			Build()
	}
	if n == 0 {
		return nil
	}
	if err := w.bw.WriteBits(v&mask(n), n); err != nil {
		return errors.IO(errors.PhaseEncode, w.pos, err)
	}
	w.pos += int64(n)
	return nil
}

// WriteBytes writes a raw byte run, unaligned if the cursor is unaligned.
func (w *Writer) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := w.bw.Write(p); err != nil {
		return errors.IO(errors.PhaseEncode, w.pos, err)
	}
	w.pos += int64(len(p)) * 8
	return nil
}

// Align pads the cursor to the next byte boundary.
func (w *Writer) Align() error {
	skipped, err := w.bw.Align()
	if err != nil {
		return errors.IO(errors.PhaseEncode, w.pos, err)
	}
	w.pos += int64(skipped)
	return nil
}

// Close pads and flushes any cached bits. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	if err := w.Align(); err != nil {
		return err
	}
	if err := w.bw.Close(); err != nil {
		return errors.IO(errors.PhaseEncode, w.pos, err)
	}
	return nil
}

// Reader is a BitReader over an io.Reader.
type Reader struct {
	br  *bitio.Reader
	pos int64
}

// NewReader creates a Reader.
func NewReader(in io.Reader) *Reader {
	return &Reader{br: bitio.NewReader(in)}
}

// Position returns the number of bits consumed so far.
func (r *Reader) Position() int64 {
	return r.pos
}

// ReadBits reads an n-bit unsigned field.
func (r *Reader) ReadBits(n uint8) (uint64, error) {
	if n > MaxBits {
		return 0, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Offset(r.pos).
			Detail("field width %d exceeds %d bits", n, MaxBits).
			Build()
	}
	if n == 0 {
		return 0, nil
	}
	v, err := r.br.ReadBits(n)
	if err != nil {
		return 0, r.wrapError(n, err)
	}
	r.pos += int64(n)
	return v, nil
}

// ReadBytes fills p from the channel.
func (r *Reader) ReadBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := io.ReadFull(r.br, p); err != nil {
		return r.wrapError(8, err)
	}
	r.pos += int64(len(p)) * 8
	return nil
}

// SkipToAlign discards the rest of the current byte.
func (r *Reader) SkipToAlign() error {
	r.pos += int64(r.br.Align())
	return nil
}

func (r *Reader) wrapError(n uint8, err error) error {
	if goerrors.Is(err, io.EOF) || goerrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.TruncatedInput(r.pos, n, err)
	}
	return errors.IO(errors.PhaseDecode, r.pos, err)
}

func mask(n uint8) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}
