package container

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"strconv"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/codec"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/value"
)

// Magic opens every container.
const Magic = "SML"

// Version is the only container version this package reads and writes.
const Version = 1

// DigestSize is the length of the trailing BLAKE3 digest.
const DigestSize = 32

// MaxPayload bounds the payload length accepted by Decode.
const MaxPayload = 1 << 30

const (
	flagAlignHeader = 1 << iota
	flagPackedArrays

	knownFlags = flagAlignHeader | flagPackedArrays
)

// domainKey separates container digests from other BLAKE3 uses of the same
// bytes. ASCII name, zero padded to 32 bytes.
var domainKey = [32]byte{
	's', 'm', 'l', '.', 'c', 'o', 'n', 't', 'a', 'i', 'n', 'e', 'r',
}

// Digest is a keyed BLAKE3 digest over a container's framing and payload.
type Digest [DigestSize]byte

// File is a decoded container: the codec parameters the payload was
// written with and the payload bytes.
type File struct {
	Payload []byte
	Config  codec.Config
}

// Sum computes the container digest of data.
func Sum(data []byte) Digest {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("container: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}

// Encode writes f framed as magic, version, flags, length bits, payload
// length, payload and digest.
func Encode(w io.Writer, f File) error {
	if err := f.Config.Validate(); err != nil {
		return err
	}
	if len(f.Payload) > MaxPayload {
		return errors.InvalidInput(errors.PhaseContainer, "payload exceeds container limit")
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(Version)
	buf.WriteByte(flagsOf(f.Config))
	buf.WriteByte(f.Config.LengthBits)
	buf.Write(binary.AppendUvarint(nil, uint64(len(f.Payload))))
	buf.Write(f.Payload)
	sum := Sum(buf.Bytes())
	buf.Write(sum[:])

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.IO(errors.PhaseContainer, errors.NoOffset, err)
	}
	return nil
}

// byteReader is what Decode reads through.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// Decode reads one container and verifies its digest. A digest mismatch is
// reported as invalid data and nothing of the payload is returned.
//
// When r implements io.ByteReader, Decode stops at the last digest byte, so
// containers can be read back to back from one stream. Other readers are
// buffered and may be consumed past the end of the container.
func Decode(r io.Reader) (File, error) {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	var framed bytes.Buffer
	tee := io.TeeReader(br, &framed)

	head := make([]byte, len(Magic)+3)
	if _, err := io.ReadFull(tee, head); err != nil {
		return File{}, readError(err, "container header")
	}
	if string(head[:len(Magic)]) != Magic {
		return File{}, errors.InvalidData(errors.PhaseContainer, nil, "not an SML container")
	}
	if v := head[len(Magic)]; v != Version {
		return File{}, errors.New(errors.PhaseContainer, errors.KindUnsupported).
			Value(v).
			Detail("container version %d", v).
			Build()
	}
	flags := head[len(Magic)+1]
	if flags&^knownFlags != 0 {
		return File{}, errors.New(errors.PhaseContainer, errors.KindInvalidData).
			Value(flags).
			Detail("unknown flags %#02x", flags).
			Build()
	}
	cfg := codec.DefaultConfig()
	cfg.LengthBits = head[len(Magic)+2]
	cfg.AlignHeader = flags&flagAlignHeader != 0
	if flags&flagPackedArrays != 0 {
		cfg.ArrayMode = codec.ArrayPacked
	}
	if err := cfg.Validate(); err != nil {
		return File{}, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "container codec parameters")
	}

	n, err := binary.ReadUvarint(byteTee{br, &framed})
	if err != nil {
		return File{}, readError(err, "payload length")
	}
	if n > MaxPayload {
		return File{}, errors.New(errors.PhaseContainer, errors.KindInvalidData).
			Value(n).
			Detail("payload length %d exceeds limit", n).
			Build()
	}
	// The buffer grows with the bytes read, not the declared length.
	var body bytes.Buffer
	if _, err := io.CopyN(&body, tee, int64(n)); err != nil {
		return File{}, readError(err, "payload")
	}
	payload := body.Bytes()

	var got Digest
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return File{}, readError(err, "digest")
	}
	if want := Sum(framed.Bytes()); got != want {
		codec.Logger().Warn("container digest mismatch",
			zap.Int("payload_bytes", len(payload)),
			zap.Binary("want", want[:]),
			zap.Binary("got", got[:]))
		return File{}, errors.InvalidData(errors.PhaseContainer, nil, "digest mismatch")
	}
	return File{Config: cfg, Payload: payload}, nil
}

// WriteValues encodes vs self-describing, closes the run with EndOfStream
// and writes the result as one container.
func WriteValues(w io.Writer, vs []value.Value, opts ...codec.Option) error {
	var payload bytes.Buffer
	bw := channel.NewWriter(&payload)
	enc, err := codec.NewEncoder(bw, opts...)
	if err != nil {
		return err
	}
	for i, v := range vs {
		if err := enc.Encode(v); err != nil {
			return errors.WithPath(err, "["+strconv.Itoa(i)+"]")
		}
	}
	if err := enc.WriteEndOfStream(); err != nil {
		return err
	}
	if err := bw.Close(); err != nil {
		return err
	}
	return Encode(w, File{Config: enc.Config(), Payload: payload.Bytes()})
}

// ReadValues reads a container written by WriteValues. The codec parameters
// come from the container; opts may only add a trace callback.
func ReadValues(r io.Reader, opts ...codec.Option) ([]value.Value, File, error) {
	f, err := Decode(r)
	if err != nil {
		return nil, File{}, err
	}
	cfg, err := codec.NewConfig(opts...)
	if err != nil {
		return nil, File{}, err
	}
	fileCfg := f.Config
	fileCfg.Trace = cfg.Trace

	dec, err := codec.NewDecoder(channel.NewReader(bytes.NewReader(f.Payload)), codec.WithConfig(fileCfg))
	if err != nil {
		return nil, File{}, err
	}
	var out []value.Value
	for {
		v, ok, err := dec.Next()
		if err != nil {
			return nil, f, errors.WithPath(err, "["+strconv.Itoa(len(out))+"]")
		}
		if !ok {
			return out, f, nil
		}
		out = append(out, v)
	}
}

func flagsOf(cfg codec.Config) byte {
	var flags byte
	if cfg.AlignHeader {
		flags |= flagAlignHeader
	}
	if cfg.ArrayMode == codec.ArrayPacked {
		flags |= flagPackedArrays
	}
	return flags
}

func readError(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(errors.PhaseContainer, errors.KindTruncatedInput, err, "input ended in "+what)
	}
	return errors.IO(errors.PhaseContainer, errors.NoOffset, err)
}

// byteTee records every byte read through it.
type byteTee struct {
	r   io.ByteReader
	out *bytes.Buffer
}

func (t byteTee) ReadByte() (byte, error) {
	b, err := t.r.ReadByte()
	if err == nil {
		t.out.WriteByte(b)
	}
	return b, err
}
