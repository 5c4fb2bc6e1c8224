package sml

import (
	"bytes"
	"strconv"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/codec"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/value"
)

// Marshal encodes the Go value v self-describing. The last byte is padded
// with zero bits.
func Marshal(v any, opts ...codec.Option) ([]byte, error) {
	return encode(func(e *codec.Encoder) error { return codec.Marshal(e, v) }, opts)
}

// Unmarshal decodes one value from data into the value ptr points to.
func Unmarshal(data []byte, ptr any, opts ...codec.Option) error {
	d, err := codec.NewDecoder(channel.NewReader(bytes.NewReader(data)), opts...)
	if err != nil {
		return err
	}
	return codec.Unmarshal(d, ptr)
}

// Encode writes a single value self-describing.
func Encode(v value.Value, opts ...codec.Option) ([]byte, error) {
	return encode(func(e *codec.Encoder) error { return e.Encode(v) }, opts)
}

// Decode reads a single value.
func Decode(data []byte, opts ...codec.Option) (value.Value, error) {
	d, err := codec.NewDecoder(channel.NewReader(bytes.NewReader(data)), opts...)
	if err != nil {
		return value.Value{}, err
	}
	return d.Decode()
}

// EncodeValues writes vs back to back and closes the run with EndOfStream.
func EncodeValues(vs []value.Value, opts ...codec.Option) ([]byte, error) {
	return encode(func(e *codec.Encoder) error {
		for i, v := range vs {
			if err := e.Encode(v); err != nil {
				return errors.WithPath(err, "["+strconv.Itoa(i)+"]")
			}
		}
		return e.WriteEndOfStream()
	}, opts)
}

// DecodeValues reads a run written by EncodeValues.
func DecodeValues(data []byte, opts ...codec.Option) ([]value.Value, error) {
	d, err := codec.NewDecoder(channel.NewReader(bytes.NewReader(data)), opts...)
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for {
		v, ok, err := d.Next()
		if err != nil {
			return nil, errors.WithPath(err, "["+strconv.Itoa(len(out))+"]")
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

func encode(fn func(e *codec.Encoder) error, opts []codec.Option) ([]byte, error) {
	var buf bytes.Buffer
	w := channel.NewWriter(&buf)
	e, err := codec.NewEncoder(w, opts...)
	if err != nil {
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
