package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/sml"
	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/codec"
	"github.com/wippyai/sml/container"
	"github.com/wippyai/sml/header"
	"github.com/wippyai/sml/transcode"
	"github.com/wippyai/sml/value"
)

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sml %s [flags]\n", name)
		fs.PrintDefaults()
	}
	return fs
}

func (e *env) format(flag string) (transcode.Format, error) {
	if flag == "" {
		flag = e.cfg.Output.Format
	}
	return transcode.ParseFormat(flag)
}

func runEncode(e *env, args []string) error {
	fs := newFlags("encode")
	var (
		input  = fs.StringP("input", "i", "", "Document to read (default stdin)")
		output = fs.StringP("output", "o", "", "File to write (default stdout)")
		format = fs.StringP("format", "f", "", "Document format: yaml or cbor (default from config)")
		raw    = fs.Bool("raw", false, "Write the bare payload instead of a container")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := e.format(*format)
	if err != nil {
		return err
	}
	data, err := e.readInput(*input)
	if err != nil {
		return err
	}
	vs, err := transcode.Unmarshal(f, data)
	if err != nil {
		return err
	}
	opts, err := e.cfg.CodecOptions()
	if err != nil {
		return err
	}

	var out []byte
	if *raw {
		out, err = sml.EncodeValues(vs, opts...)
	} else {
		var buf bytes.Buffer
		err = container.WriteValues(&buf, vs, opts...)
		out = buf.Bytes()
	}
	if err != nil {
		return err
	}
	e.log.Debug("encoded values",
		zap.Int("values", len(vs)),
		zap.Int("bytes", len(out)),
		zap.Bool("raw", *raw))
	return e.writeOutput(*output, out)
}

func runDecode(e *env, args []string) error {
	fs := newFlags("decode")
	var (
		input  = fs.StringP("input", "i", "", "SML file to read (default stdin)")
		output = fs.StringP("output", "o", "", "Document to write (default stdout)")
		format = fs.StringP("format", "f", "", "Document format: yaml or cbor (default from config)")
		raw    = fs.Bool("raw", false, "Read a bare payload using the configured codec parameters")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := e.format(*format)
	if err != nil {
		return err
	}
	data, err := e.readInput(*input)
	if err != nil {
		return err
	}
	vs, err := e.decodeValues(data, *raw, nil)
	if err != nil {
		return err
	}
	doc, err := transcode.Marshal(f, vs)
	if err != nil {
		return err
	}
	return e.writeOutput(*output, doc)
}

// decodeValues reads a container, or a bare run when raw is set.
func (e *env) decodeValues(data []byte, raw bool, trace codec.TraceFunc) ([]value.Value, error) {
	if !raw {
		vs, _, err := container.ReadValues(bytes.NewReader(data), codec.WithTrace(trace))
		return vs, err
	}
	opts, err := e.cfg.CodecOptions()
	if err != nil {
		return nil, err
	}
	return sml.DecodeValues(data, append(opts, codec.WithTrace(trace))...)
}

func runHeader(e *env, args []string) error {
	fs := newFlags("header")
	var (
		input  = fs.StringP("input", "i", "", "Document to read (default stdin)")
		format = fs.StringP("format", "f", "", "Document format: yaml or cbor (default from config)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := e.format(*format)
	if err != nil {
		return err
	}
	data, err := e.readInput(*input)
	if err != nil {
		return err
	}
	vs, err := transcode.Unmarshal(f, data)
	if err != nil {
		return err
	}

	prims := leaves(vs)
	h, err := header.ForAll(prims)
	if err != nil {
		return err
	}
	opts, err := e.cfg.CodecOptions()
	if err != nil {
		return err
	}
	selfBits, err := selfDescribingBits(prims, opts)
	if err != nil {
		return err
	}
	headerBits := len(header.Slots()) * header.FieldBits
	packedBits := headerBits + codec.PackedSize(h, prims)

	var b strings.Builder
	for _, s := range header.Slots() {
		fmt.Fprintf(&b, "%-5s %3d / %3d\n", s, h.Width(s), s.Native())
	}
	fmt.Fprintf(&b, "\n%d primitive values\n", len(prims))
	fmt.Fprintf(&b, "self-describing  %6d bits\n", selfBits)
	fmt.Fprintf(&b, "schema-elided    %6d bits (header %d)\n", packedBits, headerBits)
	_, err = fmt.Fprint(e.stdout, b.String())
	return err
}

// leaves flattens composites to their primitive values in wire order.
func leaves(vs []value.Value) []value.Value {
	var out []value.Value
	var walk func(v value.Value)
	walk = func(v value.Value) {
		switch {
		case v.Tag().IsPrimitive():
			out = append(out, v)
		default:
			if inner, ok := v.Elem(); ok {
				walk(inner)
			}
			for _, f := range v.Fields() {
				walk(f)
			}
			for _, it := range v.Items() {
				walk(it)
			}
		}
	}
	for _, v := range vs {
		walk(v)
	}
	return out
}

func selfDescribingBits(vs []value.Value, opts []codec.Option) (int64, error) {
	w := channel.NewWriter(&bytes.Buffer{})
	enc, err := codec.NewEncoder(w, opts...)
	if err != nil {
		return 0, err
	}
	for _, v := range vs {
		if err := enc.Encode(v); err != nil {
			return 0, err
		}
	}
	return w.Position(), nil
}
