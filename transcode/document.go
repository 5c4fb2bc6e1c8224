package transcode

import (
	"bytes"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/value"
)

// Format names a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts "yaml", "yml" and "cbor".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return "", errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(s).
		Detail("unknown document format %q", s).
		Build()
}

// encMode uses Core Deterministic Encoding so equal documents produce
// identical bytes.
var encMode cbor.EncMode

// decMode rejects fields Node does not define.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transcode: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("transcode: CBOR decoder initialization failed: " + err.Error())
	}
}

// NewDocument converts a run of values.
func NewDocument(vs []value.Value) (Document, error) {
	nodes, err := fromValues(vs, "values")
	if err != nil {
		return Document{}, err
	}
	return Document{Values: nodes}, nil
}

// ToValues converts every node of d.
func (d Document) ToValues() ([]value.Value, error) {
	return toValues(d.Values, "values")
}

// Marshal writes vs as a document in format f.
func Marshal(f Format, vs []value.Value) ([]byte, error) {
	doc, err := NewDocument(vs)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, errors.Wrap(errors.PhaseEncode, errors.KindIO, err, "yaml document")
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(errors.PhaseEncode, errors.KindIO, err, "yaml document")
		}
		return buf.Bytes(), nil
	case FormatCBOR:
		data, err := encMode.Marshal(doc)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseEncode, errors.KindIO, err, "cbor document")
		}
		return data, nil
	}
	return nil, errors.Unsupported(errors.PhaseEncode, "document format "+string(f))
}

// Unmarshal reads a document in format f and converts its values.
func Unmarshal(f Format, data []byte) ([]value.Value, error) {
	var doc Document
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "yaml document")
		}
	case FormatCBOR:
		if err := decMode.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "cbor document")
		}
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, "document format "+string(f))
	}
	return doc.ToValues()
}
