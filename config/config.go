// Package config loads the settings of the sml command.
//
// Configuration comes from a single YAML file named by the --config flag
// or the SML_CONFIG environment variable. There is no discovery: with
// neither set, the built-in defaults apply.
//
//	codec:
//	  length_bits: 4
//	  align_header: true
//	  array_mode: packed
//	output:
//	  format: yaml
//	  color: auto
package config

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/sml/codec"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/transcode"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "SML_CONFIG"

// Color modes for terminal output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the sml command configuration.
type Config struct {
	// Codec holds the wire parameters. Readers of the output must use the
	// same values unless the output is a container.
	Codec CodecConfig `yaml:"codec"`

	Output OutputConfig `yaml:"output"`
}

// CodecConfig mirrors codec.Config.
type CodecConfig struct {
	// LengthBits is the width of the nibble-count field, 3 to 5.
	LengthBits uint8 `yaml:"length_bits"`

	// AlignHeader byte-aligns the channel after every width header.
	AlignHeader bool `yaml:"align_header"`

	// ArrayMode is "sequence" or "packed".
	ArrayMode string `yaml:"array_mode"`
}

// OutputConfig controls how decoded values and traces are shown.
type OutputConfig struct {
	// Format is the document format of decoded values: yaml or cbor.
	Format string `yaml:"format"`

	// Color is auto, always or never.
	Color string `yaml:"color"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			LengthBits: codec.DefaultLengthBits,
			ArrayMode:  codec.ArraySequence.String(),
		},
		Output: OutputConfig{
			Format: string(transcode.FormatYAML),
			Color:  ColorAuto,
		},
	}
}

// Load resolves the configuration: path when non-empty, else the file
// named by SML_CONFIG, else Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindIO).
			Value(path).
			Cause(err).
			Detail("read config file").
			Build()
	}
	return Parse(data)
}

// Parse decodes YAML config data over the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := c.CodecOptions(); err != nil {
		return err
	}
	if _, err := transcode.ParseFormat(c.Output.Format); err != nil {
		return errors.WithPath(err, "output", "format")
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("output", "color").
			Value(c.Output.Color).
			Detail("color must be auto, always or never").
			Build()
	}
	return nil
}

// CodecOptions converts the codec section to encoder and decoder options.
func (c *Config) CodecOptions() ([]codec.Option, error) {
	mode, err := codec.ParseArrayMode(c.Codec.ArrayMode)
	if err != nil {
		return nil, errors.WithPath(err, "codec", "array_mode")
	}
	opts := []codec.Option{
		codec.WithLengthBits(c.Codec.LengthBits),
		codec.WithAlignHeader(c.Codec.AlignHeader),
		codec.WithArrayMode(mode),
	}
	if _, err := codec.NewConfig(opts...); err != nil {
		return nil, errors.WithPath(err, "codec")
	}
	return opts, nil
}
