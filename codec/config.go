package codec

import (
	"github.com/wippyai/sml/errors"
)

// Length field bounds. A length field of n bits addresses up to 2^n
// nibbles, so the default of 3 covers 32 significant bits.
const (
	MinLengthBits     = 3
	MaxLengthBits     = 5
	DefaultLengthBits = 3
)

// ArrayMode selects how array payloads are laid out.
type ArrayMode uint8

const (
	// ArraySequence writes every item self-describing and closes the run
	// with an EndOfStream tag.
	ArraySequence ArrayMode = iota
	// ArrayPacked writes a count, one element tag and a width header, then
	// every item schema-elided. Arrays that cannot be packed (empty, mixed
	// or composite items) fall back to ArraySequence.
	ArrayPacked
)

var arrayModeNames = [...]string{
	ArraySequence: "sequence",
	ArrayPacked:   "packed",
}

func (m ArrayMode) String() string {
	if int(m) < len(arrayModeNames) {
		return arrayModeNames[m]
	}
	return "unknown"
}

// ParseArrayMode parses "sequence" or "packed".
func ParseArrayMode(s string) (ArrayMode, error) {
	for m, name := range arrayModeNames {
		if name == s {
			return ArrayMode(m), nil
		}
	}
	return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(s).
		Detail("unknown array mode %q", s).
		Build()
}

// Config holds the wire parameters shared by an encoder and the decoder
// reading its output. Both sides must agree on every field except Trace.
type Config struct {
	Trace       TraceFunc
	LengthBits  uint8
	AlignHeader bool
	ArrayMode   ArrayMode
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{LengthBits: DefaultLengthBits}
}

// MaxNibbles is the largest nibble count the length field can express.
func (c Config) MaxNibbles() int {
	return 1 << c.LengthBits
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.LengthBits < MinLengthBits || c.LengthBits > MaxLengthBits {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(c.LengthBits).
			Detail("length bits must be in [%d, %d], got %d", MinLengthBits, MaxLengthBits, c.LengthBits).
			Build()
	}
	if int(c.ArrayMode) >= len(arrayModeNames) {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(uint8(c.ArrayMode)).
			Detail("unknown array mode %d", c.ArrayMode).
			Build()
	}
	return nil
}

// Option configures an encoder or decoder.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

// WithLengthBits sets the width of the nibble-count field.
func WithLengthBits(n uint8) Option {
	return func(c *Config) { c.LengthBits = n }
}

// WithAlignHeader byte-aligns the channel after every width header.
func WithAlignHeader(align bool) Option {
	return func(c *Config) { c.AlignHeader = align }
}

// WithArrayMode selects the array layout used by the encoder.
func WithArrayMode(m ArrayMode) Option {
	return func(c *Config) { c.ArrayMode = m }
}

// WithTrace installs a callback receiving one event per wire field.
func WithTrace(fn TraceFunc) Option {
	return func(c *Config) { c.Trace = fn }
}

// NewConfig applies opts over DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
