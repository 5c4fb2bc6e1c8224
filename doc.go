// Package sml provides a compact, bit-granular, self-describing binary
// encoding for primitive scalars, options, structs and arrays.
//
// Every value is written with the fewest bits its magnitude needs. In the
// self-describing form a value carries a 5-bit type tag and, for integers,
// a nibble-count length field, so a stream can be decoded with no shared
// schema. In the schema-elided form values carry only their payload, sized
// by a Width Header both sides agree on.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	sml/           Root package with byte-slice Marshal/Unmarshal helpers
//	├── channel/   Bit channel over icza/bitio with position tracking
//	├── tag/       Closed type tag registry and its 5-bit wire form
//	├── value/     Tagged Value and Type model, 128-bit integers
//	├── header/    Width Header slots, merge laws and wire form
//	├── codec/     Self-describing and schema-elided codecs, Go struct plans
//	├── container/ Framed files with codec parameters and a BLAKE3 digest
//	├── transcode/ YAML and CBOR documents of values
//	├── config/    Configuration of the sml command
//	└── errors/    Structured error types for debugging
//
// # Quick Start
//
// Encode a Go value:
//
//	type Reading struct {
//	    Sensor uint16
//	    Delta  int32
//	    Unit   rune `sml:",char"`
//	    Note   *uint8
//	}
//
//	data, err := sml.Marshal(Reading{Sensor: 7, Delta: -3, Unit: 'C'})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var r Reading
//	err = sml.Unmarshal(data, &r)
//
// Struct fields are written in declaration order and must be read in the
// same order. Pointers become options; slices, arrays and strings become
// arrays.
//
// # Wire Format
//
//	u8 16       00010 001 00010000
//	char 'a'    00001 00 01100001
//	bool true   00000 1
//
// See package codec for the payload rules of every type.
//
// # Thread Safety
//
// Encoders and decoders are not safe for concurrent use. The package-level
// functions and the struct plan cache are.
package sml
