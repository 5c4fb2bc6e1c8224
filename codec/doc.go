// Package codec encodes and decodes SML values on a bit channel.
//
// Two strategies cooperate. The self-describing Encoder and Decoder write
// every value with its type tag and, for integers, a nibble-count length
// field, so the stream can be read without any shared schema:
//
//	w := channel.NewWriter(&buf)
//	enc, _ := codec.NewEncoder(w)
//	enc.WriteU8(16)   // 00010 001 00010000
//	enc.WriteChar('a') // 00001 00 01100001
//	w.Close()
//
// The schema-elided PackedEncoder and PackedDecoder write bare payloads
// whose widths come from a shared header.Header. PackBatch computes the
// minimal header of a batch, writes it and packs every value under it.
//
// # Payload rules
//
//   - bool: one bit.
//   - unsigned: length field (Config.LengthBits wide) holding nibbles-1,
//     then nibbles*4 bits of the value. Zero takes one nibble.
//   - signed: sign bit, then the unsigned rule applied to the low bits of
//     the two's complement pattern, sized by the magnitude.
//   - char: 2-bit UTF-8 length class, then the raw UTF-8 bytes.
//   - float: precision bit (1 = f64), then the raw IEEE-754 bits under the
//     unsigned rule.
//   - struct: field count under the unsigned rule, then each field's type
//     tags and payload in declaration order.
//   - option: presence as a full bool (tag and bit), then the payload's
//     type tags and payload when present. The option's own type tags are
//     Option followed by the element's.
//   - array: a mode bit. Sequence mode writes self-describing items closed
//     by EndOfStream; packed mode writes a count, the element tag, a width
//     header and schema-elided items.
//
// Values whose significant bits exceed what the length field can address,
// or what a header slot declares, fail with a width_overflow error before
// any of their bits are written.
//
// Marshal and Unmarshal map Go values onto this model by reflection. Type
// plans are cached per Go type.
package codec
