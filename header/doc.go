// Package header implements the Width Header: the per-type bit widths that
// let a batch of values share one width declaration instead of carrying a
// tag and length each.
//
// A header has one width per Slot:
//
//	bool u8 u16 u32 u64 u128 i8 i16 i32 i64 i128 char f32 f64
//
// Width 0 means the slot never appears. The bool width is fixed at 1. The
// char width is the width of the UTF-8 length class (native 2), not of the
// code point.
//
// Headers form a monoid under Combine (elementwise max) with Zero as the
// identity, so the header for a batch is a fold over minimal per-value
// headers:
//
//	h, err := header.ForAll(values)
//
// On the wire a header is 14 fields of 8 bits in slot order, optionally
// followed by byte alignment padding.
package header
