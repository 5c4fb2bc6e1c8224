// Package value defines the in-memory model the SML codec encodes and
// decodes: Value, a tagged variant covering every registered tag, and
// Type, the shape descriptor used for options, structs and typed decode.
//
// Values are immutable. Construct them with the per-kind constructors and
// read them back with the matching accessor:
//
//	v := value.Struct(value.Uint8(16), value.Bool(true))
//	v.Fields()[0].Uint() // 16
//
// Types have a compact text form, parsed by ParseType:
//
//	u8  i128  char  float  option<u8>  struct{u8,bool}  array<u16>
package value
