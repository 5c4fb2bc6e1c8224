// Package tag defines the closed vocabulary of SML type tags.
//
// Every self-describing value starts with a tag naming its shape. Tags are
// written as fixed 5-bit fields:
//
//	Code  Tag        Code  Tag
//	──────────────────────────────
//	0     bool       8     i8
//	1     char       9     i16
//	2     u8         10    i32
//	3     u16        11    i64
//	4     u32        12    i128
//	5     u64        13    float
//	6     u128       14    array
//	7     struct     15    option
//	                 31    end
//
// Codes 16 through 30 are unassigned. Reading one is an unknown_tag error.
// Codes are part of the wire format and never change meaning.
package tag
