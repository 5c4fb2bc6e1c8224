// Package errors provides structured error types for the SML codec.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, SML/Go type names, the bit
// offset in the channel and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("field[1]").
//		Type("bool").
//		Offset(42).
//		Detail("found u8").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownTag(offset, code)
//	err := errors.WidthOverflow(errors.PhaseEncode, "u64", v, 33, 32)
//
// All errors implement the standard error interface and support errors.Is/As.
// HasKind matches on Kind alone, which is what most callers of the codec want.
package errors
