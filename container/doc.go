// Package container frames an SML payload as a self-contained file.
//
// Layout, byte aligned:
//
//	"SML" | version | flags | length bits | uvarint payload length | payload | digest
//
// Flags bit 0 records header alignment and bit 1 packed arrays. The digest
// is a 32-byte keyed BLAKE3 hash over every byte before it, so a decoder
// learns the codec parameters from the file and rejects corrupted payloads
// before decoding a single value.
package container
