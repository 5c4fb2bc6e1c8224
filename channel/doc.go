// Package channel provides the bit channel the SML codec writes to and
// reads from.
//
// A channel is an ordered sink or source of unsigned fields between 0 and
// 64 bits wide, packed most-significant bit first, plus raw byte runs that
// need not start on a byte boundary. Both sides can align to the next byte
// boundary; aligning an aligned cursor is a no-op.
//
// The codec only depends on the BitWriter and BitReader interfaces. Writer
// and Reader implement them on top of github.com/icza/bitio and track the
// bit cursor so errors can report where they happened. A Reader reports an
// exhausted source as a truncated_input error.
//
// Channels are not safe for concurrent use.
package channel
