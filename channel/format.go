package channel

import "strings"

// FormatBits renders the first n bits of data MSB-first, one space between
// bytes. n larger than the data is clamped.
func FormatBits(data []byte, n int64) string {
	if limit := int64(len(data)) * 8; n > limit {
		n = limit
	}
	var b strings.Builder
	b.Grow(int(n + n/8))
	for i := int64(0); i < n; i++ {
		if i > 0 && i%8 == 0 {
			b.WriteByte(' ')
		}
		if data[i/8]&(0x80>>(i%8)) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
