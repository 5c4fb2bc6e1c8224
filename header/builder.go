package header

// Builder assembles a Header from a default base and per-slot overrides.
// Widths are validated once, in Build.
type Builder struct {
	h Header
}

// NewBuilder starts from native full widths.
func NewBuilder() *Builder {
	return &Builder{h: Native()}
}

// NewZeroBuilder starts from Zero: only bool reserved.
func NewZeroBuilder() *Builder {
	return &Builder{h: Zero()}
}

// With overrides the width of any slot.
func (b *Builder) With(s Slot, n uint8) *Builder {
	if s < numSlots {
		b.h.widths[s] = n
	}
	return b
}

func (b *Builder) WithU8Bits(n uint8) *Builder   { return b.With(SlotU8, n) }
func (b *Builder) WithU16Bits(n uint8) *Builder  { return b.With(SlotU16, n) }
func (b *Builder) WithU32Bits(n uint8) *Builder  { return b.With(SlotU32, n) }
func (b *Builder) WithU64Bits(n uint8) *Builder  { return b.With(SlotU64, n) }
func (b *Builder) WithU128Bits(n uint8) *Builder { return b.With(SlotU128, n) }
func (b *Builder) WithI8Bits(n uint8) *Builder   { return b.With(SlotI8, n) }
func (b *Builder) WithI16Bits(n uint8) *Builder  { return b.With(SlotI16, n) }
func (b *Builder) WithI32Bits(n uint8) *Builder  { return b.With(SlotI32, n) }
func (b *Builder) WithI64Bits(n uint8) *Builder  { return b.With(SlotI64, n) }
func (b *Builder) WithI128Bits(n uint8) *Builder { return b.With(SlotI128, n) }
func (b *Builder) WithCharBits(n uint8) *Builder { return b.With(SlotChar, n) }
func (b *Builder) WithF32Bits(n uint8) *Builder  { return b.With(SlotF32, n) }
func (b *Builder) WithF64Bits(n uint8) *Builder  { return b.With(SlotF64, n) }

// Build validates every width against its slot's native width (at most
// MaxWidth) and returns the header.
func (b *Builder) Build() (Header, error) {
	for s, w := range b.h.widths {
		if err := checkWidth(Slot(s), uint64(w)); err != nil {
			return Header{}, err
		}
	}
	return b.h, nil
}

// MustBuild is Build for widths known to be valid. It panics otherwise.
func (b *Builder) MustBuild() Header {
	h, err := b.Build()
	if err != nil {
		panic(err)
	}
	return h
}
