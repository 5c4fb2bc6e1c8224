package header

import (
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// Slot indexes one primitive type in a Header. Slots follow registry
// declaration order, with float split by precision.
type Slot uint8

const (
	SlotBool Slot = iota
	SlotU8
	SlotU16
	SlotU32
	SlotU64
	SlotU128
	SlotI8
	SlotI16
	SlotI32
	SlotI64
	SlotI128
	SlotChar
	SlotF32
	SlotF64

	numSlots
)

type slotInfo struct {
	name   string
	tag    tag.Tag
	native uint8
}

var slotTable = [numSlots]slotInfo{
	SlotBool: {"bool", tag.Bool, 1},
	SlotU8:   {"u8", tag.U8, 8},
	SlotU16:  {"u16", tag.U16, 16},
	SlotU32:  {"u32", tag.U32, 32},
	SlotU64:  {"u64", tag.U64, 64},
	SlotU128: {"u128", tag.U128, 128},
	SlotI8:   {"i8", tag.I8, 8},
	SlotI16:  {"i16", tag.I16, 16},
	SlotI32:  {"i32", tag.I32, 32},
	SlotI64:  {"i64", tag.I64, 64},
	SlotI128: {"i128", tag.I128, 128},
	SlotChar: {"char", tag.Char, 2},
	SlotF32:  {"f32", tag.Float, 32},
	SlotF64:  {"f64", tag.Float, 64},
}

func (s Slot) String() string {
	if s < numSlots {
		return slotTable[s].name
	}
	return "unknown"
}

// Native returns the slot's full width: the storage width for integers and
// floats, the UTF-8 length class width for char.
func (s Slot) Native() uint8 {
	if s < numSlots {
		return slotTable[s].native
	}
	return 0
}

// Tag returns the registry tag values of this slot carry.
func (s Slot) Tag() tag.Tag {
	return slotTable[s].tag
}

// Signed reports whether the slot holds two's complement integers.
func (s Slot) Signed() bool {
	return s >= SlotI8 && s <= SlotI128
}

// Slots returns every slot in wire order.
func Slots() []Slot {
	out := make([]Slot, numSlots)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// SlotFor maps a primitive tag to its slot. double selects the float slot.
func SlotFor(t tag.Tag, double bool) (Slot, bool) {
	if t == tag.Float {
		if double {
			return SlotF64, true
		}
		return SlotF32, true
	}
	for s, info := range slotTable {
		if info.tag == t {
			return Slot(s), true
		}
	}
	return 0, false
}

// SlotOf returns the slot of a primitive value.
func SlotOf(v value.Value) (Slot, bool) {
	return SlotFor(v.Tag(), v.IsDouble())
}

// ParseSlot looks a slot up by name.
func ParseSlot(name string) (Slot, bool) {
	for s, info := range slotTable {
		if info.name == name {
			return Slot(s), true
		}
	}
	return 0, false
}
