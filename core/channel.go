package core

import "strconv"

// Channel is a zero-based timer channel index (Ch1 is hardware channel 1)
type Channel uint8

const (
	Ch1 Channel = iota
	Ch2
	Ch3
	Ch4
	Ch5
	Ch6

	NumChannels = 6
)

// modeRegisterCount is the number of output-compare mode registers (two channels each)
const modeRegisterCount = 3

func (c Channel) String() string {
	return "CH" + strconv.Itoa(int(c)+1)
}

// slot places a channel in the peripheral's address map.
// Channels 1-4 live in the evenly strided block; channels 5-6 were added
// later at disjoint offsets and are described by their own variant.
type slot interface {
	modeOffset() uintptr
	compareOffset() uintptr
	hasComplementary() bool
}

// standardSlot covers channels 1-4
type standardSlot struct {
	index uint8 // 0..3
}

func (s standardSlot) modeOffset() uintptr {
	return regCCMR1.Offset + 4*uintptr(s.index/2)
}

func (s standardSlot) compareOffset() uintptr {
	return regCCR1.Offset + 4*uintptr(s.index)
}

// Channel 4 has no complementary output on this family
func (s standardSlot) hasComplementary() bool {
	return s.index < 3
}

// extendedSlot covers channels 5-6
type extendedSlot struct {
	index uint8 // 0..1
}

var extendedCompareOffsets = [2]uintptr{regCCR5.Offset, regCCR6.Offset}

func (s extendedSlot) modeOffset() uintptr {
	return regCCMR3.Offset
}

func (s extendedSlot) compareOffset() uintptr {
	return extendedCompareOffsets[s.index]
}

func (s extendedSlot) hasComplementary() bool {
	return false
}

// slots is the exhaustive channel table, indexed by Channel
var slots = [NumChannels]slot{
	standardSlot{0},
	standardSlot{1},
	standardSlot{2},
	standardSlot{3},
	extendedSlot{0},
	extendedSlot{1},
}

func mustChannel(n int) Channel {
	if n < 0 || n >= NumChannels {
		panic("channel index " + strconv.Itoa(n) + " out of range [0,6)")
	}
	return Channel(n)
}

func (c Channel) slot() slot {
	return slots[mustChannel(int(c))]
}

// modeSubfield returns which half of its mode register the channel occupies
func (c Channel) modeSubfield() int {
	return int(mustChannel(int(c))) % 2
}

// Extended reports whether the channel lives outside the regular register block
func (c Channel) Extended() bool {
	_, ok := c.slot().(extendedSlot)
	return ok
}

// HasComplementary reports whether the channel drives a complementary output
func (c Channel) HasComplementary() bool {
	return c.slot().hasComplementary()
}

// ModeRegisterOffset resolves output-compare mode register n.
// Registers 0 and 1 hold channels 1-4, register 2 holds channels 5-6.
// Panics for n outside [0,3).
func ModeRegisterOffset(n int) uintptr {
	if n < 0 || n >= modeRegisterCount {
		panic("mode register index " + strconv.Itoa(n) + " out of range [0,3)")
	}
	return slots[2*n].modeOffset()
}

// CompareRegisterOffset resolves the compare threshold register for
// channel index n. Panics for n outside [0,6).
func CompareRegisterOffset(n int) uintptr {
	return mustChannel(n).slot().compareOffset()
}

// EnableRegisterOffset is the channel enable register shared by all channels
const EnableRegisterOffset = 0x20
