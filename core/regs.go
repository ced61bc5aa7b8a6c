package core

// Block is a window onto one peripheral's register block.
// Offsets are byte offsets from the peripheral base and must be word aligned.
type Block interface {
	// Load32 reads the 32-bit register at offset
	Load32(offset uintptr) uint32

	// Store32 writes the 32-bit register at offset
	Store32(offset uintptr, value uint32)

	// Size returns the number of addressable bytes in the block
	Size() uintptr
}

// MemoryBlock is a Block backed by ordinary memory.
// Used by tests and by the host-side simulation of the timer.
type MemoryBlock struct {
	words []uint32
}

// NewMemoryBlock creates a zeroed block of size bytes (rounded down to words)
func NewMemoryBlock(size uintptr) *MemoryBlock {
	return &MemoryBlock{words: make([]uint32, size/4)}
}

func (m *MemoryBlock) index(offset uintptr) int {
	if offset&3 != 0 {
		panic("register offset not word aligned")
	}
	i := int(offset / 4)
	if i >= len(m.words) {
		panic("register offset outside block")
	}
	return i
}

func (m *MemoryBlock) Load32(offset uintptr) uint32 {
	return m.words[m.index(offset)]
}

func (m *MemoryBlock) Store32(offset uintptr, value uint32) {
	m.words[m.index(offset)] = value
}

// Reset zeroes every register, as a peripheral reset would
func (m *MemoryBlock) Reset() {
	for i := range m.words {
		m.words[i] = 0
	}
}

func (m *MemoryBlock) Size() uintptr {
	return uintptr(len(m.words)) * 4
}

// Reg is a typed view of a single register.
type Reg[T ~uint32] struct {
	block  Block
	offset uintptr
}

// Offset returns the byte offset of the register within its block
func (r Reg[T]) Offset() uintptr {
	return r.offset
}

// Read returns the live register value
func (r Reg[T]) Read() T {
	return T(r.block.Load32(r.offset))
}

// Write stores v into the register
func (r Reg[T]) Write(v T) {
	recordWrite(r.offset, uint32(v))
	r.block.Store32(r.offset, uint32(v))
}

// Modify reads the register, applies f and writes the result back.
// Not atomic: callers serialise access through the owning Engine.
func (r Reg[T]) Modify(f func(T) T) {
	r.Write(f(r.Read()))
}

// Registers resolves the advanced-control timer registers inside a Block.
type Registers struct {
	block Block
}

// Mode returns output-compare mode register n (0 and 1 for channels 1-4, 2 for channels 5-6)
func (r Registers) Mode(n int) Reg[ModeWord] {
	return Reg[ModeWord]{r.block, ModeRegisterOffset(n)}
}

// Compare returns the compare threshold register for channel index n
func (r Registers) Compare(n int) Reg[CompareWord] {
	return Reg[CompareWord]{r.block, CompareRegisterOffset(n)}
}

// Enable returns the channel enable register
func (r Registers) Enable() Reg[EnableWord] {
	return Reg[EnableWord]{r.block, EnableRegisterOffset}
}

func (r Registers) Control() Reg[ControlWord] {
	return Reg[ControlWord]{r.block, regCR1.Offset}
}

func (r Registers) Event() Reg[uint32] {
	return Reg[uint32]{r.block, regEGR.Offset}
}

func (r Registers) Counter() Reg[uint32] {
	return Reg[uint32]{r.block, regCNT.Offset}
}

func (r Registers) Prescaler() Reg[uint32] {
	return Reg[uint32]{r.block, regPSC.Offset}
}

func (r Registers) Reload() Reg[uint32] {
	return Reg[uint32]{r.block, regARR.Offset}
}

func (r Registers) BreakDeadTime() Reg[uint32] {
	return Reg[uint32]{r.block, regBDTR.Offset}
}
