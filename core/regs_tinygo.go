//go:build tinygo

package core

import (
	"runtime/volatile"
	"unsafe"
)

// advancedTimerSize is the address space reserved for one TIM1/TIM8 instance
const advancedTimerSize = 0x400

// mmioBlock accesses a peripheral through volatile loads and stores
type mmioBlock struct {
	base uintptr
}

// MMIO returns a Block for the peripheral mapped at base.
func MMIO(base uintptr) Block {
	return mmioBlock{base: base}
}

func (m mmioBlock) reg(offset uintptr) *volatile.Register32 {
	if offset&3 != 0 || offset >= advancedTimerSize {
		panic("register offset outside peripheral")
	}
	return (*volatile.Register32)(unsafe.Pointer(m.base + offset))
}

func (m mmioBlock) Load32(offset uintptr) uint32 {
	return m.reg(offset).Get()
}

func (m mmioBlock) Store32(offset uintptr, value uint32) {
	m.reg(offset).Set(value)
}

func (m mmioBlock) Size() uintptr {
	return advancedTimerSize
}
