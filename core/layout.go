package core

import (
	"errors"
	"strconv"
)

// Advanced-control timer register map (TIM1/TIM8 on STM32L4/G4/H7).
// Offsets are bytes from the peripheral base.
//
// Output-compare mode: 24 + 4*i for channels 1-4, 84 for channels 5-6.
// Compare threshold:   52 + 4*i, except channel 5 at 88.
// Channel enable:      32, four bits per channel.

// RegisterSpec describes one register in the peripheral layout
type RegisterSpec struct {
	Name   string
	Offset uintptr
	Width  uint8 // implemented bits, counted from bit 0
}

var (
	regCR1   = RegisterSpec{"CR1", 0x00, 16}
	regEGR   = RegisterSpec{"EGR", 0x14, 16}
	regCCMR1 = RegisterSpec{"CCMR1", 0x18, 32}
	regCCMR2 = RegisterSpec{"CCMR2", 0x1C, 32}
	regCCER  = RegisterSpec{"CCER", 0x20, 32}
	regCNT   = RegisterSpec{"CNT", 0x24, 32}
	regPSC   = RegisterSpec{"PSC", 0x28, 16}
	regARR   = RegisterSpec{"ARR", 0x2C, 16}
	regCCR1  = RegisterSpec{"CCR1", 0x34, 16}
	regCCR2  = RegisterSpec{"CCR2", 0x38, 16}
	regCCR3  = RegisterSpec{"CCR3", 0x3C, 16}
	regCCR4  = RegisterSpec{"CCR4", 0x40, 16}
	regBDTR  = RegisterSpec{"BDTR", 0x44, 32}
	// Channel 6 threshold at 52+4*5, following the regular stride. On
	// STM32L4 silicon 0x48 is DCR and the real CCR6 sits at 0x5C, so
	// SetDuty(Ch6, ...) writes DCR there. The engine never drives channel 6.
	regCCR6  = RegisterSpec{"CCR6", 0x48, 16}
	regCCMR3 = RegisterSpec{"CCMR3", 0x54, 32}
	regCCR5  = RegisterSpec{"CCR5", 0x58, 32}
)

// Layout is the full register table used by this package
var Layout = []RegisterSpec{
	regCR1, regEGR, regCCMR1, regCCMR2, regCCER, regCNT, regPSC, regARR,
	regCCR1, regCCR2, regCCR3, regCCR4, regBDTR, regCCR6, regCCMR3, regCCR5,
}

// ErrInvalidLayout is returned when the register table does not fit a block
var ErrInvalidLayout = errors.New("invalid register layout")

// ValidateLayout checks that every register is word aligned, lies inside a
// block of blockSize bytes, fits in 32 bits and has a unique offset.
func ValidateLayout(layout []RegisterSpec, blockSize uintptr) error {
	seen := make(map[uintptr]string, len(layout))
	for _, r := range layout {
		switch {
		case r.Offset&3 != 0:
			return layoutError(r, "not word aligned")
		case r.Offset+4 > blockSize:
			return layoutError(r, "outside block of "+strconv.FormatUint(uint64(blockSize), 10)+" bytes")
		case r.Width == 0 || r.Width > 32:
			return layoutError(r, "bad width "+strconv.Itoa(int(r.Width)))
		}
		if other, dup := seen[r.Offset]; dup {
			return layoutError(r, "overlaps "+other)
		}
		seen[r.Offset] = r.Name
	}
	return nil
}

func layoutError(r RegisterSpec, msg string) error {
	return &layoutErr{reg: r.Name, offset: r.Offset, msg: msg}
}

type layoutErr struct {
	reg    string
	offset uintptr
	msg    string
}

func (e *layoutErr) Error() string {
	return "register " + e.reg + " at 0x" + strconv.FormatUint(uint64(e.offset), 16) + ": " + e.msg
}

func (e *layoutErr) Unwrap() error {
	return ErrInvalidLayout
}

// Field is a contiguous bit range inside a 32-bit register word
type Field struct {
	Shift uint8
	Width uint8
}

// Mask returns the in-place mask for the field
func (f Field) Mask() uint32 {
	return uint32((uint64(1)<<f.Width)-1) << f.Shift
}

// Get extracts the field value from w
func (f Field) Get(w uint32) uint32 {
	return (w & f.Mask()) >> f.Shift
}

// Set returns w with the field replaced by v; other bits are preserved
func (f Field) Set(w, v uint32) uint32 {
	m := f.Mask()
	return (w &^ m) | ((v << f.Shift) & m)
}

// Bit returns a single-bit field at position n
func Bit(n uint8) Field {
	return Field{Shift: n, Width: 1}
}
