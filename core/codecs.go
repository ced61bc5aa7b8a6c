package core

// EnableField selects one of the four per-channel bits in the enable register
type EnableField uint8

const (
	FieldEnable EnableField = iota
	FieldPolarity
	FieldComplementaryEnable
	FieldComplementaryPolarity

	numEnableFields = 4
)

// EnableWord is the channel enable register: four bits per channel,
// {enable, polarity, complementary enable, complementary polarity} at 4n+0..4n+3.
type EnableWord uint32

func enableBit(field EnableField, n int) Field {
	mustChannel(n)
	if field >= numEnableFields {
		panic("invalid enable field")
	}
	return Bit(uint8(4*n) + uint8(field))
}

// Get returns the given field of channel n
func (w EnableWord) Get(field EnableField, n int) bool {
	return enableBit(field, n).Get(uint32(w)) != 0
}

// Set updates the given field of channel n; all other bits are preserved
func (w *EnableWord) Set(field EnableField, n int, v bool) {
	*w = EnableWord(enableBit(field, n).Set(uint32(*w), b2u(v)))
}

func (w EnableWord) Enabled(n int) bool {
	return w.Get(FieldEnable, n)
}

func (w *EnableWord) SetEnabled(n int, v bool) {
	w.Set(FieldEnable, n, v)
}

// Compare register fields
var (
	compareStandard = Field{Shift: 0, Width: 16}
	compareExtended = Field{Shift: 0, Width: 32}
	compareGroupC1  = Bit(29) // GC5C1: combine channel 5 into channel 1
	// GC5C1..GC5C3, none of which is part of the channel 5 threshold
	compareGroupAll = Field{Shift: 29, Width: 3}
)

// CompareWord backs a compare threshold register.
// Channels 1-4 use bits [0:16); channel 5 uses the whole word for its
// threshold plus the group bit.
type CompareWord uint32

// Standard returns the 16-bit threshold
func (w CompareWord) Standard() uint16 {
	return uint16(compareStandard.Get(uint32(w)))
}

// SetStandard replaces bits [0:16) and preserves the rest
func (w *CompareWord) SetStandard(v uint16) {
	*w = CompareWord(compareStandard.Set(uint32(*w), uint32(v)))
}

// SetExtended overwrites the whole word. The channel 5 register carries no
// other sub-fields, so nothing is preserved (including the group bit).
func (w *CompareWord) SetExtended(v uint32) {
	*w = CompareWord(compareExtended.Set(uint32(*w), v))
}

// Extended returns the channel 5 threshold without the group bits
func (w CompareWord) Extended() uint32 {
	return uint32(w) &^ compareGroupAll.Mask()
}

// SetGroupBit ORs in the group bit. There is no clear operation.
func (w *CompareWord) SetGroupBit() {
	*w |= CompareWord(compareGroupC1.Mask())
}

// Grouped reports whether the group bit is set
func (w CompareWord) Grouped() bool {
	return compareGroupC1.Get(uint32(w)) != 0
}

// OutputCompareMode selects a channel's output-compare behaviour
type OutputCompareMode uint8

const (
	ModeFrozen          OutputCompareMode = 0
	ModeActiveOnMatch   OutputCompareMode = 1
	ModeInactiveOnMatch OutputCompareMode = 2
	ModeToggle          OutputCompareMode = 3
	ModeForceInactive   OutputCompareMode = 4
	ModeForceActive     OutputCompareMode = 5
	ModePWM1            OutputCompareMode = 6 // active while counter < threshold
	ModePWM2            OutputCompareMode = 7 // active while counter >= threshold

	ModeRetriggerableOPM1 OutputCompareMode = 8
	ModeRetriggerableOPM2 OutputCompareMode = 9
	ModeCombinedPWM1      OutputCompareMode = 12
	ModeCombinedPWM2      OutputCompareMode = 13
	ModeAsymmetricPWM1    OutputCompareMode = 14
	ModeAsymmetricPWM2    OutputCompareMode = 15
)

func (m OutputCompareMode) String() string {
	switch m {
	case ModeFrozen:
		return "frozen"
	case ModeActiveOnMatch:
		return "active-on-match"
	case ModeInactiveOnMatch:
		return "inactive-on-match"
	case ModeToggle:
		return "toggle"
	case ModeForceInactive:
		return "force-inactive"
	case ModeForceActive:
		return "force-active"
	case ModePWM1:
		return "pwm1"
	case ModePWM2:
		return "pwm2"
	case ModeRetriggerableOPM1:
		return "retrig-opm1"
	case ModeRetriggerableOPM2:
		return "retrig-opm2"
	case ModeCombinedPWM1:
		return "combined-pwm1"
	case ModeCombinedPWM2:
		return "combined-pwm2"
	case ModeAsymmetricPWM1:
		return "asymmetric-pwm1"
	case ModeAsymmetricPWM2:
		return "asymmetric-pwm2"
	}
	return "reserved"
}

// ModeWord is an output-compare mode register holding two channels.
// Per half s (0 or 1): CCxS at 8s, OCxPE at 8s+3, OCxM[2:0] at 8s+4 and
// OCxM[3] at 16+8s.
type ModeWord uint32

func modeFields(half int) (low, high, preload, sel Field) {
	if half < 0 || half > 1 {
		panic("mode register half out of range")
	}
	s := uint8(8 * half)
	return Field{Shift: s + 4, Width: 3}, Bit(16 + s), Bit(s + 3), Field{Shift: s, Width: 2}
}

// Mode returns the output-compare mode of the given half
func (w ModeWord) Mode(half int) OutputCompareMode {
	low, high, _, _ := modeFields(half)
	return OutputCompareMode(low.Get(uint32(w)) | high.Get(uint32(w))<<3)
}

// SetMode selects the output-compare mode of the given half and forces the
// capture/compare selection to output.
func (w *ModeWord) SetMode(half int, m OutputCompareMode) {
	low, high, _, sel := modeFields(half)
	v := low.Set(uint32(*w), uint32(m)&7)
	v = high.Set(v, uint32(m)>>3)
	*w = ModeWord(sel.Set(v, 0))
}

func (w ModeWord) Preload(half int) bool {
	_, _, preload, _ := modeFields(half)
	return preload.Get(uint32(w)) != 0
}

func (w *ModeWord) SetPreload(half int, v bool) {
	_, _, preload, _ := modeFields(half)
	*w = ModeWord(preload.Set(uint32(*w), b2u(v)))
}

// CountingMode is the counter direction and alignment
type CountingMode uint8

const (
	EdgeAlignedUp CountingMode = iota
	EdgeAlignedDown
	CenterAligned1
	CenterAligned2
	CenterAligned3
)

// Control register fields
var (
	controlEnable    = Bit(0) // CEN
	controlDirection = Bit(4) // DIR, 1 = down
	controlCenter    = Field{Shift: 5, Width: 2}
	controlPreload   = Bit(7) // ARPE
)

// ControlWord is the timer control register
type ControlWord uint32

func (w ControlWord) Running() bool {
	return controlEnable.Get(uint32(w)) != 0
}

func (w *ControlWord) SetRunning(v bool) {
	*w = ControlWord(controlEnable.Set(uint32(*w), b2u(v)))
}

func (w *ControlWord) SetReloadPreload(v bool) {
	*w = ControlWord(controlPreload.Set(uint32(*w), b2u(v)))
}

// CountingMode decodes direction and alignment
func (w ControlWord) CountingMode() CountingMode {
	if cms := controlCenter.Get(uint32(w)); cms != 0 {
		return CenterAligned1 + CountingMode(cms-1)
	}
	if controlDirection.Get(uint32(w)) != 0 {
		return EdgeAlignedDown
	}
	return EdgeAlignedUp
}

func (w *ControlWord) SetCountingMode(m CountingMode) {
	v := uint32(*w)
	switch m {
	case EdgeAlignedUp:
		v = controlCenter.Set(v, 0)
		v = controlDirection.Set(v, 0)
	case EdgeAlignedDown:
		v = controlCenter.Set(v, 0)
		v = controlDirection.Set(v, 1)
	case CenterAligned1, CenterAligned2, CenterAligned3:
		v = controlCenter.Set(v, uint32(m-CenterAligned1)+1)
	default:
		panic("invalid counting mode")
	}
	*w = ControlWord(v)
}

// Break and dead-time register
var breakMainOutput = Bit(15) // MOE

// Event generation register
var eventUpdate = Bit(0) // UG

func b2u(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
