package core

import (
	"errors"
	"fmt"
	"strconv"
)

// Channel roles. The group bit in the channel 5 compare register (GC5C1)
// combines channel 5 into channel 1, which fixes the standard channel.
const (
	StandardChannel  = Ch1
	ReferenceChannel = Ch2
	ExtendedChannel  = Ch5
)

// EngineState tracks how far the activation sequence has progressed
type EngineState uint8

const (
	Uninitialized EngineState = iota
	Configured                // counting mode and period programmed
	Running                   // counter and main output on, channels off
	Active                    // channels enabled and phase locked
	Released                  // outputs off, peripheral handed back
)

func (s EngineState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Active:
		return "active"
	case Released:
		return "released"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Config is the compile-time description of one phase-shifted output pair
type Config struct {
	Frequency    Hertz
	StandardPin  Pin // channel 1 output, carries the shifted waveform
	ReferencePin Pin // channel 2 complementary output, 50% reference
	Drive        DriveMode
}

// Thresholds are the compare values for the three channels involved
type Thresholds struct {
	Reference uint32
	Standard  uint32
	Extended  uint32
}

// QuadratureThresholds returns the compare values giving a quarter-period
// shift: reference 1/2, standard 3/4 and extended 1/4 of maxDuty, rounded
// half up.
func QuadratureThresholds(maxDuty uint32) Thresholds {
	return phaseThresholds(maxDuty, 1, 4)
}

// phaseThresholds places the combined edge phase = num/den of a period
// after the reference edge, for 0 < num/den < 1/2.
func phaseThresholds(maxDuty, num, den uint32) Thresholds {
	return Thresholds{
		Reference: scaleDuty(maxDuty, 1, 2),
		Standard:  scaleDuty(maxDuty, den+2*num, 2*den),
		Extended:  scaleDuty(maxDuty, num, den),
	}
}

func scaleDuty(maxDuty, num, den uint32) uint32 {
	return uint32((uint64(maxDuty)*uint64(num) + uint64(den)/2) / uint64(den))
}

// standardDutyLimit is the widest threshold a 16-bit compare register holds
const standardDutyLimit = 0xFFFF

var ErrPeripheralClaimed = errors.New("timer peripheral already claimed")

// owners maps each wrapped register block to its Peripheral.
// Block implementations must be comparable; MMIO blocks compare by base.
var owners = map[Block]*Peripheral{}

// Peripheral is the single owner context for one timer's register block.
// Build it once at startup and hand it to NewEngine.
type Peripheral struct {
	regs    Registers
	claimed bool
}

// NewPeripheral validates the register layout against block and takes
// ownership of it. Wrapping a block that already has an owner fails with
// ErrPeripheralClaimed until that owner's engine is released.
func NewPeripheral(block Block) (*Peripheral, error) {
	if block == nil {
		return nil, errors.New("nil register block")
	}
	if err := ValidateLayout(Layout, block.Size()); err != nil {
		return nil, err
	}

	is := disableInterrupts()
	defer restoreInterrupts(is)

	if _, taken := owners[block]; taken {
		return nil, ErrPeripheralClaimed
	}
	p := &Peripheral{regs: Registers{block: block}}
	owners[block] = p
	return p, nil
}

// acquire marks p as driven by an engine, re-taking its block if a
// release handed it back
func (p *Peripheral) acquire() error {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	if p.claimed {
		return ErrPeripheralClaimed
	}
	if owner, taken := owners[p.regs.block]; taken && owner != p {
		return ErrPeripheralClaimed
	}
	owners[p.regs.block] = p
	p.claimed = true
	return nil
}

func (p *Peripheral) release() {
	p.claimed = false
	if owners[p.regs.block] == p {
		delete(owners, p.regs.block)
	}
}

// Registers exposes the typed register views, for inspection and tests
func (p *Peripheral) Registers() Registers {
	return p.regs
}

// Engine sequences the register writes that bring channel 1 into a
// quarter-period phase shift against channel 2, using channel 5 grouping.
// It keeps no copy of hardware state beyond what it was asked to program.
type Engine struct {
	p     *Peripheral
	regs  Registers
	hal   TimerHAL
	state EngineState

	requested Hertz
	achieved  Hertz
}

// NewEngine claims p. A second claim fails until the first engine is released,
// as does a claim on a Peripheral whose block was since wrapped again.
func NewEngine(p *Peripheral, hal TimerHAL) (*Engine, error) {
	if p == nil || hal == nil {
		return nil, errors.New("engine needs a peripheral and a timer HAL")
	}
	if err := p.acquire(); err != nil {
		return nil, err
	}
	return &Engine{p: p, regs: p.regs, hal: hal}, nil
}

// State returns the current engine state
func (e *Engine) State() EngineState {
	return e.state
}

func (e *Engine) mustOwn() {
	if e.state == Released {
		panic("timer engine used after release")
	}
}

// Activate runs the full bring-up with interrupts masked. The write order
// matters: the group bit must not be set before all three thresholds hold
// their final values, and no channel is enabled before that.
//
// A *FrequencyError is returned when the period is only approximate; the
// engine is Active in that case and the caller may Release it.
func (e *Engine) Activate(cfg Config) error {
	if e.state != Uninitialized {
		panic("activate: engine is " + e.state.String())
	}

	is := disableInterrupts()
	defer restoreInterrupts(is)

	if err := e.hal.ResetAndEnable(); err != nil {
		return fmt.Errorf("reset timer: %w", err)
	}
	for _, pin := range []Pin{cfg.StandardPin, cfg.ReferencePin} {
		if err := e.hal.ConfigurePin(pin, cfg.Drive); err != nil {
			return fmt.Errorf("configure pin %d: %w", pin, err)
		}
	}
	if err := e.hal.SetCountingMode(EdgeAlignedUp); err != nil {
		return fmt.Errorf("set counting mode: %w", err)
	}
	periodErr := e.programPeriod(cfg.Frequency)
	if periodErr != nil && !IsInexact(periodErr) {
		return periodErr
	}
	e.state = Configured

	if err := e.hal.StartCounter(); err != nil {
		return fmt.Errorf("start counter: %w", err)
	}
	if err := e.hal.EnableMasterOutputs(); err != nil {
		return fmt.Errorf("enable main output: %w", err)
	}
	e.state = Running

	e.setMode(StandardChannel, ModePWM1)
	e.setMode(ReferenceChannel, ModePWM1)
	// Inverted sense: grouped with channel 1 the output is the overlap of
	// the two active windows, which moves the rising edge to 1/4 period.
	e.setMode(ExtendedChannel, ModePWM2)

	e.programThresholds()

	e.regs.Compare(int(ExtendedChannel)).Modify(func(w CompareWord) CompareWord {
		w.SetGroupBit()
		return w
	})

	e.Enable(ReferenceChannel)
	e.Enable(StandardChannel)
	e.Enable(ExtendedChannel)
	e.state = Active

	DebugPrintln("[PWM] active at " + strconv.FormatUint(uint64(e.achieved), 10) +
		" Hz, max duty " + strconv.FormatUint(uint64(e.MaxDuty()), 10))
	return periodErr
}

func (e *Engine) programPeriod(hz Hertz) error {
	achieved, err := e.hal.ProgramPeriod(hz)
	if err != nil && !IsInexact(err) {
		return err
	}
	e.requested, e.achieved = hz, achieved
	return err
}

func (e *Engine) setMode(ch Channel, m OutputCompareMode) {
	e.regs.Mode(int(ch) / 2).Modify(func(w ModeWord) ModeWord {
		w.SetMode(ch.modeSubfield(), m)
		return w
	})
}

// programThresholds writes reference, standard and extended thresholds in
// that order from the live max duty
func (e *Engine) programThresholds() {
	th := QuadratureThresholds(e.MaxDuty())
	e.SetDuty(ReferenceChannel, th.Reference)
	e.SetDuty(StandardChannel, th.Standard)
	e.SetDuty(ExtendedChannel, th.Extended)
}

// SetFrequency reprograms the period. When active, the three thresholds
// are recomputed for the new max duty inside the same critical section.
// A *FrequencyError means the new period is in effect but approximate.
func (e *Engine) SetFrequency(hz Hertz) error {
	e.mustOwn()
	is := disableInterrupts()
	defer restoreInterrupts(is)

	err := e.programPeriod(hz)
	if err != nil && !IsInexact(err) {
		return err
	}
	if e.state == Active {
		e.programThresholds()
	}
	return err
}

// Frequency returns the requested and achieved output frequency
func (e *Engine) Frequency() (requested, achieved Hertz) {
	return e.requested, e.achieved
}

// MaxDuty returns the live reload value plus one
func (e *Engine) MaxDuty() uint32 {
	return e.regs.Reload().Read() + 1
}

// SetDuty programs the compare threshold of ch. Panics if duty exceeds
// MaxDuty, or 0xFFFF on a standard channel. Writing an extended channel
// keeps its group bit.
func (e *Engine) SetDuty(ch Channel, duty uint32) {
	e.mustOwn()
	n := int(mustChannel(int(ch)))
	limit := e.MaxDuty()
	if !ch.Extended() && limit > standardDutyLimit {
		limit = standardDutyLimit
	}
	if duty > limit {
		panic("duty " + strconv.FormatUint(uint64(duty), 10) +
			" exceeds max duty " + strconv.FormatUint(uint64(limit), 10))
	}
	e.regs.Compare(n).Modify(func(w CompareWord) CompareWord {
		if !ch.Extended() {
			w.SetStandard(uint16(duty))
			return w
		}
		grouped := w.Grouped()
		w.SetExtended(duty)
		if grouped {
			w.SetGroupBit()
		}
		return w
	})
}

// Duty returns the programmed compare threshold of ch
func (e *Engine) Duty(ch Channel) uint32 {
	w := e.regs.Compare(int(mustChannel(int(ch)))).Read()
	if ch.Extended() {
		return w.Extended()
	}
	return uint32(w.Standard())
}

// Enable turns on the output of ch, and its complementary output where the
// channel has one. Panics for ch outside [0,6).
func (e *Engine) Enable(ch Channel) {
	e.mustOwn()
	n := int(mustChannel(int(ch)))
	e.regs.Enable().Modify(func(w EnableWord) EnableWord {
		w.Set(FieldEnable, n, true)
		if ch.HasComplementary() {
			w.Set(FieldComplementaryEnable, n, true)
		}
		return w
	})
}

// IsEnabled reports the live enable bit of ch. Panics for ch outside [0,6).
func (e *Engine) IsEnabled(ch Channel) bool {
	return e.regs.Enable().Read().Enabled(int(mustChannel(int(ch))))
}

// Release disables every channel output, the main output and the counter,
// then returns the peripheral claim. The group bit is left as is; the next
// activation resets the peripheral.
func (e *Engine) Release() error {
	if e.state == Released {
		return nil
	}
	is := disableInterrupts()
	defer restoreInterrupts(is)

	e.regs.Enable().Modify(func(w EnableWord) EnableWord {
		for n := 0; n < NumChannels; n++ {
			w.Set(FieldEnable, n, false)
			w.Set(FieldComplementaryEnable, n, false)
		}
		return w
	})
	if err := e.hal.DisableMasterOutputs(); err != nil {
		return fmt.Errorf("disable main output: %w", err)
	}
	if err := e.hal.StopCounter(); err != nil {
		return fmt.Errorf("stop counter: %w", err)
	}
	e.state = Released
	e.p.release()
	return nil
}

// Status is a snapshot of the live phase-shift registers
type Status struct {
	State     EngineState
	Requested Hertz
	Achieved  Hertz
	Reload    uint32
	MaxDuty   uint32
	Thresholds
	Grouped bool
	Enable  EnableWord
}

// Snapshot reads the registers that define the output
func (e *Engine) Snapshot() Status {
	reload := e.regs.Reload().Read()
	return Status{
		State:     e.state,
		Requested: e.requested,
		Achieved:  e.achieved,
		Reload:    reload,
		MaxDuty:   reload + 1,
		Thresholds: Thresholds{
			Reference: e.Duty(ReferenceChannel),
			Standard:  e.Duty(StandardChannel),
			Extended:  e.Duty(ExtendedChannel),
		},
		Grouped: e.regs.Compare(int(ExtendedChannel)).Read().Grouped(),
		Enable:  e.regs.Enable().Read(),
	}
}

// CheckQuadrature verifies that s describes an active quarter-period shift
func (s Status) CheckQuadrature() error {
	if s.MaxDuty != s.Reload+1 {
		return fmt.Errorf("max duty %d does not match reload %d", s.MaxDuty, s.Reload)
	}
	want := QuadratureThresholds(s.MaxDuty)
	if s.Thresholds != want {
		return fmt.Errorf("thresholds %+v, want %+v", s.Thresholds, want)
	}
	if !s.Grouped {
		return errors.New("group bit not set")
	}
	for _, ch := range []Channel{ReferenceChannel, StandardChannel, ExtendedChannel} {
		if !s.Enable.Enabled(int(ch)) {
			return fmt.Errorf("%s not enabled", ch)
		}
	}
	return nil
}
