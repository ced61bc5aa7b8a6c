package core

import "fmt"

// Pin identifies a physical MCU pin (board specific numbering)
type Pin uint32

// DriveMode is the electrical configuration of an alternate-function pin
type DriveMode uint8

const (
	// DrivePushPullHigh is push-pull output at high slew rate
	DrivePushPullHigh DriveMode = iota
	DrivePushPullLow
	DriveOpenDrain
)

// Board is the platform part of the timer bring-up: clock gating, reset
// and pin multiplexing. Each target provides one.
type Board interface {
	// ResetAndEnable pulses the timer's peripheral reset and enables its clock
	ResetAndEnable() error

	// ConfigurePin routes a pin to the timer's alternate function
	ConfigurePin(pin Pin, drive DriveMode) error
}

// TimerHAL is the set of timer operations the phase-shift engine sequences.
type TimerHAL interface {
	Board

	// SetCountingMode selects counter direction and alignment
	SetCountingMode(mode CountingMode) error

	// ProgramPeriod programs the prescaler and reload for hz.
	// Returns the achieved frequency; a *FrequencyError means the period
	// was programmed but is not exact.
	ProgramPeriod(hz Hertz) (Hertz, error)

	// StartCounter enables the counter
	StartCounter() error

	// StopCounter disables the counter
	StopCounter() error

	// EnableMasterOutputs sets the main output enable
	EnableMasterOutputs() error

	// DisableMasterOutputs clears the main output enable
	DisableMasterOutputs() error
}

// RegisterTimer implements TimerHAL directly on the timer registers,
// delegating reset and pin routing to a Board.
type RegisterTimer struct {
	Board
	regs  Registers
	clock Hertz
}

// NewRegisterTimer creates a TimerHAL for the timer in p, clocked at clock
func NewRegisterTimer(p *Peripheral, board Board, clock Hertz) *RegisterTimer {
	if board == nil {
		panic("register timer needs a board")
	}
	return &RegisterTimer{Board: board, regs: p.regs, clock: clock}
}

func (t *RegisterTimer) SetCountingMode(mode CountingMode) error {
	if t.regs.Control().Read().Running() && mode != t.regs.Control().Read().CountingMode() {
		return fmt.Errorf("cannot change counting mode while counter runs")
	}
	t.regs.Control().Modify(func(w ControlWord) ControlWord {
		w.SetCountingMode(mode)
		w.SetReloadPreload(true)
		return w
	})
	return nil
}

func (t *RegisterTimer) ProgramPeriod(hz Hertz) (Hertz, error) {
	tb, err := ComputeTimebase(t.clock, hz)
	if err != nil && !IsInexact(err) {
		return 0, fmt.Errorf("program period %d Hz: %w", hz, err)
	}
	t.regs.Prescaler().Write(tb.Prescaler)
	t.regs.Reload().Write(tb.Reload)
	// Latch the shadow registers immediately
	t.regs.Event().Write(eventUpdate.Mask())
	return tb.Achieved, err
}

func (t *RegisterTimer) StartCounter() error {
	t.regs.Control().Modify(func(w ControlWord) ControlWord {
		w.SetRunning(true)
		return w
	})
	return nil
}

func (t *RegisterTimer) StopCounter() error {
	t.regs.Control().Modify(func(w ControlWord) ControlWord {
		w.SetRunning(false)
		return w
	})
	return nil
}

func (t *RegisterTimer) EnableMasterOutputs() error {
	t.regs.BreakDeadTime().Modify(func(w uint32) uint32 {
		return breakMainOutput.Set(w, 1)
	})
	return nil
}

func (t *RegisterTimer) DisableMasterOutputs() error {
	t.regs.BreakDeadTime().Modify(func(w uint32) uint32 {
		return breakMainOutput.Set(w, 0)
	})
	return nil
}
