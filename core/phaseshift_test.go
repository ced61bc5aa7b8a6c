package core

import (
	"errors"
	"testing"
)

const testClock = 80000000

// MockBoard stands in for the RCC/GPIO side of a target
type MockBoard struct {
	block    *MemoryBlock
	resets   int
	masked   bool // interrupts masked at the last reset
	pins     []Pin
	drives   []DriveMode
	pinError error
}

func (b *MockBoard) ResetAndEnable() error {
	b.resets++
	b.masked = interruptsMasked()
	b.block.Reset()
	return nil
}

func (b *MockBoard) ConfigurePin(pin Pin, drive DriveMode) error {
	if b.pinError != nil {
		return b.pinError
	}
	b.pins = append(b.pins, pin)
	b.drives = append(b.drives, drive)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *Peripheral, *MockBoard) {
	t.Helper()
	block := NewMemoryBlock(0x400)
	p, err := NewPeripheral(block)
	if err != nil {
		t.Fatalf("NewPeripheral failed: %v", err)
	}
	board := &MockBoard{block: block}
	e, err := NewEngine(p, NewRegisterTimer(p, board, testClock))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e, p, board
}

var testConfig = Config{
	Frequency:    1000,
	StandardPin:  8,
	ReferencePin: 16,
	Drive:        DrivePushPullHigh,
}

func TestQuadratureThresholds(t *testing.T) {
	testCases := []struct {
		maxDuty  uint32
		expected Thresholds
	}{
		{40000, Thresholds{Reference: 20000, Standard: 30000, Extended: 10000}},
		{3, Thresholds{Reference: 2, Standard: 2, Extended: 1}},
		{5, Thresholds{Reference: 3, Standard: 4, Extended: 1}},
		{65535, Thresholds{Reference: 32768, Standard: 49151, Extended: 16384}},
	}

	for _, tc := range testCases {
		if got := QuadratureThresholds(tc.maxDuty); got != tc.expected {
			t.Errorf("QuadratureThresholds(%d) = %+v, expected %+v", tc.maxDuty, got, tc.expected)
		}
	}
}

func TestActivateEndToEnd(t *testing.T) {
	e, p, board := newTestEngine(t)

	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if e.State() != Active {
		t.Fatalf("state = %s, expected active", e.State())
	}

	regs := p.Registers()
	period := regs.Reload().Read()
	if period != 39999 {
		t.Errorf("period register = %d, expected 39999", period)
	}
	if e.MaxDuty() != period+1 {
		t.Errorf("MaxDuty() = %d, expected %d", e.MaxDuty(), period+1)
	}

	if got := regs.Compare(int(ReferenceChannel)).Read().Standard(); got != 20000 {
		t.Errorf("reference threshold = %d, expected 20000", got)
	}
	if got := regs.Compare(int(StandardChannel)).Read().Standard(); got != 30000 {
		t.Errorf("standard threshold = %d, expected 30000", got)
	}
	ext := regs.Compare(int(ExtendedChannel)).Read()
	if ext.Extended() != 10000 {
		t.Errorf("extended threshold = %d, expected 10000", ext.Extended())
	}
	if !ext.Grouped() {
		t.Errorf("group bit not set")
	}

	for _, ch := range []Channel{ReferenceChannel, StandardChannel, ExtendedChannel} {
		if !e.IsEnabled(ch) {
			t.Errorf("%s not enabled", ch)
		}
	}
	ccer := regs.Enable().Read()
	if !ccer.Get(FieldComplementaryEnable, int(ReferenceChannel)) {
		t.Errorf("reference complementary output not enabled")
	}
	if ccer.Get(FieldComplementaryEnable, int(ExtendedChannel)) {
		t.Errorf("extended channel has no complementary output to enable")
	}

	if m := regs.Mode(0).Read(); m.Mode(0) != ModePWM1 || m.Mode(1) != ModePWM1 {
		t.Errorf("CH1/CH2 modes = %s/%s, expected pwm1", m.Mode(0), m.Mode(1))
	}
	if m := regs.Mode(2).Read(); m.Mode(0) != ModePWM2 {
		t.Errorf("CH5 mode = %s, expected pwm2", m.Mode(0))
	}

	cr1 := regs.Control().Read()
	if !cr1.Running() || cr1.CountingMode() != EdgeAlignedUp {
		t.Errorf("control word 0x%X not running edge-aligned up", uint32(cr1))
	}
	if breakMainOutput.Get(regs.BreakDeadTime().Read()) != 1 {
		t.Errorf("main output not enabled")
	}

	if board.resets != 1 {
		t.Errorf("board reset %d times, expected 1", board.resets)
	}
	if len(board.pins) != 2 || board.pins[0] != 8 || board.pins[1] != 16 {
		t.Errorf("configured pins %v, expected [8 16]", board.pins)
	}

	if err := e.Snapshot().CheckQuadrature(); err != nil {
		t.Errorf("snapshot check failed: %v", err)
	}
}

func TestActivateWriteOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)

	ClearWriteTrace()
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	trace := WriteTrace()

	first := func(match func(WriteEvent) bool) int {
		for i, evt := range trace {
			if match(evt) {
				return i
			}
		}
		return -1
	}
	at := func(off uintptr) func(WriteEvent) bool {
		return func(evt WriteEvent) bool { return evt.Offset == off }
	}

	reload := first(at(regARR.Offset))
	start := first(func(evt WriteEvent) bool {
		return evt.Offset == regCR1.Offset && ControlWord(evt.Value).Running()
	})
	mode := first(at(regCCMR1.Offset))
	ref := first(at(regCCR2.Offset))
	std := first(at(regCCR1.Offset))
	ext := first(at(regCCR5.Offset))
	group := first(func(evt WriteEvent) bool {
		return evt.Offset == regCCR5.Offset && CompareWord(evt.Value).Grouped()
	})
	enable := first(at(regCCER.Offset))

	order := []struct {
		name string
		idx  int
	}{
		{"ARR", reload}, {"counter start", start}, {"mode", mode},
		{"CCR2", ref}, {"CCR1", std}, {"CCR5", ext}, {"group bit", group}, {"CCER", enable},
	}
	for i, step := range order {
		if step.idx < 0 {
			t.Fatalf("%s write missing from trace", step.name)
		}
		if i > 0 && step.idx <= order[i-1].idx {
			t.Errorf("%s written before %s", step.name, order[i-1].name)
		}
	}
}

func TestSetDutyBounds(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	limit := e.MaxDuty()

	e.SetDuty(Ch3, limit)
	if e.Duty(Ch3) != limit {
		t.Errorf("Duty(CH3) = %d, expected %d", e.Duty(Ch3), limit)
	}
	expectPanic(t, "SetDuty(max+1)", func() { e.SetDuty(Ch3, limit+1) })
	expectPanic(t, "SetDuty(CH7)", func() { e.SetDuty(Channel(6), 0) })
}

func TestSetDutyStandardWidthAtFullReload(t *testing.T) {
	e, p, _ := newTestEngine(t)
	// reset value of ARR on TIM1
	p.Registers().Reload().Write(0xFFFF)
	if e.MaxDuty() != 0x10000 {
		t.Fatalf("MaxDuty() = %d, expected 65536", e.MaxDuty())
	}

	expectPanic(t, "SetDuty(CH1, 65536)", func() { e.SetDuty(Ch1, e.MaxDuty()) })
	if e.Duty(Ch1) != 0 {
		t.Errorf("rejected write changed CH1 to %d", e.Duty(Ch1))
	}

	e.SetDuty(Ch1, 0xFFFF)
	if e.Duty(Ch1) != 0xFFFF {
		t.Errorf("Duty(CH1) = %d, expected 65535", e.Duty(Ch1))
	}
	e.SetDuty(ExtendedChannel, 0x10000)
	if e.Duty(ExtendedChannel) != 0x10000 {
		t.Errorf("Duty(CH5) = %d, expected 65536", e.Duty(ExtendedChannel))
	}
}

func TestSetDutyExtendedKeepsGroupBit(t *testing.T) {
	e, p, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	e.SetDuty(ExtendedChannel, 12345)
	w := p.Registers().Compare(int(ExtendedChannel)).Read()
	if w.Extended() != 12345 || !w.Grouped() {
		t.Errorf("CCR5 = 0x%08X, expected threshold 12345 with group bit", uint32(w))
	}
}

func TestEnableOutOfRange(t *testing.T) {
	e, _, _ := newTestEngine(t)
	expectPanic(t, "Enable(6)", func() { e.Enable(Channel(6)) })
	expectPanic(t, "IsEnabled(6)", func() { e.IsEnabled(Channel(6)) })
}

func TestEnablePreservesOtherChannels(t *testing.T) {
	e, p, _ := newTestEngine(t)
	p.Registers().Enable().Write(EnableWord(1 << 13)) // CH4 polarity

	e.Enable(Ch6)
	w := p.Registers().Enable().Read()
	if uint32(w) != 1<<13|1<<20 {
		t.Errorf("enable word = 0x%08X, expected CH4 polarity and CH6 enable", uint32(w))
	}
}

func TestMaxDutyTracksPeriod(t *testing.T) {
	e, p, _ := newTestEngine(t)
	for _, reload := range []uint32{0, 1, 999, 65534} {
		p.Registers().Reload().Write(reload)
		if e.MaxDuty() != reload+1 {
			t.Errorf("MaxDuty() = %d with period %d", e.MaxDuty(), reload)
		}
	}
}

func TestSetFrequencyRescalesThresholds(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	if err := e.SetFrequency(20000); err != nil {
		t.Fatalf("SetFrequency failed: %v", err)
	}
	s := e.Snapshot()
	if s.MaxDuty != 4000 {
		t.Fatalf("max duty = %d, expected 4000", s.MaxDuty)
	}
	if err := s.CheckQuadrature(); err != nil {
		t.Errorf("after SetFrequency: %v", err)
	}
	if req, ach := e.Frequency(); req != 20000 || ach != 20000 {
		t.Errorf("Frequency() = %d/%d", req, ach)
	}
}

func TestSetFrequencyInexact(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	err := e.SetFrequency(7)
	var fe *FrequencyError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FrequencyError, got %v", err)
	}
	if err := e.Snapshot().CheckQuadrature(); err != nil {
		t.Errorf("approximate period left inconsistent thresholds: %v", err)
	}

	if err := e.SetFrequency(0); !errors.Is(err, ErrFrequencyOutOfRange) {
		t.Errorf("SetFrequency(0): expected ErrFrequencyOutOfRange, got %v", err)
	}
}

func TestActivateInexactStillActive(t *testing.T) {
	e, _, _ := newTestEngine(t)
	cfg := testConfig
	cfg.Frequency = 3

	err := e.Activate(cfg)
	if !IsInexact(err) {
		t.Fatalf("expected inexact frequency error, got %v", err)
	}
	if e.State() != Active {
		t.Errorf("state = %s, expected active", e.State())
	}
}

func TestActivatePinFailure(t *testing.T) {
	e, _, board := newTestEngine(t)
	board.pinError = errors.New("no alternate function")

	err := e.Activate(testConfig)
	if !errors.Is(err, board.pinError) {
		t.Fatalf("expected pin error, got %v", err)
	}
	if e.State() != Uninitialized {
		t.Errorf("state = %s after failed activation", e.State())
	}
}

func TestActivateRunsMasked(t *testing.T) {
	e, _, board := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if !board.masked {
		t.Errorf("peripheral reset ran with interrupts enabled")
	}
	if interruptsMasked() {
		t.Errorf("interrupts still masked after Activate")
	}
}

func TestActivateTwicePanics(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	expectPanic(t, "second Activate", func() { _ = e.Activate(testConfig) })
}

func TestPeripheralClaim(t *testing.T) {
	e, p, board := newTestEngine(t)

	_, err := NewEngine(p, NewRegisterTimer(p, board, testClock))
	if !errors.Is(err, ErrPeripheralClaimed) {
		t.Fatalf("second claim: expected ErrPeripheralClaimed, got %v", err)
	}

	if err := e.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := NewEngine(p, NewRegisterTimer(p, board, testClock)); err != nil {
		t.Errorf("claim after release failed: %v", err)
	}
}

func TestPeripheralSingleOwnerPerBlock(t *testing.T) {
	block := NewMemoryBlock(0x400)
	board := &MockBoard{block: block}

	first, err := NewPeripheral(block)
	if err != nil {
		t.Fatalf("NewPeripheral failed: %v", err)
	}
	if _, err := NewPeripheral(block); !errors.Is(err, ErrPeripheralClaimed) {
		t.Fatalf("second wrap: expected ErrPeripheralClaimed, got %v", err)
	}

	e, err := NewEngine(first, NewRegisterTimer(first, board, testClock))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if err := e.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	second, err := NewPeripheral(block)
	if err != nil {
		t.Fatalf("wrap after release failed: %v", err)
	}
	if _, err := NewEngine(first, NewRegisterTimer(first, board, testClock)); !errors.Is(err, ErrPeripheralClaimed) {
		t.Errorf("stale peripheral: expected ErrPeripheralClaimed, got %v", err)
	}
	if _, err := NewEngine(second, NewRegisterTimer(second, board, testClock)); err != nil {
		t.Errorf("NewEngine on new owner failed: %v", err)
	}

	if _, err := NewPeripheral(NewMemoryBlock(0x400)); err != nil {
		t.Errorf("distinct block rejected: %v", err)
	}
}

func TestRelease(t *testing.T) {
	e, p, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	regs := p.Registers()
	regs.Enable().Modify(func(w EnableWord) EnableWord {
		w.Set(FieldPolarity, int(StandardChannel), true)
		return w
	})

	if err := e.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if e.State() != Released {
		t.Errorf("state = %s, expected released", e.State())
	}
	for n := 0; n < NumChannels; n++ {
		if e.IsEnabled(Channel(n)) {
			t.Errorf("%s still enabled", Channel(n))
		}
	}
	if !regs.Enable().Read().Get(FieldPolarity, int(StandardChannel)) {
		t.Errorf("Release cleared a polarity bit")
	}
	if regs.Control().Read().Running() {
		t.Errorf("counter still running")
	}
	if breakMainOutput.Get(regs.BreakDeadTime().Read()) != 0 {
		t.Errorf("main output still enabled")
	}
	if err := e.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	expectPanic(t, "SetDuty after release", func() { e.SetDuty(Ch1, 0) })
}

func TestCheckQuadratureDetectsFaults(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	good := e.Snapshot()

	ungrouped := good
	ungrouped.Grouped = false
	shifted := good
	shifted.Standard++
	disabled := good
	disabled.Enable.SetEnabled(int(ExtendedChannel), false)

	for name, s := range map[string]Status{"ungrouped": ungrouped, "shifted": shifted, "disabled": disabled} {
		if s.CheckQuadrature() == nil {
			t.Errorf("%s: CheckQuadrature accepted a faulty status", name)
		}
	}
}

func TestDebugWriterReceivesActivation(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	SetDebugEnabled(true)
	defer func() {
		SetDebugEnabled(false)
		SetDebugWriter(func(string) {})
	}()

	e, _, _ := newTestEngine(t)
	if err := e.Activate(testConfig); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "[PWM] active at 1000 Hz, max duty 40000" {
		t.Errorf("debug output %q", lines)
	}

	lines = nil
	DumpWriteTrace()
	if len(lines) < 3 {
		t.Errorf("write trace dump too short: %q", lines)
	}
}
