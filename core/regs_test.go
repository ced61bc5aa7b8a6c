package core

import (
	"errors"
	"testing"
)

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	f()
}

func TestModeRegisterOffset(t *testing.T) {
	testCases := []struct {
		index    int
		expected uintptr
	}{
		{0, 24},
		{1, 28},
		{2, 84},
	}

	for _, tc := range testCases {
		if got := ModeRegisterOffset(tc.index); got != tc.expected {
			t.Errorf("ModeRegisterOffset(%d) = %d, expected %d", tc.index, got, tc.expected)
		}
	}

	expectPanic(t, "ModeRegisterOffset(3)", func() { ModeRegisterOffset(3) })
	expectPanic(t, "ModeRegisterOffset(-1)", func() { ModeRegisterOffset(-1) })
}

func TestCompareRegisterOffset(t *testing.T) {
	for _, i := range []int{0, 1, 2, 3, 5} {
		expected := uintptr(52 + 4*i)
		if got := CompareRegisterOffset(i); got != expected {
			t.Errorf("CompareRegisterOffset(%d) = %d, expected %d", i, got, expected)
		}
	}
	if got := CompareRegisterOffset(4); got != 88 {
		t.Errorf("CompareRegisterOffset(4) = %d, expected 88", got)
	}

	expectPanic(t, "CompareRegisterOffset(6)", func() { CompareRegisterOffset(6) })
	expectPanic(t, "CompareRegisterOffset(-1)", func() { CompareRegisterOffset(-1) })
}

func TestEnableRegisterOffset(t *testing.T) {
	if EnableRegisterOffset != 32 {
		t.Errorf("EnableRegisterOffset = %d, expected 32", EnableRegisterOffset)
	}
	regs := Registers{block: NewMemoryBlock(0x400)}
	if off := regs.Enable().Offset(); off != 32 {
		t.Errorf("Enable().Offset() = %d, expected 32", off)
	}
}

func TestChannelVariants(t *testing.T) {
	for ch := Ch1; ch <= Ch4; ch++ {
		if ch.Extended() {
			t.Errorf("%s reported as extended", ch)
		}
	}
	for _, ch := range []Channel{Ch5, Ch6} {
		if !ch.Extended() {
			t.Errorf("%s not reported as extended", ch)
		}
		if ch.HasComplementary() {
			t.Errorf("%s reported a complementary output", ch)
		}
	}
	if !Ch1.HasComplementary() || !Ch3.HasComplementary() || Ch4.HasComplementary() {
		t.Errorf("complementary outputs should exist on CH1-CH3 only")
	}
	expectPanic(t, "Channel(6).Extended", func() { Channel(6).Extended() })
}

func TestMemoryBlock(t *testing.T) {
	m := NewMemoryBlock(16)
	if m.Size() != 16 {
		t.Fatalf("Size() = %d, expected 16", m.Size())
	}

	m.Store32(12, 0xCAFEF00D)
	if v := m.Load32(12); v != 0xCAFEF00D {
		t.Errorf("Load32(12) = 0x%08X", v)
	}

	m.Reset()
	if v := m.Load32(12); v != 0 {
		t.Errorf("Load32 after Reset = 0x%08X, expected 0", v)
	}

	expectPanic(t, "unaligned load", func() { m.Load32(2) })
	expectPanic(t, "load past end", func() { m.Load32(16) })
}

func TestRegModify(t *testing.T) {
	m := NewMemoryBlock(0x400)
	r := Reg[uint32]{block: m, offset: 0x2C}

	r.Write(0x1234)
	r.Modify(func(v uint32) uint32 { return v + 1 })

	if v := m.Load32(0x2C); v != 0x1235 {
		t.Errorf("register = 0x%X, expected 0x1235", v)
	}
}

func TestValidateLayout(t *testing.T) {
	if err := ValidateLayout(Layout, 0x400); err != nil {
		t.Fatalf("default layout rejected: %v", err)
	}

	testCases := []struct {
		name   string
		layout []RegisterSpec
		size   uintptr
	}{
		{"unaligned", []RegisterSpec{{"A", 0x02, 32}}, 0x400},
		{"outside", []RegisterSpec{{"A", 0x58, 32}}, 0x58},
		{"overlap", []RegisterSpec{{"A", 0x20, 32}, {"B", 0x20, 16}}, 0x400},
		{"zero width", []RegisterSpec{{"A", 0x20, 0}}, 0x400},
		{"too wide", []RegisterSpec{{"A", 0x20, 33}}, 0x400},
	}

	for _, tc := range testCases {
		err := ValidateLayout(tc.layout, tc.size)
		if !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("%s: expected ErrInvalidLayout, got %v", tc.name, err)
		}
	}
}

func TestNewPeripheralRejectsSmallBlock(t *testing.T) {
	_, err := NewPeripheral(NewMemoryBlock(0x40))
	if !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestFieldMaskAndPreserve(t *testing.T) {
	f := Field{Shift: 4, Width: 3}
	if f.Mask() != 0x70 {
		t.Fatalf("Mask() = 0x%X, expected 0x70", f.Mask())
	}

	w := f.Set(0xFFFFFFFF, 0)
	if w != 0xFFFFFF8F {
		t.Errorf("Set cleared wrong bits: 0x%08X", w)
	}
	w = f.Set(w, 0xFF) // oversized value is masked
	if w != 0xFFFFFFFF {
		t.Errorf("Set did not mask value: 0x%08X", w)
	}

	full := Field{Shift: 0, Width: 32}
	if full.Mask() != 0xFFFFFFFF {
		t.Errorf("32-bit mask = 0x%08X", full.Mask())
	}
}
