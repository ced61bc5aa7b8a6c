package core

import "strconv"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// WriteEvent is one register store captured for post-mortem analysis
type WriteEvent struct {
	Seq    uint32  // Monotonic write counter, starts at 1
	Offset uintptr // Register offset within the peripheral
	Value  uint32  // Value stored
}

const (
	WriteRingSize = 32 // Enough for one full activation sequence
)

var (
	// debugPrintln is set by platform code; no-op by default
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates DebugPrintln output
	debugEnabled bool = false

	writeRing     [WriteRingSize]WriteEvent
	writeRingHead uint8
	writeSeq      uint32
	traceEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// SetTraceEnabled turns register write capture on or off
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// recordWrite captures a register store in the ring buffer
func recordWrite(offset uintptr, value uint32) {
	if !traceEnabled {
		return
	}
	writeSeq++
	writeRing[writeRingHead] = WriteEvent{Seq: writeSeq, Offset: offset, Value: value}
	writeRingHead = (writeRingHead + 1) % WriteRingSize
}

// WriteTrace returns the captured writes, oldest first
func WriteTrace() []WriteEvent {
	out := make([]WriteEvent, 0, WriteRingSize)
	for i := uint8(0); i < WriteRingSize; i++ {
		evt := writeRing[(writeRingHead+i)%WriteRingSize]
		if evt.Seq == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// ClearWriteTrace empties the write ring
func ClearWriteTrace() {
	for i := range writeRing {
		writeRing[i] = WriteEvent{}
	}
	writeRingHead = 0
	writeSeq = 0
}

// DumpWriteTrace prints the write ring through the debug writer
func DumpWriteTrace() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[REGS] === Write Trace ===")
	for _, evt := range WriteTrace() {
		debugPrintln("[REGS] #" + strconv.FormatUint(uint64(evt.Seq), 10) +
			" " + registerName(evt.Offset) +
			" <- 0x" + strconv.FormatUint(uint64(evt.Value), 16))
	}
	debugPrintln("[REGS] === End Trace ===")
}

func registerName(offset uintptr) string {
	for _, r := range Layout {
		if r.Offset == offset {
			return r.Name
		}
	}
	return "0x" + strconv.FormatUint(uint64(offset), 16)
}
