//go:build !tinygo

package core

// State is the mask depth saved on entry to a critical section
type State uintptr

// maskDepth counts nested critical sections. A hosted build has nothing
// to mask, but the depth shows whether register writes ran inside one.
var maskDepth uintptr

func disableInterrupts() State {
	maskDepth++
	return State(maskDepth - 1)
}

func restoreInterrupts(state State) {
	maskDepth = uintptr(state)
}

func interruptsMasked() bool {
	return maskDepth > 0
}
