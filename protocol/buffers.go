package protocol

// OutputBuffer receives encoded bytes
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
}

// ScratchOutput is a fixed buffer large enough for one frame.
// It never allocates, so the firmware can keep one per link.
type ScratchOutput struct {
	buf [MessageLengthMax]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

// Output appends data, silently dropping what does not fit.
// Callers compare CurPosition against MessageLengthMax to detect overflow.
func (s *ScratchOutput) Output(data []byte) {
	if s.Overflowed() {
		return
	}
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.pos = len(s.buf) + 1
	}
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

// Overflowed reports whether any Output call was truncated
func (s *ScratchOutput) Overflowed() bool {
	return s.pos > len(s.buf)
}

func (s *ScratchOutput) Result() []byte {
	if s.Overflowed() {
		return s.buf[:]
	}
	return s.buf[:s.pos]
}

func (s *ScratchOutput) Reset() {
	s.pos = 0
}
