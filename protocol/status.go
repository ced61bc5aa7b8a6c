package protocol

import (
	"errors"
	"fmt"

	"quadpwm/core"
)

var ErrUnexpectedMessage = errors.New("unexpected message id")

// StatusReport mirrors the engine snapshot sent in reply to RequestStatus.
// Fields travel as VLQ values in declaration order after MsgStatus.
type StatusReport struct {
	State       uint32
	Reload      uint32
	MaxDuty     uint32
	Reference   uint32
	Standard    uint32
	Extended    uint32
	Enable      uint32
	Grouped     bool
	RequestedHz uint32
	AchievedHz  uint32
}

func (s *StatusReport) fields() []*uint32 {
	return []*uint32{
		&s.State, &s.Reload, &s.MaxDuty,
		&s.Reference, &s.Standard, &s.Extended,
		&s.Enable,
	}
}

// Encode writes the message id and every field to out
func (s StatusReport) Encode(out OutputBuffer) {
	EncodeVLQUint(out, MsgStatus)
	for _, p := range s.fields() {
		EncodeVLQUint(out, *p)
	}
	var grouped uint32
	if s.Grouped {
		grouped = 1
	}
	EncodeVLQUint(out, grouped)
	EncodeVLQUint(out, s.RequestedHz)
	EncodeVLQUint(out, s.AchievedHz)
}

// AppendStatusFrame frames an encoded report
func AppendStatusFrame(dst []byte, seq uint8, s StatusReport) ([]byte, error) {
	out := NewScratchOutput()
	s.Encode(out)
	if out.Overflowed() {
		return dst, ErrFrameTooLong
	}
	return AppendFrame(dst, seq, out.Result())
}

// DecodeStatus parses a status payload
func DecodeStatus(payload []byte) (StatusReport, error) {
	var s StatusReport
	data := payload

	id, err := DecodeVLQUint(&data)
	if err != nil {
		return s, err
	}
	if id != MsgStatus {
		return s, fmt.Errorf("%w: %d", ErrUnexpectedMessage, id)
	}

	for _, p := range s.fields() {
		if *p, err = DecodeVLQUint(&data); err != nil {
			return s, fmt.Errorf("status: %w", err)
		}
	}
	grouped, err := DecodeVLQUint(&data)
	if err != nil {
		return s, fmt.Errorf("status: %w", err)
	}
	s.Grouped = grouped != 0
	if s.RequestedHz, err = DecodeVLQUint(&data); err != nil {
		return s, fmt.Errorf("status: %w", err)
	}
	if s.AchievedHz, err = DecodeVLQUint(&data); err != nil {
		return s, fmt.Errorf("status: %w", err)
	}
	return s, nil
}

// NewStatusReport flattens an engine snapshot for the wire
func NewStatusReport(s core.Status) StatusReport {
	return StatusReport{
		State:       uint32(s.State),
		Reload:      s.Reload,
		MaxDuty:     s.MaxDuty,
		Reference:   s.Reference,
		Standard:    s.Standard,
		Extended:    s.Extended,
		Enable:      uint32(s.Enable),
		Grouped:     s.Grouped,
		RequestedHz: uint32(s.Requested),
		AchievedHz:  uint32(s.Achieved),
	}
}

// Status rebuilds the engine snapshot a report was made from
func (s StatusReport) Status() core.Status {
	return core.Status{
		State:     core.EngineState(s.State),
		Requested: core.Hertz(s.RequestedHz),
		Achieved:  core.Hertz(s.AchievedHz),
		Reload:    s.Reload,
		MaxDuty:   s.MaxDuty,
		Thresholds: core.Thresholds{
			Reference: s.Reference,
			Standard:  s.Standard,
			Extended:  s.Extended,
		},
		Grouped: s.Grouped,
		Enable:  core.EnableWord(s.Enable),
	}
}
