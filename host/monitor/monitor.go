// Package monitor talks to the quadpwm firmware over its serial link
package monitor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"quadpwm/core"
	"quadpwm/host/log"
	"quadpwm/protocol"
)

const bulkChunk = 4096

var (
	ErrNotActive  = errors.New("engine not active")
	ErrBadPattern = errors.New("bulk word mismatch")
)

type flusher interface {
	Flush() error
}

// Client issues requests to the firmware. It is not safe for concurrent use.
type Client struct {
	rw     io.ReadWriter
	frames *protocol.FrameReader
}

func NewClient(rw io.ReadWriter) *Client {
	return &Client{
		rw:     rw,
		frames: protocol.NewFrameReader(rw),
	}
}

func (c *Client) request(req byte) error {
	if f, ok := c.rw.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	log.Debug("request %q", req)
	_, err := c.rw.Write([]byte{req})
	return err
}

// Status fetches the engine snapshot from the firmware
func (c *Client) Status() (core.Status, error) {
	if err := c.request(protocol.RequestStatus); err != nil {
		return core.Status{}, fmt.Errorf("status request: %w", err)
	}
	fr, err := c.frames.ReadFrame()
	if err != nil {
		return core.Status{}, fmt.Errorf("status reply: %w", err)
	}
	if c.frames.Dropped > 0 {
		log.Warning("dropped %d corrupt frames", c.frames.Dropped)
	}
	report, err := protocol.DecodeStatus(fr.Payload)
	if err != nil {
		return core.Status{}, err
	}
	log.Debug("status %+v", report)
	return report.Status(), nil
}

// Verify checks a snapshot against the running quadrature configuration.
// expected is the frequency the firmware was built for, 0 to skip that check.
func Verify(s core.Status, expected core.Hertz) error {
	if s.State != core.Active {
		return fmt.Errorf("%w: state %s", ErrNotActive, s.State)
	}
	if expected != 0 && s.Requested != expected {
		return fmt.Errorf("firmware requested %d Hz, expected %d Hz", s.Requested, expected)
	}
	if s.Achieved != s.Requested {
		log.Warning("achieved %d Hz for requested %d Hz", s.Achieved, s.Requested)
	}
	return s.CheckQuadrature()
}

// BulkResult summarises one bulk transfer
type BulkResult struct {
	Bytes   int
	Elapsed time.Duration
}

// MBps is the throughput in MiB per second
func (r BulkResult) MBps() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds() / (1024 * 1024)
}

// Bulk requests size bytes of the test pattern and validates every word.
// size is rounded down to whole words.
func (c *Client) Bulk(size int) (BulkResult, error) {
	size &^= 3
	if err := c.request(protocol.RequestBulk); err != nil {
		return BulkResult{}, fmt.Errorf("bulk request: %w", err)
	}

	buf := make([]byte, bulkChunk)
	start := time.Now()
	received := 0
	for received < size {
		n := size - received
		if n > len(buf) {
			n = len(buf)
		}
		if _, err := io.ReadFull(c.rw, buf[:n]); err != nil {
			return BulkResult{Bytes: received, Elapsed: time.Since(start)},
				fmt.Errorf("bulk stream stalled after %d bytes: %w", received, err)
		}
		if off, ok := CheckPattern(buf[:n]); !ok {
			return BulkResult{Bytes: received + off, Elapsed: time.Since(start)},
				fmt.Errorf("%w at byte %d", ErrBadPattern, received+off)
		}
		received += n
		log.Debug("bulk %d/%d bytes", received, size)
	}
	return BulkResult{Bytes: received, Elapsed: time.Since(start)}, nil
}

// CheckPattern reports the offset of the first word in data that is not
// the big-endian bulk pattern. A trailing partial word counts as a mismatch.
func CheckPattern(data []byte) (int, bool) {
	for off := 0; off < len(data); off += 4 {
		if off+4 > len(data) || binary.BigEndian.Uint32(data[off:]) != protocol.BulkPattern {
			return off, false
		}
	}
	return len(data), true
}
