// Package sim runs the phase-shift engine against an in-memory timer so
// the host tool can be exercised without hardware.
package sim

import (
	"bytes"
	"sync"

	"quadpwm/core"
	"quadpwm/protocol"
)

// Clock matches the NUCLEO-L432KC timer clock
const Clock core.Hertz = 80000000

// block size of the simulated timer
const timerSize = 0x400

type board struct {
	block *core.MemoryBlock
}

func (b *board) ResetAndEnable() error {
	b.block.Reset()
	return nil
}

func (b *board) ConfigurePin(core.Pin, core.DriveMode) error {
	return nil
}

// Device behaves like the firmware's serial link. Requests written to it
// are answered synchronously into a buffer that Read drains.
type Device struct {
	mu        sync.Mutex
	engine    *core.Engine
	responder *protocol.Responder
	out       bytes.Buffer
}

// NewDevice activates an engine at hz and returns the link to it.
// An inexact frequency is reported alongside a working device.
func NewDevice(hz core.Hertz, bulkSize int) (*Device, error) {
	block := core.NewMemoryBlock(timerSize)
	p, err := core.NewPeripheral(block)
	if err != nil {
		return nil, err
	}
	engine, err := core.NewEngine(p, core.NewRegisterTimer(p, &board{block: block}, Clock))
	if err != nil {
		return nil, err
	}

	d := &Device{engine: engine}
	d.responder = protocol.NewResponder(engine.Snapshot, bulkSize)

	err = engine.Activate(core.Config{
		Frequency:    hz,
		StandardPin:  8,
		ReferencePin: 16,
		Drive:        core.DrivePushPullHigh,
	})
	if err != nil && !core.IsInexact(err) {
		return nil, err
	}
	return d, err
}

// Engine exposes the simulated engine for fault injection
func (d *Device) Engine() *core.Engine {
	return d.engine
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, req := range p {
		if err := d.responder.Handle(req, &d.out); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Read returns io.EOF once every reply has been consumed
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out.Read(p)
}

func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out.Reset()
	return nil
}

// Close releases the simulated timer
func (d *Device) Close() error {
	return d.engine.Release()
}
