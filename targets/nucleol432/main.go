//go:build stm32l4

package main

import (
	"device/stm32"
	"machine"
	"time"
	"unsafe"

	"quadpwm/core"
	"quadpwm/protocol"
)

// Output pair: CH1 on PA8 (D9), CH2N on PB0 (D3)
var engineConfig = core.Config{
	Frequency:    1,
	StandardPin:  core.Pin(machine.PA8),
	ReferencePin: core.Pin(machine.PB0),
	Drive:        core.DrivePushPullHigh,
}

const bulkSize = 1024 * 1024

var (
	uart = machine.Serial

	requests  uint32
	reqerrors uint32
)

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	// Debug output shares the protocol UART, off by default
	core.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(false)

	p, err := core.NewPeripheral(core.MMIO(uintptr(unsafe.Pointer(stm32.TIM1))))
	if err != nil {
		halt(err)
	}
	timer := core.NewRegisterTimer(p, board{}, core.Hertz(machine.CPUFrequency()))
	engine, err := core.NewEngine(p, timer)
	if err != nil {
		halt(err)
	}
	if err := engine.Activate(engineConfig); err != nil && !core.IsInexact(err) {
		halt(err)
	}

	responder := protocol.NewResponder(engine.Snapshot, bulkSize)
	for {
		serve(responder)
	}
}

// serve answers one request, surviving a panic in the handler
func serve(r *protocol.Responder) {
	defer func() {
		if recover() != nil {
			reqerrors++
		}
	}()

	if uart.Buffered() == 0 {
		time.Sleep(100 * time.Microsecond)
		return
	}
	req, err := uart.ReadByte()
	if err != nil {
		reqerrors++
		return
	}
	requests++
	if err := r.Handle(req, uart); err != nil {
		reqerrors++
	}
}

// halt reports a bring-up failure and blinks the user LED forever
func halt(err error) {
	uart.Write([]byte("quadpwm: " + err.Error() + "\r\n"))
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
