// Package display drives a two-row character display.
//
// The Arbiter is the only way to write to the device: it validates the
// logical (row, column) position, translates it into the controller's
// address space and holds a single lock for each complete operation so that
// concurrent callers never interleave their byte streams.
package display

import (
	"fmt"
	"time"
)

// Geometry of the display and its controller address map.
const (
	Rows        = 2
	Columns     = 24
	RowStride   = 0x40 // row 2 starts at DDRAM address 0x40, not Columns
	wrapColumn  = 16   // beyond this column long text could spill into the next row
	wrapClamp   = 8
	setDDRAMBit = 0x80
)

// Controller commands.
const (
	CmdClear       = 0x01
	CmdHome        = 0x02
	CmdDisplayOn   = 0x0C // display on, cursor off, blink off
	CmdFunctionSet = 0x38 // 8-bit bus, two lines, 5x8 font
)

// Device is the byte-oriented command/data boundary of the display controller.
// Command writes with the mode line low; Data writes a character at the cursor,
// which then advances.
type Device interface {
	Command(b byte) error
	Data(b byte) error
}

// Configure sends the power-on sequence: two-line mode, display on, clear, home.
func Configure(dev Device) error {
	for _, cmd := range []byte{CmdFunctionSet, CmdDisplayOn, CmdClear, CmdHome} {
		if err := dev.Command(cmd); err != nil {
			return fmt.Errorf("display: init command %#02x: %w", cmd, err)
		}
	}
	return nil
}

// Pins is the parallel bus to the controller: eight data lines, the
// register-select (mode) line and the enable strobe.
type Pins interface {
	SetData(b byte) error
	SetMode(data bool) error
	SetEnable(high bool) error
	Close() error
}

// Bus implements Device over Pins. Every transfer places the byte on the
// data lines, selects the mode, then pulses enable with a settling delay
// while it is high. The controller latches on the falling edge.
type Bus struct {
	pins   Pins
	settle time.Duration
	sleep  func(time.Duration)
}

// NewBus creates a Bus with the given strobe settling delay.
func NewBus(pins Pins, settle time.Duration) *Bus {
	return &Bus{pins: pins, settle: settle, sleep: time.Sleep}
}

// Command writes a command byte.
func (b *Bus) Command(c byte) error {
	return b.transfer(c, false)
}

// Data writes a character byte.
func (b *Bus) Data(c byte) error {
	return b.transfer(c, true)
}

// Close releases the pins.
func (b *Bus) Close() error {
	return b.pins.Close()
}

func (b *Bus) transfer(v byte, data bool) error {
	if err := b.pins.SetData(v); err != nil {
		return fmt.Errorf("set data lines: %w", err)
	}
	if err := b.pins.SetMode(data); err != nil {
		return fmt.Errorf("set mode line: %w", err)
	}
	if err := b.pins.SetEnable(true); err != nil {
		return fmt.Errorf("raise enable: %w", err)
	}
	b.sleep(b.settle)
	if err := b.pins.SetEnable(false); err != nil {
		return fmt.Errorf("lower enable: %w", err)
	}
	return nil
}
