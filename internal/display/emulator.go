package display

import (
	"strings"
	"sync"
	"time"
)

const ddramSize = 0x80

// Transfer is one byte sent to the controller.
type Transfer struct {
	Data  bool // false for a command
	Value byte
}

// Emulator is a Device that models the controller's display RAM and records
// every transfer. It backs the simulator and tests.
type Emulator struct {
	// Delay, if set, is slept after recording each transfer.
	Delay time.Duration

	mu        sync.Mutex
	err       error
	ddram     [ddramSize]byte
	cursor    byte
	transfers []Transfer
}

// NewEmulator returns a blank emulated display.
func NewEmulator() *Emulator {
	e := &Emulator{}
	e.clear()
	return e
}

// Command records a command and applies it to the model.
func (e *Emulator) Command(b byte) error {
	e.mu.Lock()
	if e.err != nil {
		defer e.mu.Unlock()
		return e.err
	}
	e.transfers = append(e.transfers, Transfer{Value: b})
	switch {
	case b&setDDRAMBit != 0:
		e.cursor = b &^ setDDRAMBit
	case b == CmdClear:
		e.clear()
	case b == CmdHome:
		e.cursor = 0
	}
	e.mu.Unlock()
	e.wait()
	return nil
}

// Data writes a character at the cursor and advances it.
func (e *Emulator) Data(b byte) error {
	e.mu.Lock()
	if e.err != nil {
		defer e.mu.Unlock()
		return e.err
	}
	e.transfers = append(e.transfers, Transfer{Data: true, Value: b})
	e.ddram[e.cursor] = b
	e.cursor = (e.cursor + 1) % ddramSize
	e.mu.Unlock()
	e.wait()
	return nil
}

// SetErr makes every following Command and Data call fail with err.
// Nil restores normal operation. Safe to call while writes are in flight.
func (e *Emulator) SetErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *Emulator) wait() {
	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}
}

func (e *Emulator) clear() {
	for i := range e.ddram {
		e.ddram[i] = ' '
	}
	e.cursor = 0
}

// Row returns the visible characters of row (1 or 2).
func (e *Emulator) Row(row int) string {
	if row < 1 || row > Rows {
		return ""
	}
	base := (row - 1) * RowStride
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.ddram[base : base+Columns])
}

// Text returns both rows joined by a newline, trailing spaces trimmed.
func (e *Emulator) Text() string {
	return strings.TrimRight(e.Row(1), " ") + "\n" + strings.TrimRight(e.Row(2), " ")
}

// Cursor returns the current address counter.
func (e *Emulator) Cursor() byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Transfers returns a copy of every recorded transfer.
func (e *Emulator) Transfers() []Transfer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Transfer, len(e.transfers))
	copy(out, e.transfers)
	return out
}

// ResetTransfers drops the transfer log without touching display RAM.
func (e *Emulator) ResetTransfers() {
	e.mu.Lock()
	e.transfers = nil
	e.mu.Unlock()
}
