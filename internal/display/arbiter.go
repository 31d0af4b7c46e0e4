package display

import (
	"log/slog"
	"sync"
)

// Arbiter serializes all access to a Device.
type Arbiter struct {
	mu  sync.Mutex
	dev Device
	log *slog.Logger
}

// NewArbiter wraps dev. The device must already be configured.
func NewArbiter(dev Device, log *slog.Logger) *Arbiter {
	if log == nil {
		log = slog.Default()
	}
	return &Arbiter{dev: dev, log: log}
}

// Clear blanks the display and homes the cursor.
func (a *Arbiter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.dev.Command(CmdClear); err != nil {
		a.log.Warn("display: clear failed", "err", err)
	}
}

// WriteRow writes text from the first column of row.
func (a *Arbiter) WriteRow(text string, row int) {
	a.WriteAt(text, row, 1)
}

// WriteAt writes text starting at (row, column), both counted from 1.
// Rows outside 1..2 and columns outside 1..24 are ignored. Text is clamped to
// 24 characters, and to 8 when it starts past column 16 so it never runs into
// the other row's addresses.
func (a *Arbiter) WriteAt(text string, row, column int) {
	if row < 1 || row > Rows {
		return
	}
	if column < 1 || column > Columns {
		return
	}

	buf := encode(text)
	if len(buf) > Columns {
		buf = buf[:Columns]
	}
	if column > wrapColumn && len(buf) > wrapClamp {
		buf = buf[:wrapClamp]
	}
	addr := Address(row, column)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.dev.Command(setDDRAMBit | addr); err != nil {
		a.log.Warn("display: set cursor failed", "row", row, "column", column, "err", err)
		return
	}
	for _, c := range buf {
		if err := a.dev.Data(c); err != nil {
			a.log.Warn("display: write failed", "row", row, "column", column, "err", err)
			return
		}
	}
}

// Address returns the controller address of (row, column).
func Address(row, column int) byte {
	return byte((column - 1) + (row-1)*RowStride)
}

// encode maps text onto the controller's character set, replacing anything
// outside printable ASCII with '?'.
func encode(text string) []byte {
	buf := make([]byte, 0, len(text))
	for _, r := range text {
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		buf = append(buf, byte(r))
	}
	return buf
}
