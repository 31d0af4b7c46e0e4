// Package gpio drives the pipeline's peripherals through the Linux GPIO
// character device: the display bus pins, the alarm output, the keypad
// matrix and edge-triggered interrupt lines. Off Linux every constructor
// fails with ErrUnsupported. FakeSource lets tests fire interrupts by hand.
package gpio

import "errors"

// ErrUnsupported is returned by constructors on platforms without gpiocdev.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// ErrNotArmed is returned by Keypad.Scan before the row lines are requested.
var ErrNotArmed = errors.New("gpio: keypad not armed")

// Edge selects which transition an EdgeSource reports.
type Edge int

const (
	RisingEdge Edge = iota
	FallingEdge
)

// Bias selects the internal pull resistor of an input line.
type Bias int

const (
	PullNone Bias = iota
	PullUp
	PullDown
)

// byteLevels spreads b over eight line values, bit 0 first.
func byteLevels(b byte) []int {
	vals := make([]int, 8)
	for i := range vals {
		vals[i] = int(b>>i) & 1
	}
	return vals
}

func level(high bool) int {
	if high {
		return 1
	}
	return 0
}

// indexOf returns the position of offset in offsets, or -1.
func indexOf(offsets []int, offset int) int {
	for i, o := range offsets {
		if o == offset {
			return i
		}
	}
	return -1
}
