//go:build !linux

package gpio

import "time"

// DisplayPins is not available on non-Linux platforms.
type DisplayPins struct{}

// OpenDisplayPins returns ErrUnsupported on non-Linux platforms.
func OpenDisplayPins(chip string, data []int, rs, rw, en int) (*DisplayPins, error) {
	return nil, ErrUnsupported
}

func (p *DisplayPins) SetData(byte) error   { return ErrUnsupported }
func (p *DisplayPins) SetMode(bool) error   { return ErrUnsupported }
func (p *DisplayPins) SetEnable(bool) error { return ErrUnsupported }
func (p *DisplayPins) Close() error         { return nil }

// OutputLine is not available on non-Linux platforms.
type OutputLine struct{}

// OpenOutput returns ErrUnsupported on non-Linux platforms.
func OpenOutput(chip string, offset int) (*OutputLine, error) {
	return nil, ErrUnsupported
}

func (o *OutputLine) Set(bool) error { return ErrUnsupported }
func (o *OutputLine) Close() error   { return nil }

// EdgeSource is not available on non-Linux platforms.
type EdgeSource struct{ name string }

// NewEdgeSource returns a source whose Arm always fails.
func NewEdgeSource(name, chip string, offsets []int, edge Edge, bias Bias, debounce time.Duration) *EdgeSource {
	return &EdgeSource{name: name}
}

func (s *EdgeSource) Name() string             { return s.name }
func (s *EdgeSource) Arm(func(line int)) error { return ErrUnsupported }
func (s *EdgeSource) Disarm() error            { return nil }

// Keypad is not available on non-Linux platforms.
type Keypad struct{ *EdgeSource }

// OpenKeypad returns ErrUnsupported on non-Linux platforms.
func OpenKeypad(chip string, rows, cols []int, debounce time.Duration) (*Keypad, error) {
	return nil, ErrUnsupported
}

func (k *Keypad) Scan(int) (int, bool, error) { return 0, false, ErrUnsupported }
func (k *Keypad) Close() error                { return nil }
