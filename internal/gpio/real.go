//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// release returns a line to input with pull-down, matching the Pi boot
// defaults, and closes it.
func release(l interface {
	Reconfigure(...gpiocdev.LineConfigOption) error
	Close() error
}, name string) error {
	var errs []error
	if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure %s: %w", name, err))
	}
	if err := l.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", name, err))
	}
	return errors.Join(errs...)
}

// DisplayPins drives an 8-bit parallel character display bus.
type DisplayPins struct {
	data *gpiocdev.Lines
	rs   *gpiocdev.Line
	rw   *gpiocdev.Line // optional; held low (write) when fitted
	en   *gpiocdev.Line
}

// OpenDisplayPins requests the eight data lines plus register-select and
// enable as outputs. rw may be -1 when the R/W pin is tied to ground.
func OpenDisplayPins(chip string, data []int, rs, rw, en int) (*DisplayPins, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("display bus needs 8 data lines, got %d", len(data))
	}
	p := &DisplayPins{}

	var err error
	if p.data, err = gpiocdev.RequestLines(chip, data, gpiocdev.AsOutput(0, 0, 0, 0, 0, 0, 0, 0)); err != nil {
		return nil, fmt.Errorf("request display data lines %v: %w", data, err)
	}
	if p.rs, err = gpiocdev.RequestLine(chip, rs, gpiocdev.AsOutput(0)); err != nil {
		p.Close()
		return nil, fmt.Errorf("request display RS line %d: %w", rs, err)
	}
	if rw >= 0 {
		if p.rw, err = gpiocdev.RequestLine(chip, rw, gpiocdev.AsOutput(0)); err != nil {
			p.Close()
			return nil, fmt.Errorf("request display RW line %d: %w", rw, err)
		}
	}
	if p.en, err = gpiocdev.RequestLine(chip, en, gpiocdev.AsOutput(0)); err != nil {
		p.Close()
		return nil, fmt.Errorf("request display EN line %d: %w", en, err)
	}
	return p, nil
}

// SetData places b on D0..D7.
func (p *DisplayPins) SetData(b byte) error {
	return p.data.SetValues(byteLevels(b))
}

// SetMode selects data (RS high) or command (RS low) register.
func (p *DisplayPins) SetMode(data bool) error {
	return p.rs.SetValue(level(data))
}

// SetEnable drives the enable strobe.
func (p *DisplayPins) SetEnable(high bool) error {
	return p.en.SetValue(level(high))
}

// Close releases every requested line.
func (p *DisplayPins) Close() error {
	var errs []error
	if p.data != nil {
		errs = append(errs, release(p.data, "display data lines"))
	}
	for _, l := range []struct {
		line *gpiocdev.Line
		name string
	}{{p.rs, "display RS"}, {p.rw, "display RW"}, {p.en, "display EN"}} {
		if l.line != nil {
			errs = append(errs, release(l.line, l.name))
		}
	}
	return errors.Join(errs...)
}

// OutputLine is a single on/off output such as the alarm buzzer/LED.
type OutputLine struct {
	line *gpiocdev.Line
}

// OpenOutput requests offset as an output, initially off.
func OpenOutput(chip string, offset int) (*OutputLine, error) {
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output line %d: %w", offset, err)
	}
	return &OutputLine{line: l}, nil
}

// Set drives the line high for on.
func (o *OutputLine) Set(on bool) error {
	return o.line.SetValue(level(on))
}

// Close turns the output off and releases the line.
func (o *OutputLine) Close() error {
	return errors.Join(o.line.SetValue(0), release(o.line, "output"))
}

// EdgeSource reports edges on one or more input lines as interrupts. The
// fired value is the index of the line in the offsets it was created with.
// Lines are only requested while armed.
type EdgeSource struct {
	name     string
	chip     string
	offsets  []int
	edge     Edge
	bias     Bias
	debounce time.Duration

	mu    sync.Mutex
	lines *gpiocdev.Lines

	// suppress drops events while set; Keypad sets it during a scan.
	suppress atomic.Bool
}

// NewEdgeSource describes an interrupt source; nothing is requested until Arm.
func NewEdgeSource(name, chip string, offsets []int, edge Edge, bias Bias, debounce time.Duration) *EdgeSource {
	return &EdgeSource{
		name:     name,
		chip:     chip,
		offsets:  append([]int(nil), offsets...),
		edge:     edge,
		bias:     bias,
		debounce: debounce,
	}
}

// Name returns the source name used in logs.
func (s *EdgeSource) Name() string { return s.name }

// Arm requests the lines with edge detection. fire runs on the gpiocdev
// event goroutine and must not block.
func (s *EdgeSource) Arm(fire func(line int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines != nil {
		return fmt.Errorf("%s: already armed", s.name)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch s.bias {
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if s.edge == FallingEdge {
		opts = append(opts, gpiocdev.WithFallingEdge)
	} else {
		opts = append(opts, gpiocdev.WithRisingEdge)
	}
	if s.debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(s.debounce))
	}
	offsets := s.offsets
	opts = append(opts, gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
		if s.suppress.Load() {
			return
		}
		if i := indexOf(offsets, evt.Offset); i >= 0 {
			fire(i)
		}
	}))

	lines, err := gpiocdev.RequestLines(s.chip, s.offsets, opts...)
	if err != nil {
		return fmt.Errorf("%s: request lines %v: %w", s.name, s.offsets, err)
	}
	s.lines = lines
	return nil
}

// Disarm releases the lines. Disarming an unarmed source is a no-op.
func (s *EdgeSource) Disarm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines == nil {
		return nil
	}
	err := release(s.lines, s.name)
	s.lines = nil
	return err
}

func (s *EdgeSource) values() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines == nil {
		return nil, ErrNotArmed
	}
	vals := make([]int, len(s.offsets))
	if err := s.lines.Values(vals); err != nil {
		return nil, err
	}
	return vals, nil
}

// Keypad is a row/column matrix. Rows are pulled-up edge inputs, columns are
// outputs idling low so any key press pulls its row down.
type Keypad struct {
	*EdgeSource
	cols   *gpiocdev.Lines
	ncols  int
	settle time.Duration
}

// OpenKeypad requests the column lines. The row lines are requested when the
// keypad is armed as an interrupt source.
func OpenKeypad(chip string, rows, cols []int, debounce time.Duration) (*Keypad, error) {
	c, err := gpiocdev.RequestLines(chip, cols, gpiocdev.AsOutput(make([]int, len(cols))...))
	if err != nil {
		return nil, fmt.Errorf("request keypad columns %v: %w", cols, err)
	}
	return &Keypad{
		EdgeSource: NewEdgeSource("keypad", chip, rows, FallingEdge, PullUp, debounce),
		cols:       c,
		ncols:      len(cols),
		settle:     10 * time.Microsecond,
	}, nil
}

// Scan finds the pressed column on row by driving one column low at a time.
// Columns are left low again afterwards.
func (k *Keypad) Scan(row int) (int, bool, error) {
	if row < 0 || row >= len(k.offsets) {
		return 0, false, fmt.Errorf("keypad row %d out of range", row)
	}
	k.suppress.Store(true)
	defer k.suppress.Store(false)
	defer k.cols.SetValues(make([]int, k.ncols))

	for col := 0; col < k.ncols; col++ {
		levels := make([]int, k.ncols)
		for i := range levels {
			levels[i] = 1
		}
		levels[col] = 0
		if err := k.cols.SetValues(levels); err != nil {
			return 0, false, fmt.Errorf("drive keypad column %d: %w", col, err)
		}
		time.Sleep(k.settle)

		rows, err := k.values()
		if err != nil {
			return 0, false, fmt.Errorf("read keypad rows: %w", err)
		}
		if rows[row] == 0 {
			return col, true, nil
		}
	}
	return 0, false, nil
}

// Close disarms the rows and releases the columns.
func (k *Keypad) Close() error {
	return errors.Join(k.Disarm(), release(k.cols, "keypad columns"))
}
