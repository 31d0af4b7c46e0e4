package sensor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// Bridge line protocol, one frame per line:
//
//	T <raw>           temperature ADC count
//	A <x> <y> <z>     acceleration counts
//	C <raw>           factory reference, sent in reply to "C?"
const (
	frameTemperature = 'T'
	frameAccel       = 'A'
	frameReference   = 'C'

	referenceRequest = "C?\n"
)

// DefaultBaudRate is the bridge firmware's serial speed.
const DefaultBaudRate = 115200

// DefaultReferenceTimeout bounds the wait for a factory reference reply.
const DefaultReferenceTimeout = 2 * time.Second

type frame struct {
	kind   byte
	values []int
}

// parseFrame decodes one protocol line.
func parseFrame(line string) (frame, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields[0]) != 1 {
		return frame{}, fmt.Errorf("malformed frame %q", line)
	}
	f := frame{kind: fields[0][0]}

	want := 1
	switch f.kind {
	case frameTemperature, frameReference:
	case frameAccel:
		want = 3
	default:
		return frame{}, fmt.Errorf("unknown frame type %q", fields[0])
	}
	if len(fields)-1 != want {
		return frame{}, fmt.Errorf("frame %c: want %d values, got %d", f.kind, want, len(fields)-1)
	}
	for _, s := range fields[1:] {
		v, err := strconv.Atoi(s)
		if err != nil {
			return frame{}, fmt.Errorf("frame %c: %w", f.kind, err)
		}
		f.values = append(f.values, v)
	}
	return f, nil
}

// Bridge talks to a companion microcontroller that samples the sensors and
// streams frames over a serial link. It latches the latest sample of each
// kind. Once armed, every acceleration frame fires the data-ready callback,
// making the Bridge the accelerometer's interrupt source.
type Bridge struct {
	port io.ReadWriteCloser
	log  *slog.Logger

	// ReferenceTimeout bounds FactoryReference.
	ReferenceTimeout time.Duration

	temp     atomic.Int64
	haveTemp atomic.Bool
	accel    atomic.Pointer[Accel]
	fire     atomic.Pointer[func(int)]
	ref      chan int

	writeMu sync.Mutex
	done    chan struct{}
}

// OpenBridge opens a serial port and starts reading frames.
func OpenBridge(name string, baud int, log *slog.Logger) (*Bridge, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return NewBridge(port, log), nil
}

// NewBridge starts reading frames from port.
func NewBridge(port io.ReadWriteCloser, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	b := &Bridge{
		port:             port,
		log:              log,
		ReferenceTimeout: DefaultReferenceTimeout,
		ref:              make(chan int, 1),
		done:             make(chan struct{}),
	}
	go b.readLoop()
	return b
}

func (b *Bridge) readLoop() {
	defer close(b.done)
	sc := bufio.NewScanner(b.port)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		f, err := parseFrame(line)
		if err != nil {
			b.log.Debug("bridge: skipping frame", "err", err)
			continue
		}
		b.latch(f)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		b.log.Warn("bridge: read stopped", "err", err)
	}
}

func (b *Bridge) latch(f frame) {
	switch f.kind {
	case frameTemperature:
		b.temp.Store(int64(f.values[0]))
		b.haveTemp.Store(true)
	case frameAccel:
		b.accel.Store(&Accel{X: f.values[0], Y: f.values[1], Z: f.values[2]})
		if fire := b.fire.Load(); fire != nil {
			(*fire)(0)
		}
	case frameReference:
		select {
		case b.ref <- f.values[0]:
		default:
		}
	}
}

// ReadRawTemperature returns the latest latched temperature count.
func (b *Bridge) ReadRawTemperature() (int, error) {
	if !b.haveTemp.Load() {
		return 0, ErrNoSample
	}
	return int(b.temp.Load()), nil
}

// ReadRawAcceleration returns the latest latched acceleration sample.
func (b *Bridge) ReadRawAcceleration() (int, int, int, error) {
	a := b.accel.Load()
	if a == nil {
		return 0, 0, 0, ErrNoSample
	}
	return a.X, a.Y, a.Z, nil
}

// FactoryReference asks the bridge for the vendor calibration count.
func (b *Bridge) FactoryReference() (int, error) {
	b.writeMu.Lock()
	_, err := io.WriteString(b.port, referenceRequest)
	b.writeMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("request factory reference: %w", err)
	}

	select {
	case v := <-b.ref:
		return v, nil
	case <-b.done:
		return 0, errors.New("bridge closed before factory reference arrived")
	case <-time.After(b.ReferenceTimeout):
		return 0, fmt.Errorf("no factory reference within %v", b.ReferenceTimeout)
	}
}

// Name identifies the bridge as an interrupt source.
func (b *Bridge) Name() string { return "accelerometer" }

// Arm enables the data-ready callback.
func (b *Bridge) Arm(fire func(line int)) error {
	b.fire.Store(&fire)
	return nil
}

// Disarm disables the data-ready callback.
func (b *Bridge) Disarm() error {
	b.fire.Store(nil)
	return nil
}

// Close closes the port and waits for the reader to stop.
func (b *Bridge) Close() error {
	err := b.port.Close()
	<-b.done
	return err
}
