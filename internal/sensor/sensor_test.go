package sensor

import (
	"errors"
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		line string
		kind byte
		vals []int
	}{
		{"T 941", 'T', []int{941}},
		{"A -12 34 1020", 'A', []int{-12, 34, 1020}},
		{"C 940", 'C', []int{940}},
		{"  A 1   2 3  ", 'A', []int{1, 2, 3}},
	}
	for _, tt := range tests {
		f, err := parseFrame(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.kind, f.kind)
		assert.Equal(t, tt.vals, f.values)
	}
}

func TestParseFrameErrors(t *testing.T) {
	for _, line := range []string{"", "X 1", "T", "T 1 2", "A 1 2", "A 1 two 3", "TT 1"} {
		_, err := parseFrame(line)
		assert.Error(t, err, "%q", line)
	}
}

// pipePort joins an in-memory pipe for reads with a recorder for writes.
type pipePort struct {
	*io.PipeReader
	written chan string
}

func (p *pipePort) Write(b []byte) (int, error) {
	p.written <- string(b)
	return len(b), nil
}

func newPipeBridge(t *testing.T) (*Bridge, *io.PipeWriter, *pipePort) {
	t.Helper()
	r, w := io.Pipe()
	port := &pipePort{PipeReader: r, written: make(chan string, 4)}
	b := NewBridge(port, nil)
	t.Cleanup(func() {
		w.Close()
		b.Close()
	})
	return b, w, port
}

func TestBridgeLatchesSamples(t *testing.T) {
	b, w, _ := newPipeBridge(t)

	_, err := b.ReadRawTemperature()
	assert.ErrorIs(t, err, ErrNoSample)
	_, _, _, err = b.ReadRawAcceleration()
	assert.ErrorIs(t, err, ErrNoSample)

	_, err = io.WriteString(w, "T 950\ngarbage\nA 1 2 3\nT 955\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := b.ReadRawTemperature()
		return err == nil && v == 955
	}, time.Second, time.Millisecond)

	x, y, z, err := b.ReadRawAcceleration()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{x, y, z})
}

func TestBridgeFiresOnlyWhenArmed(t *testing.T) {
	b, w, _ := newPipeBridge(t)
	var fired atomic.Int32

	_, err := io.WriteString(w, "A 0 0 1000\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, _, _, err := b.ReadRawAcceleration()
		return err == nil
	}, time.Second, time.Millisecond)

	require.NoError(t, b.Arm(func(int) { fired.Add(1) }))
	_, err = io.WriteString(w, "A 0 0 1001\nT 1\nA 0 0 1002\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, b.Disarm())
	_, err = io.WriteString(w, "A 0 0 1003\nT 2\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, _ := b.ReadRawTemperature()
		return v == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), fired.Load())
	assert.Equal(t, "accelerometer", b.Name())
}

func TestBridgeFactoryReference(t *testing.T) {
	b, w, port := newPipeBridge(t)

	go func() {
		if <-port.written == referenceRequest {
			io.WriteString(w, "C 940\n")
		}
	}()

	ref, err := b.FactoryReference()
	require.NoError(t, err)
	assert.Equal(t, 940, ref)
}

func TestBridgeFactoryReferenceTimeout(t *testing.T) {
	b, _, port := newPipeBridge(t)
	b.ReferenceTimeout = 20 * time.Millisecond
	go func() { <-port.written }()

	_, err := b.FactoryReference()
	assert.Error(t, err)
}

func TestFakeDriver(t *testing.T) {
	f := &FakeDriver{
		Temperatures: []int{1, 2},
		Accels:       []Accel{{1, 2, 3}},
		Reference:    940,
	}

	v, _ := f.ReadRawTemperature()
	assert.Equal(t, 1, v)
	v, _ = f.ReadRawTemperature()
	assert.Equal(t, 2, v)
	v, _ = f.ReadRawTemperature()
	assert.Equal(t, 2, v, "last sample repeats")

	x, y, z, err := f.ReadRawAcceleration()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{x, y, z})

	ref, err := f.FactoryReference()
	require.NoError(t, err)
	assert.Equal(t, 940, ref)

	temps, accels := f.Reads()
	assert.Equal(t, 3, temps)
	assert.Equal(t, 1, accels)

	f.SetTempError(errors.New("adc"))
	_, err = f.ReadRawTemperature()
	assert.Error(t, err)
}

func TestFakeDriverEmpty(t *testing.T) {
	f := &FakeDriver{}
	_, err := f.ReadRawTemperature()
	assert.ErrorIs(t, err, ErrNoSample)
	_, _, _, err = f.ReadRawAcceleration()
	assert.ErrorIs(t, err, ErrNoSample)
}

func TestSimulatorRanges(t *testing.T) {
	s := NewSimulator(940, 3.1, 1)
	base := s.start
	for i := 0; i < 120; i++ {
		s.now = func() time.Time { return base.Add(time.Duration(i) * 500 * time.Millisecond) }

		raw, err := s.ReadRawTemperature()
		require.NoError(t, err)
		deg := float64(raw-940) / 3.1
		assert.True(t, deg > -8 && deg < 38, "simulated delta %v", deg)

		x, y, z, err := s.ReadRawAcceleration()
		require.NoError(t, err)
		g := math.Sqrt(float64(x*x + y*y + z*z))
		assert.InDelta(t, 1000, g, 40)
	}
}
