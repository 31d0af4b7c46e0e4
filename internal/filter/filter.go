// Package filter provides a fixed-window moving average for noisy integer samples.
// A MovingAverage is owned by exactly one goroutine and is not safe for concurrent use.
package filter

import "errors"

// ErrCapacity is returned by New for a window smaller than one sample.
var ErrCapacity = errors.New("filter: capacity must be at least 1")

// MovingAverage is a circular buffer of the most recent samples with a running sum.
type MovingAverage struct {
	buf   []int
	sum   int64
	index int // next write position
	count int // populated slots, saturates at len(buf)
}

// New creates a MovingAverage over the last capacity samples.
func New(capacity int) (*MovingAverage, error) {
	if capacity < 1 {
		return nil, ErrCapacity
	}
	return &MovingAverage{buf: make([]int, capacity)}, nil
}

// Push appends a sample, evicting the oldest once the window is full, and
// returns the mean of the samples currently in the window.
// Before the window fills the divisor is the number of samples pushed so far.
func (m *MovingAverage) Push(sample int) float64 {
	m.add(sample)
	return float64(m.sum) / float64(m.count)
}

// PushMean is Push with the mean truncated by integer division.
func (m *MovingAverage) PushMean(sample int) int {
	m.add(sample)
	return m.Mean()
}

func (m *MovingAverage) add(sample int) {
	evicted := m.buf[m.index]
	if m.count < len(m.buf) {
		evicted = 0
		m.count++
	}
	m.buf[m.index] = sample
	m.sum += int64(sample) - int64(evicted)
	m.index = (m.index + 1) % len(m.buf)
}

// Mean returns the integer mean of the window, truncated toward zero.
// Returns 0 before the first Push.
func (m *MovingAverage) Mean() int {
	if m.count == 0 {
		return 0
	}
	return int(m.sum / int64(m.count))
}

// Average returns the exact mean of the window and false before the first Push.
func (m *MovingAverage) Average() (float64, bool) {
	if m.count == 0 {
		return 0, false
	}
	return float64(m.sum) / float64(m.count), true
}

// Len returns the number of samples in the window.
func (m *MovingAverage) Len() int { return m.count }

// Cap returns the window size.
func (m *MovingAverage) Cap() int { return len(m.buf) }

// Reset empties the window.
func (m *MovingAverage) Reset() {
	for i := range m.buf {
		m.buf[i] = 0
	}
	m.sum = 0
	m.index = 0
	m.count = 0
}
