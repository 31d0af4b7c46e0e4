// Package status provides a thread-safe view of the latest pipeline readings.
// Tasks write to it as they process samples; the HTTP server and the
// heartbeat publisher read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/reading"
)

// Config contains daemon configuration for display.
type Config struct {
	SampleIntervalMs int64
	FilterDepth      int
	TiltFilterDepth  int
	ThresholdC       float64
	HeartbeatMs      int64
	Broker           string
	HTTPAddr         string
	Simulated        bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Temperature    float64
	HasTemperature bool
	Alarm          bool
	Tilt           reading.Tilt
	HasTilt        bool
	LastKey        rune
	Counts         reading.Counts
	Coalesced      uint64
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetTemperature records a filtered temperature and the alarm state it produced.
// A transition into alarm counts as a trip.
func (t *Tracker) SetTemperature(celsius float64, alarm bool) {
	t.mu.Lock()
	if alarm && !t.snap.Alarm {
		t.snap.Counts.AlarmTrips++
	}
	t.snap.Temperature = celsius
	t.snap.HasTemperature = true
	t.snap.Alarm = alarm
	t.snap.Counts.TemperatureSamples++
	t.mu.Unlock()
}

// SetTilt records a filtered orientation.
func (t *Tracker) SetTilt(tilt reading.Tilt) {
	t.mu.Lock()
	t.snap.Tilt = tilt
	t.snap.HasTilt = true
	t.snap.Counts.TiltSamples++
	t.mu.Unlock()
}

// SetKey records a decoded key press.
func (t *Tracker) SetKey(key rune) {
	t.mu.Lock()
	t.snap.LastKey = key
	t.snap.Counts.Keys++
	t.mu.Unlock()
}

// AddReadError counts a failed driver read.
func (t *Tracker) AddReadError() {
	t.mu.Lock()
	t.snap.Counts.ReadErrors++
	t.mu.Unlock()
}

// SetCoalesced sets the number of signals folded into an earlier one.
func (t *Tracker) SetCoalesced(n uint64) {
	t.mu.Lock()
	t.snap.Coalesced = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
