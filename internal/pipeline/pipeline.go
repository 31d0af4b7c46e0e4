// Package pipeline wires the acquisition tasks together. Interrupt sources
// raise signals, each task wakes, pulls a sample from the sensor driver,
// filters and derives it, applies the actuation policy and renders its part
// of the display.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/actuator"
	"github.com/sweeney/sensor-pipeline/internal/derive"
	"github.com/sweeney/sensor-pipeline/internal/dispatch"
	"github.com/sweeney/sensor-pipeline/internal/display"
	"github.com/sweeney/sensor-pipeline/internal/keypad"
	"github.com/sweeney/sensor-pipeline/internal/mqtt"
	"github.com/sweeney/sensor-pipeline/internal/reading"
	"github.com/sweeney/sensor-pipeline/internal/sensor"
	"github.com/sweeney/sensor-pipeline/internal/status"
)

// Signal bits, one per interrupt source.
const (
	SignalTemperature   uint32 = 0x01
	SignalAccelerometer uint32 = 0x04
)

// Hardware collects the collaborators the pipeline drives.
type Hardware struct {
	Sensor  sensor.Driver
	Display display.Device

	// Alarm and Motor are optional.
	Alarm actuator.Output
	Motor actuator.Motor

	// TemperatureSource is the periodic sampling timer.
	TemperatureSource dispatch.Source
	// AccelSource fires when a new acceleration sample is ready.
	AccelSource dispatch.Source

	// Keypad and KeypadSource are optional; both or neither.
	Keypad       keypad.Scanner
	KeypadSource dispatch.Source
}

// Options tunes filtering, calibration and actuation.
type Options struct {
	FilterDepth int
	TiltDepth   int
	Temperature derive.TemperatureParams

	Threshold  float64
	Hysteresis float64

	MinAngle, MaxAngle       int
	MinPosition, MaxPosition int

	// RefreshInterval throttles routine display updates. Alarm changes and
	// key presses are always shown at once.
	RefreshInterval time.Duration

	// Publisher receives alarm and key events. Nil discards them.
	Publisher mqtt.Publisher
	// Tracker receives every reading. Optional.
	Tracker *status.Tracker

	Now func() time.Time
}

// Pipeline owns the tasks, their signals and the display arbiter.
type Pipeline struct {
	hw      Hardware
	opts    Options
	log     *slog.Logger
	now     func() time.Time
	pub     mqtt.Publisher
	tracker *status.Tracker

	runner  *dispatch.Runner
	display *display.Arbiter

	tempFlags  *dispatch.Flags
	accelFlags *dispatch.Flags
	keys       *dispatch.Mailbox[int]

	temperature *TemperatureStage
	tilt        *TiltStage
}

// New calibrates the temperature sensor, initialises the display and
// registers the tasks and sources. Nothing runs until Run.
func New(hw Hardware, opts Options, log *slog.Logger) (*Pipeline, error) {
	if hw.Sensor == nil || hw.Display == nil {
		return nil, errors.New("pipeline: sensor and display are required")
	}
	if hw.TemperatureSource == nil || hw.AccelSource == nil {
		return nil, errors.New("pipeline: temperature and accelerometer sources are required")
	}
	if (hw.Keypad == nil) != (hw.KeypadSource == nil) {
		return nil, errors.New("pipeline: keypad needs both a scanner and a source")
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Pipeline{
		hw:         hw,
		opts:       opts,
		log:        log,
		now:        opts.Now,
		pub:        opts.Publisher,
		tracker:    opts.Tracker,
		runner:     dispatch.NewRunner(log),
		display:    display.NewArbiter(hw.Display, log),
		tempFlags:  dispatch.NewFlags(),
		accelFlags: dispatch.NewFlags(),
		keys:       dispatch.NewMailbox[int](),
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.pub == nil {
		p.pub = mqtt.Discard{}
	}

	ref, err := hw.Sensor.FactoryReference()
	if err != nil {
		return nil, fmt.Errorf("read factory reference: %w", err)
	}
	cal, err := derive.Calibrate(ref, opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("calibrate: %w", err)
	}
	log.Info("pipeline: temperature calibrated", "reference", ref)

	alarm := actuator.NewAlarm(opts.Threshold, opts.Hysteresis, hw.Alarm, log)
	if p.temperature, err = NewTemperatureStage(opts.FilterDepth, cal, alarm); err != nil {
		return nil, err
	}
	positioner, err := actuator.NewPositioner(opts.MinAngle, opts.MaxAngle, opts.MinPosition, opts.MaxPosition, hw.Motor, log)
	if err != nil {
		return nil, err
	}
	if p.tilt, err = NewTiltStage(opts.TiltDepth, positioner); err != nil {
		return nil, err
	}

	if err := display.Configure(hw.Display); err != nil {
		return nil, fmt.Errorf("configure display: %w", err)
	}
	p.display.WriteAt(initialTempText, 1, tempColumn)
	p.display.WriteAt(initialTiltText, 2, tiltColumn)

	if err := p.register(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) register() error {
	var lastTemp, lastTilt time.Time

	tasks := []dispatch.Task{
		dispatch.FlagTask("temperature", p.tempFlags, SignalTemperature, func(ctx context.Context, _ uint32) {
			p.handleTemperature(&lastTemp)
		}),
		dispatch.FlagTask("accelerometer", p.accelFlags, SignalAccelerometer, func(ctx context.Context, _ uint32) {
			p.handleAccel(&lastTilt)
		}),
	}
	if p.hw.Keypad != nil {
		tasks = append(tasks, dispatch.MailboxTask("keypad", p.keys, func(ctx context.Context, row int) {
			p.handleKey(row)
		}))
	}
	for _, t := range tasks {
		if err := p.runner.AddTask(t); err != nil {
			return err
		}
	}

	// Sources never block: they only set a flag or overwrite the mailbox.
	type binding struct {
		src  dispatch.Source
		fire func(int)
	}
	sources := []binding{
		{p.hw.TemperatureSource, func(int) { p.tempFlags.Set(SignalTemperature) }},
		{p.hw.AccelSource, func(int) { p.accelFlags.Set(SignalAccelerometer) }},
	}
	if p.hw.KeypadSource != nil {
		sources = append(sources, binding{p.hw.KeypadSource, p.keys.Post})
	}
	for _, s := range sources {
		if err := p.runner.AddSource(s.src, s.fire); err != nil {
			return err
		}
	}
	return nil
}

// Run starts every task, arms the sources once the tasks are waiting and
// blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.runner.Run(ctx)
}

// Display returns the arbiter so other components can share the screen.
func (p *Pipeline) Display() *display.Arbiter {
	return p.display
}

// Coalesced returns how many signals were folded into one already pending.
func (p *Pipeline) Coalesced() uint64 {
	return p.tempFlags.Coalesced() + p.accelFlags.Coalesced() + p.keys.Overwritten()
}

func (p *Pipeline) due(last *time.Time, now time.Time) bool {
	if last.IsZero() || now.Sub(*last) >= p.opts.RefreshInterval {
		*last = now
		return true
	}
	return false
}

func (p *Pipeline) readError(task string, err error) {
	p.log.Warn(task+": read failed, keeping last value", "err", err)
	if p.tracker != nil {
		p.tracker.AddReadError()
	}
}

func (p *Pipeline) publish(events []reading.Event) {
	for _, e := range events {
		if err := p.pub.Publish(e); err != nil {
			p.log.Warn("pipeline: publish failed", "event", e.Type, "err", err)
		}
	}
}

func (p *Pipeline) handleTemperature(last *time.Time) {
	raw, err := p.hw.Sensor.ReadRawTemperature()
	if err != nil {
		p.readError("temperature", err)
		return
	}
	now := p.now()
	res, events := p.temperature.Process(raw, now)

	if res.Changed {
		p.log.Info("pipeline: alarm", "on", res.Alarm, "celsius", res.Celsius)
		p.display.WriteAt(alarmText(res.Alarm), 1, alarmColumn)
	}
	if p.due(last, now) || res.Changed {
		p.display.WriteAt(temperatureText(res.Celsius), 1, tempColumn)
	}
	p.publish(events)

	if p.tracker != nil {
		p.tracker.SetTemperature(res.Celsius, res.Alarm)
		p.tracker.SetCoalesced(p.Coalesced())
	}
}

func (p *Pipeline) handleAccel(last *time.Time) {
	x, y, z, err := p.hw.Sensor.ReadRawAcceleration()
	if err != nil {
		p.readError("accelerometer", err)
		return
	}
	t := p.tilt.Process(x, y, z)
	if p.due(last, p.now()) {
		p.display.WriteAt(tiltText(t.Pitch, t.Roll), 2, tiltColumn)
	}
	if p.tracker != nil {
		p.tracker.SetTilt(t)
	}
}

func (p *Pipeline) handleKey(row int) {
	col, ok, err := p.hw.Keypad.Scan(row)
	if err != nil {
		p.log.Warn("keypad: scan failed", "row", row, "err", err)
		return
	}
	if !ok {
		p.log.Debug("keypad: released before scan", "row", row)
		return
	}
	key, ok := keypad.Decode(row, col)
	if !ok {
		p.log.Warn("keypad: no key at position", "row", row, "col", col)
		return
	}

	p.display.WriteAt(keyText(key), 2, keyColumn)
	p.publish([]reading.Event{{Timestamp: p.now(), Type: reading.EventKey, Key: key}})
	if p.tracker != nil {
		p.tracker.SetKey(key)
	}
}
