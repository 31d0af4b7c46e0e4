package pipeline

import (
	"fmt"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/actuator"
	"github.com/sweeney/sensor-pipeline/internal/derive"
	"github.com/sweeney/sensor-pipeline/internal/filter"
	"github.com/sweeney/sensor-pipeline/internal/reading"
)

// TemperatureStage filters raw temperature counts, converts the average to
// degrees and runs the alarm policy. It is owned by the temperature task.
type TemperatureStage struct {
	filter *filter.MovingAverage
	cal    derive.Calibration
	alarm  *actuator.Alarm
	known  bool // at least one sample processed
}

// TemperatureResult is the outcome of one temperature sample.
type TemperatureResult struct {
	Celsius float64
	Alarm   bool
	Changed bool // alarm state differs from the previous sample
}

// NewTemperatureStage creates a stage averaging depth samples.
func NewTemperatureStage(depth int, cal derive.Calibration, alarm *actuator.Alarm) (*TemperatureStage, error) {
	f, err := filter.New(depth)
	if err != nil {
		return nil, fmt.Errorf("temperature filter: %w", err)
	}
	return &TemperatureStage{filter: f, cal: cal, alarm: alarm}, nil
}

// Process takes a raw sample and returns the derived reading plus any
// events to publish. The first sample only produces an event if it is
// already above threshold.
func (s *TemperatureStage) Process(raw int, now time.Time) (TemperatureResult, []reading.Event) {
	celsius := s.cal.Celsius(s.filter.Push(raw))

	was := s.alarm.Active()
	on := s.alarm.Check(celsius)
	changed := on != was || (!s.known && on)
	s.known = true

	res := TemperatureResult{Celsius: celsius, Alarm: on, Changed: changed}
	if !changed {
		return res, nil
	}

	typ := reading.EventAlarmOff
	if on {
		typ = reading.EventAlarmOn
	}
	return res, []reading.Event{{
		Timestamp:   now,
		Type:        typ,
		Temperature: celsius,
		Threshold:   s.alarm.Threshold(),
	}}
}

// TiltStage turns acceleration samples into filtered angles and drives the
// motor from roll. It is owned by the accelerometer task.
type TiltStage struct {
	tilt       *derive.Tilt
	positioner *actuator.Positioner
}

// NewTiltStage creates a stage averaging depth samples per axis.
func NewTiltStage(depth int, positioner *actuator.Positioner) (*TiltStage, error) {
	t, err := derive.NewTilt(depth)
	if err != nil {
		return nil, err
	}
	return &TiltStage{tilt: t, positioner: positioner}, nil
}

// Process converts one acceleration sample and moves the motor.
func (s *TiltStage) Process(x, y, z int) reading.Tilt {
	pitch, roll := s.tilt.Update(x, y, z)
	return reading.Tilt{
		Pitch:    pitch,
		Roll:     roll,
		Position: s.positioner.MoveTo(roll),
	}
}
