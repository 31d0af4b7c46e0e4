// Package actuator holds the alarm threshold and motor positioning policies
// and the outputs they drive.
package actuator

import (
	"errors"
	"log/slog"
)

// ErrRange is returned for an empty or inverted mapping range.
var ErrRange = errors.New("actuator: range must be non-empty and increasing")

// Output is an on/off actuator such as a buzzer or warning LED.
type Output interface {
	Set(on bool) error
}

// Motor accepts an absolute position (for example a PWM pulse width).
type Motor interface {
	SetPosition(pos int) error
}

// Alarm compares temperatures against a fixed threshold and drives an Output.
// An Alarm belongs to the task that feeds it temperatures.
type Alarm struct {
	threshold  float64
	hysteresis float64
	out        Output
	log        *slog.Logger

	active bool
	driven bool // out has been set at least once
}

// NewAlarm creates an Alarm. A hysteresis of zero gives a plain threshold:
// temperatures at or above it trigger, anything below does not. With a
// positive hysteresis an active alarm only clears below threshold-hysteresis.
func NewAlarm(threshold, hysteresis float64, out Output, log *slog.Logger) *Alarm {
	if log == nil {
		log = slog.Default()
	}
	if hysteresis < 0 {
		hysteresis = 0
	}
	return &Alarm{threshold: threshold, hysteresis: hysteresis, out: out, log: log}
}

// Check evaluates temperature and returns whether the alarm is triggered.
// The output is driven on the first check and on every change.
func (a *Alarm) Check(temperature float64) bool {
	limit := a.threshold
	if a.active {
		limit -= a.hysteresis
	}
	triggered := temperature >= limit

	if triggered != a.active || !a.driven {
		if a.out != nil {
			if err := a.out.Set(triggered); err != nil {
				a.log.Warn("alarm: output failed", "on", triggered, "err", err)
			}
		}
		a.driven = true
	}
	a.active = triggered
	return triggered
}

// Active reports the result of the last Check.
func (a *Alarm) Active() bool {
	return a.active
}

// Threshold returns the trigger temperature.
func (a *Alarm) Threshold() float64 {
	return a.threshold
}
