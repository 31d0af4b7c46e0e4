// Package reading holds the values that flow out of the acquisition tasks.
// It has no dependencies so that telemetry and status can share it.
package reading

import "time"

// EventType identifies a discrete event worth publishing.
type EventType string

const (
	EventAlarmOn  EventType = "ALARM_ON"
	EventAlarmOff EventType = "ALARM_OFF"
	EventKey      EventType = "KEY"
)

// Event is a discrete occurrence produced by a task.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Temperature float64 // alarm events
	Threshold   float64 // alarm events
	Key         rune    // key events
}

// Tilt is a filtered orientation with the motor position derived from it.
type Tilt struct {
	Pitch    int
	Roll     int
	Position int
}

// Counts tracks activity since startup.
type Counts struct {
	TemperatureSamples int
	TiltSamples        int
	Keys               int
	AlarmTrips         int
	ReadErrors         int
}
