// Package mqtt publishes pipeline events and lifecycle messages, with an
// in-memory fake for tests.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/reading"
)

// Topic is the MQTT topic for alarm and key events.
const Topic = "sensors/pipeline/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/pipeline/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a pipeline event to the broker.
	// A failure is reported, never fatal to the caller.
	Publish(event reading.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // "STARTUP", "SHUTDOWN", "HEARTBEAT", "OFFLINE"
	Reason     string // signal name, shutdown only
	RawPayload []byte // pre-formatted JSON; returned verbatim by FormatSystemPayload
	Retained   bool
}

// Payload represents the MQTT message payload for a pipeline event.
type Payload struct {
	Pipeline EventPayload `json:"pipeline"`
}

// EventPayload contains the event details. Temperature fields are set for
// alarm transitions, Key for key presses.
type EventPayload struct {
	Timestamp   string   `json:"timestamp"`
	Event       string   `json:"event"`
	Temperature *float64 `json:"temperature_c,omitempty"`
	Threshold   *float64 `json:"threshold_c,omitempty"`
	Key         string   `json:"key,omitempty"`
}

// FormatPayload creates the JSON payload for a pipeline event.
func FormatPayload(event reading.Event) ([]byte, error) {
	p := EventPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
	}
	switch event.Type {
	case reading.EventKey:
		p.Key = string(event.Key)
	default:
		temp, threshold := event.Temperature, event.Threshold
		p.Temperature = &temp
		p.Threshold = &threshold
	}
	return json.Marshal(Payload{Pipeline: p})
}

// SystemPayload is the MQTT payload for system events that do not carry a
// full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect.
func WillPayload(now time.Time) []byte {
	data, _ := FormatSystemPayload(SystemEvent{Timestamp: now, Event: "OFFLINE", Reason: "connection lost"})
	return data
}

// Discard is a Publisher that drops everything. It is used when no broker is
// configured.
type Discard struct{}

func (Discard) Publish(reading.Event) error     { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
