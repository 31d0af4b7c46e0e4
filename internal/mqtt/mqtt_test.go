package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/reading"
)

var ts = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func TestTopics(t *testing.T) {
	if Topic != "sensors/pipeline/events" {
		t.Errorf("Topic: got %q", Topic)
	}
	if TopicSystem != "sensors/pipeline/system" {
		t.Errorf("TopicSystem: got %q", TopicSystem)
	}
}

func TestFormatPayloadAlarm(t *testing.T) {
	payload, err := FormatPayload(reading.Event{
		Timestamp:   ts,
		Type:        reading.EventAlarmOn,
		Temperature: 41.5,
		Threshold:   40,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"pipeline":{"timestamp":"2026-02-02T22:18:12Z","event":"ALARM_ON","temperature_c":41.5,"threshold_c":40}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\n got: %s\nwant: %s", payload, want)
	}
}

func TestFormatPayloadAlarmOffAtZero(t *testing.T) {
	payload, err := FormatPayload(reading.Event{Timestamp: ts, Type: reading.EventAlarmOff, Temperature: 0, Threshold: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["pipeline"]["temperature_c"]; !ok {
		t.Error("temperature_c must be present on alarm events even when zero")
	}
	if _, ok := raw["pipeline"]["key"]; ok {
		t.Error("key must be omitted on alarm events")
	}
}

func TestFormatPayloadKey(t *testing.T) {
	payload, err := FormatPayload(reading.Event{Timestamp: ts, Type: reading.EventKey, Key: '#'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"pipeline":{"timestamp":"2026-02-02T22:18:12Z","event":"KEY","key":"#"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\n got: %s\nwant: %s", payload, want)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	payload, _ := FormatPayload(reading.Event{Timestamp: time.Date(2026, 2, 3, 0, 18, 12, 0, loc), Type: reading.EventKey, Key: '1'})

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Pipeline.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("timestamp: got %s", parsed.Pipeline.Timestamp)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Reason: "SIGTERM"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\n got: %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	var parsed SystemPayload
	if err := json.Unmarshal(WillPayload(ts), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "OFFLINE" {
		t.Errorf("event: got %q", parsed.System.Event)
	}
	if parsed.System.Reason == "" {
		t.Error("expected a reason on the will message")
	}
}

func TestFakePublisher(t *testing.T) {
	pub := NewFakePublisher()

	_ = pub.Publish(reading.Event{Timestamp: ts, Type: reading.EventAlarmOn, Temperature: 41, Threshold: 40})
	_ = pub.Publish(reading.Event{Timestamp: ts, Type: reading.EventKey, Key: '7'})
	_ = pub.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP"})

	if len(pub.Events) != 2 || len(pub.Payloads) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.Events))
	}
	if keys := pub.EventsOf(reading.EventKey); len(keys) != 1 || keys[0].Key != '7' {
		t.Errorf("EventsOf(KEY): got %+v", keys)
	}
	if names := pub.SystemEventNames(); len(names) != 1 || names[0] != "STARTUP" {
		t.Errorf("SystemEventNames: got %v", names)
	}
}

func TestFakePublisherError(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	pub.PublishSystemError = errors.New("broker down")

	if err := pub.Publish(reading.Event{Type: reading.EventKey, Key: '1'}); err == nil {
		t.Error("expected Publish error")
	}
	if err := pub.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(pub.Events) != 0 || len(pub.SystemEvents) != 0 {
		t.Error("failed publishes must not be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	pub := NewFakePublisher()
	_ = pub.Publish(reading.Event{Type: reading.EventKey, Key: '1'})
	_ = pub.Close()
	pub.Connected = true

	pub.Reset()

	if len(pub.Events) != 0 || pub.Closed || pub.IsConnected() {
		t.Errorf("Reset left state behind: %+v", pub)
	}
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	if err := p.Publish(reading.Event{Type: reading.EventKey}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if (Discard{}).IsConnected() {
		t.Error("Discard must report disconnected")
	}
}
