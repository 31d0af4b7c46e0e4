package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Temperature   *float64   `json:"temperature_c"`
	Alarm         bool       `json:"alarm"`
	Tilt          *TiltJSON  `json:"tilt"`
	LastKey       string     `json:"last_key,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// TiltJSON is the JSON representation of orientation.
type TiltJSON struct {
	Pitch    int `json:"pitch"`
	Roll     int `json:"roll"`
	Position int `json:"position"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counters.
type CountsJSON struct {
	TemperatureSamples int    `json:"temperature_samples"`
	TiltSamples        int    `json:"tilt_samples"`
	Keys               int    `json:"keys"`
	AlarmTrips         int    `json:"alarm_trips"`
	ReadErrors         int    `json:"read_errors"`
	Coalesced          uint64 `json:"coalesced_signals"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleIntervalMs int64   `json:"sample_interval_ms"`
	FilterDepth      int     `json:"filter_depth"`
	TiltFilterDepth  int     `json:"tilt_filter_depth"`
	ThresholdC       float64 `json:"threshold_c"`
	HeartbeatMs      int64   `json:"heartbeat_ms"`
	Broker           string  `json:"broker"`
	HTTPAddr         string  `json:"http_addr"`
	Simulated        bool    `json:"simulated,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Alarm:         snap.Alarm,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			TemperatureSamples: snap.Counts.TemperatureSamples,
			TiltSamples:        snap.Counts.TiltSamples,
			Keys:               snap.Counts.Keys,
			AlarmTrips:         snap.Counts.AlarmTrips,
			ReadErrors:         snap.Counts.ReadErrors,
			Coalesced:          snap.Coalesced,
		},
		Config: ConfigJSON{
			SampleIntervalMs: snap.Config.SampleIntervalMs,
			FilterDepth:      snap.Config.FilterDepth,
			TiltFilterDepth:  snap.Config.TiltFilterDepth,
			ThresholdC:       snap.Config.ThresholdC,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			Simulated:        snap.Config.Simulated,
		},
	}
	if snap.HasTemperature {
		c := snap.Temperature
		inner.Temperature = &c
	}
	if snap.HasTilt {
		inner.Tilt = &TiltJSON{Pitch: snap.Tilt.Pitch, Roll: snap.Tilt.Roll, Position: snap.Tilt.Position}
	}
	if snap.LastKey != 0 {
		inner.LastKey = string(snap.LastKey)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
