package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/reading"
	"github.com/sweeney/sensor-pipeline/internal/status"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		SampleIntervalMs: 100,
		FilterDepth:      8,
		TiltFilterDepth:  4,
		ThresholdC:       40,
		HeartbeatMs:      900000,
		Broker:           "tcp://192.168.1.200:1883",
		HTTPAddr:         ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, opts...)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetTemperature(41.25, true)
	tr.SetTilt(reading.Tilt{Pitch: -5, Roll: 20, Position: 1722})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Temperature == nil || *sj.Status.Temperature != 41.25 {
		t.Errorf("temperature_c: got %v", sj.Status.Temperature)
	}
	if !sj.Status.Alarm {
		t.Error("expected alarm=true")
	}
	if sj.Status.Tilt == nil || sj.Status.Tilt.Roll != 20 {
		t.Errorf("tilt: got %+v", sj.Status.Tilt)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.AlarmTrips != 1 {
		t.Errorf("Counts.AlarmTrips: got %d, want 1", sj.Status.Counts.AlarmTrips)
	}
	if sj.Status.Config.SampleIntervalMs != 100 {
		t.Errorf("Config.SampleIntervalMs: got %d, want 100", sj.Status.Config.SampleIntervalMs)
	}
}

func TestJSONBeforeFirstSample(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Temperature != nil {
		t.Errorf("temperature_c before first sample: got %v, want null", *sj.Status.Temperature)
	}
	if sj.Status.Tilt != nil {
		t.Error("tilt before first sample should be null")
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetTemperature(23.5, false)
	tr.SetKey('B')

	code, body := getBody(t, ts.URL+"/")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if !strings.Contains(body, "23.50 C") {
		t.Error("page should show the temperature")
	}
	if !strings.Contains(body, `id="last-key">B<`) {
		t.Error("page should show the last key")
	}
	if strings.Contains(body, `id="screen"`) {
		t.Error("display mirror should only appear when configured")
	}
}

func TestHTMLShowsAlarm(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetTemperature(45, true)

	_, body := getBody(t, ts.URL+"/index.html")
	if !strings.Contains(body, `class="alarm">ON`) {
		t.Error("page should flag the alarm")
	}
}

func TestHTMLScreenMirror(t *testing.T) {
	ts, _ := newTestServer(t, WithScreen(func() string { return "Temp: 23.50C\nP:  3 R: -4" }))

	_, body := getBody(t, ts.URL+"/")
	if !strings.Contains(body, "Temp: 23.50C\nP:  3 R: -4") {
		t.Errorf("screen not mirrored:\n%s", body)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	code, _ := getBody(t, ts.URL+"/nonexistent")
	if code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.Counts.Keys != 0 {
		t.Errorf("keys initially: got %d", sj.Status.Counts.Keys)
	}

	tr.SetKey('1')
	tr.SetKey('2')
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Counts.Keys != 2 || sj.Status.LastKey != "2" {
		t.Errorf("keys after update: got %d last=%q", sj.Status.Counts.Keys, sj.Status.LastKey)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
