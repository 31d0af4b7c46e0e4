package pipeline

import (
	"testing"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/actuator"
	"github.com/sweeney/sensor-pipeline/internal/derive"
	"github.com/sweeney/sensor-pipeline/internal/reading"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// With the default parameters one ADC count is about 0.322 C, so with a
// reference of 1000 counts: 1000 -> 30.0 C, 1032 -> 40.3 C, 1040 -> 42.9 C.
func newTempStage(t *testing.T, depth int, hysteresis float64, out actuator.Output) *TemperatureStage {
	t.Helper()
	cal, err := derive.Calibrate(1000, derive.DefaultTemperatureParams())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	s, err := NewTemperatureStage(depth, cal, actuator.NewAlarm(40, hysteresis, out, nil))
	if err != nil {
		t.Fatalf("NewTemperatureStage: %v", err)
	}
	return s
}

func TestTemperatureStageNoEventBelowThreshold(t *testing.T) {
	s := newTempStage(t, 1, 0, nil)

	res, events := s.Process(1000, t0)
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
	if res.Alarm || res.Changed {
		t.Errorf("unexpected alarm state: %+v", res)
	}
	if res.Celsius < 29.99 || res.Celsius > 30.01 {
		t.Errorf("Celsius: got %v, want 30", res.Celsius)
	}
}

func TestTemperatureStageAlarmTransitions(t *testing.T) {
	out := &actuator.FakeOutput{}
	s := newTempStage(t, 1, 0, out)

	steps := []struct {
		raw  int
		want reading.EventType // "" for none
	}{
		{1000, ""},
		{1040, reading.EventAlarmOn},
		{1040, ""},
		{1035, ""},
		{1000, reading.EventAlarmOff},
		{1000, ""},
	}

	for i, step := range steps {
		now := t0.Add(time.Duration(i) * time.Second)
		_, events := s.Process(step.raw, now)

		if step.want == "" {
			if len(events) != 0 {
				t.Errorf("step %d: expected no events, got %v", i, events)
			}
			continue
		}
		if len(events) != 1 {
			t.Fatalf("step %d: expected 1 event, got %d", i, len(events))
		}
		if events[0].Type != step.want {
			t.Errorf("step %d: got %s, want %s", i, events[0].Type, step.want)
		}
		if !events[0].Timestamp.Equal(now) {
			t.Errorf("step %d: timestamp %v, want %v", i, events[0].Timestamp, now)
		}
		if events[0].Threshold != 40 {
			t.Errorf("step %d: threshold %v, want 40", i, events[0].Threshold)
		}
	}

	// initial off, on, off
	if len(out.States) != 3 {
		t.Errorf("output driven %d times, want 3: %v", len(out.States), out.States)
	}
}

func TestTemperatureStageFirstSampleAboveThreshold(t *testing.T) {
	s := newTempStage(t, 1, 0, nil)

	res, events := s.Process(1040, t0)
	if !res.Alarm || !res.Changed {
		t.Errorf("expected alarm on first sample: %+v", res)
	}
	if len(events) != 1 || events[0].Type != reading.EventAlarmOn {
		t.Errorf("expected ALARM_ON, got %v", events)
	}
}

func TestTemperatureStageFiltersBeforeAlarm(t *testing.T) {
	s := newTempStage(t, 4, 0, nil)

	// A single hot sample is diluted by the window.
	for _, raw := range []int{1000, 1000, 1000} {
		s.Process(raw, t0)
	}
	res, events := s.Process(1100, t0) // mean 1025 -> 38.1 C
	if res.Alarm || len(events) != 0 {
		t.Errorf("single spike must not trip the alarm: %+v %v", res, events)
	}

	res, events = s.Process(1100, t0) // mean 1050 -> 46.1 C
	if !res.Alarm || len(events) != 1 {
		t.Errorf("sustained rise must trip the alarm: %+v %v", res, events)
	}
}

func TestTemperatureStageHysteresis(t *testing.T) {
	s := newTempStage(t, 1, 2, nil)

	s.Process(1040, t0) // 42.9 on
	if res, _ := s.Process(1028, t0); !res.Alarm { // 39.0, inside the band
		t.Error("expected alarm to hold inside the hysteresis band")
	}
	if res, _ := s.Process(1020, t0); res.Alarm { // 36.4
		t.Error("expected alarm to clear below the band")
	}
}

func TestTemperatureStageBadDepth(t *testing.T) {
	cal, _ := derive.Calibrate(1000, derive.DefaultTemperatureParams())
	if _, err := NewTemperatureStage(0, cal, actuator.NewAlarm(40, 0, nil, nil)); err == nil {
		t.Error("expected error for depth 0")
	}
}

func TestTiltStage(t *testing.T) {
	motor := &actuator.FakeMotor{}
	pos, err := actuator.NewPositioner(-90, 90, 1000, 2000, motor, nil)
	if err != nil {
		t.Fatalf("NewPositioner: %v", err)
	}
	s, err := NewTiltStage(1, pos)
	if err != nil {
		t.Fatalf("NewTiltStage: %v", err)
	}

	// y / sqrt(x^2+z^2) = 2 -> roll 63.4, truncated to 63
	got := s.Process(0, 1000, 500)
	want := reading.Tilt{Pitch: 0, Roll: 63, Position: 1850}
	if got != want {
		t.Errorf("Process: got %+v, want %+v", got, want)
	}
	if last, ok := motor.Last(); !ok || last != 1850 {
		t.Errorf("motor: got %d (set=%v), want 1850", last, ok)
	}

	if got := s.Process(0, 0, 1000); got.Roll != 0 || got.Position != 1500 {
		t.Errorf("level: got %+v", got)
	}
}

func TestLayoutWidths(t *testing.T) {
	texts := map[string]string{
		"temperature":  temperatureText(-12.345),
		"initial temp": initialTempText,
		"tilt":         tiltText(-90, 90),
		"initial tilt": initialTiltText,
	}
	for name, s := range texts {
		if len(s) > alarmColumn-1 {
			t.Errorf("%s text %q overlaps column %d", name, s, alarmColumn)
		}
	}
	if got := temperatureText(27.25); got != "Temp:   27.2C" && got != "Temp:   27.3C" {
		t.Errorf("temperatureText: got %q", got)
	}
	if got := tiltText(-3, 45); got != "P:  -3 R:  45" {
		t.Errorf("tiltText: got %q", got)
	}
	if len(alarmText(true)) != len(alarmText(false)) {
		t.Error("alarm indicator must fully overwrite itself")
	}
	if got := keyText('#'); got != "Key:#" {
		t.Errorf("keyText: got %q", got)
	}
}
