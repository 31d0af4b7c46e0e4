package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/actuator"
	"github.com/sweeney/sensor-pipeline/internal/config"
	"github.com/sweeney/sensor-pipeline/internal/dispatch"
	"github.com/sweeney/sensor-pipeline/internal/display"
	"github.com/sweeney/sensor-pipeline/internal/gpio"
	"github.com/sweeney/sensor-pipeline/internal/pipeline"
	"github.com/sweeney/sensor-pipeline/internal/sensor"
)

// simulatedAccelRate is the data-ready rate of the simulated accelerometer.
const simulatedAccelRate = 40 * time.Millisecond

// simulatedReference is the factory reference count the simulator reports.
const simulatedReference = 1000

// board is the opened hardware plus everything that must be released.
type board struct {
	hw      pipeline.Hardware
	screen  *display.Emulator // non-nil when the display is emulated
	closers []io.Closer
}

func (b *board) add(c io.Closer) { b.closers = append(b.closers, c) }

// Close releases resources in reverse order of opening.
func (b *board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i].Close())
	}
	return errors.Join(errs...)
}

// screenText returns the emulated display contents, or nil when a real
// display is fitted.
func (b *board) screenText() func() string {
	if b.screen == nil {
		return nil
	}
	return b.screen.Text
}

// logOutput stands in for the alarm line when none is fitted.
type logOutput struct{ log *slog.Logger }

func (o logOutput) Set(on bool) error {
	o.log.Info("alarm: output", "on", on)
	return nil
}

// logMotor stands in for the servo when no PWM channel is fitted.
type logMotor struct{ log *slog.Logger }

func (m logMotor) SetPosition(us int) error {
	m.log.Debug("motor: position", "pulse_us", us)
	return nil
}

func countsPerDegree(t config.TemperatureConfig) float64 {
	return t.SlopeMV * float64(t.FullScale) / (t.VRef * 1000)
}

// openSimulated runs the pipeline on synthetic sensors and an emulated display.
func openSimulated(cfg *config.Config, log *slog.Logger) *board {
	emu := display.NewEmulator()
	return &board{
		screen: emu,
		hw: pipeline.Hardware{
			Sensor:            sensor.NewSimulator(simulatedReference, countsPerDegree(cfg.Temperature), time.Now().UnixNano()),
			Display:           emu,
			Alarm:             logOutput{log},
			Motor:             logMotor{log},
			TemperatureSource: dispatch.NewTickSource("temperature timer", cfg.Sensor.SampleInterval),
			AccelSource:       dispatch.NewTickSource("accelerometer", simulatedAccelRate),
		},
	}
}

// openHardware opens every configured peripheral. On error, anything
// already opened is released.
func openHardware(cfg *config.Config, log *slog.Logger) (_ *board, err error) {
	b := &board{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	bridge, err := sensor.OpenBridge(cfg.Sensor.Port, cfg.Sensor.Baud, log)
	if err != nil {
		return nil, err
	}
	bridge.ReferenceTimeout = cfg.Sensor.ReferenceTimeout
	b.add(bridge)
	b.hw.Sensor = bridge
	b.hw.TemperatureSource = dispatch.NewTickSource("temperature timer", cfg.Sensor.SampleInterval)

	if cfg.Accelerometer.ReadyLine == config.Disabled {
		b.hw.AccelSource = bridge
	} else {
		b.hw.AccelSource = gpio.NewEdgeSource("accelerometer", cfg.Accelerometer.Chip,
			[]int{cfg.Accelerometer.ReadyLine}, gpio.RisingEdge, gpio.PullNone, 0)
	}

	if cfg.DisplayFitted() {
		d := cfg.Display
		pins, err := gpio.OpenDisplayPins(d.Chip, d.DataLines, d.RSLine, d.RWLine, d.ENLine)
		if err != nil {
			return nil, fmt.Errorf("open display: %w", err)
		}
		bus := display.NewBus(pins, d.Settle)
		b.add(bus)
		b.hw.Display = bus
	} else {
		log.Info("display: no lines configured, running headless")
		b.screen = display.NewEmulator()
		b.hw.Display = b.screen
	}

	if cfg.Alarm.Line != config.Disabled {
		out, err := gpio.OpenOutput(cfg.Alarm.Chip, cfg.Alarm.Line)
		if err != nil {
			return nil, fmt.Errorf("open alarm: %w", err)
		}
		b.add(out)
		b.hw.Alarm = out
	} else {
		b.hw.Alarm = logOutput{log}
	}

	if cfg.Motor.PWMChip != config.Disabled {
		pwm, err := actuator.OpenPWM(actuator.SysfsRoot, cfg.Motor.PWMChip, cfg.Motor.PWMChannel, cfg.Motor.Period)
		if err != nil {
			return nil, fmt.Errorf("open motor: %w", err)
		}
		b.add(pwm)
		b.hw.Motor = pwm
	} else {
		b.hw.Motor = logMotor{log}
	}

	if cfg.KeypadFitted() {
		k := cfg.Keypad
		kp, err := gpio.OpenKeypad(k.Chip, k.RowLines, k.ColLines, k.Debounce)
		if err != nil {
			return nil, fmt.Errorf("open keypad: %w", err)
		}
		b.add(kp)
		b.hw.Keypad = kp
		b.hw.KeypadSource = kp
	}
	return b, nil
}
