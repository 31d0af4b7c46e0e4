// Package config loads the daemon configuration from YAML. A missing file
// yields the defaults; fields left out of the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Disabled marks an optional GPIO line or PWM channel as not fitted.
const Disabled = -1

// Config represents the daemon configuration.
type Config struct {
	Sensor        SensorConfig        `yaml:"sensor"`
	Filter        FilterConfig        `yaml:"filter"`
	Temperature   TemperatureConfig   `yaml:"temperature"`
	Alarm         AlarmConfig         `yaml:"alarm"`
	Motor         MotorConfig         `yaml:"motor"`
	Display       DisplayConfig       `yaml:"display"`
	Keypad        KeypadConfig        `yaml:"keypad"`
	Accelerometer AccelerometerConfig `yaml:"accelerometer"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HTTP          HTTPConfig          `yaml:"http"`
	Log           LogConfig           `yaml:"log"`
	Simulate      bool                `yaml:"simulate"`
}

// SensorConfig describes the serial link to the sensor bridge.
type SensorConfig struct {
	Port             string        `yaml:"port"`
	Baud             int           `yaml:"baud"`
	SampleInterval   time.Duration `yaml:"sample_interval"` // temperature timer period
	ReferenceTimeout time.Duration `yaml:"reference_timeout"`
}

// FilterConfig sets the moving-average depths.
type FilterConfig struct {
	TemperatureDepth int `yaml:"temperature_depth"`
	TiltDepth        int `yaml:"tilt_depth"`
}

// TemperatureConfig holds the sensor transfer function.
type TemperatureConfig struct {
	VRef             float64 `yaml:"vref"`
	FullScale        int     `yaml:"full_scale"`
	SlopeMV          float64 `yaml:"slope_mv"`
	ReferenceCelsius float64 `yaml:"reference_celsius"`
}

// AlarmConfig sets the threshold policy and its output line.
type AlarmConfig struct {
	Threshold  float64 `yaml:"threshold"`
	Hysteresis float64 `yaml:"hysteresis"`
	Chip       string  `yaml:"chip"`
	Line       int     `yaml:"line"`
}

// MotorConfig maps tilt to a PWM servo pulse.
type MotorConfig struct {
	PWMChip    int           `yaml:"pwm_chip"`
	PWMChannel int           `yaml:"pwm_channel"`
	Period     time.Duration `yaml:"period"`
	MinAngle   int           `yaml:"min_angle"`
	MaxAngle   int           `yaml:"max_angle"`
	MinPulseUs int           `yaml:"min_pulse_us"`
	MaxPulseUs int           `yaml:"max_pulse_us"`
}

// DisplayConfig wires the character display to GPIO lines.
type DisplayConfig struct {
	Chip            string        `yaml:"chip"`
	DataLines       []int         `yaml:"data_lines"` // D0..D7; empty runs headless
	RSLine          int           `yaml:"rs_line"`
	RWLine          int           `yaml:"rw_line"`
	ENLine          int           `yaml:"en_line"`
	Settle          time.Duration `yaml:"settle"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// KeypadConfig wires the 4x4 matrix keypad.
type KeypadConfig struct {
	Chip     string        `yaml:"chip"`
	RowLines []int         `yaml:"row_lines"`
	ColLines []int         `yaml:"col_lines"`
	Debounce time.Duration `yaml:"debounce"`
}

// AccelerometerConfig selects the data-ready source. With ReadyLine
// Disabled, acceleration frames from the bridge act as the interrupt.
type AccelerometerConfig struct {
	Chip      string `yaml:"chip"`
	ReadyLine int    `yaml:"ready_line"`
}

// MQTTConfig contains broker settings. An empty broker disables publishing.
type MQTTConfig struct {
	Broker     string        `yaml:"broker"`
	ClientID   string        `yaml:"client_id"`
	BufferSize int           `yaml:"buffer_size"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls log level and optional rotating file output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a configuration for a Raspberry Pi wired as in the
// reference build.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Port:             "/dev/ttyACM0",
			Baud:             115200,
			SampleInterval:   100 * time.Millisecond,
			ReferenceTimeout: 2 * time.Second,
		},
		Filter: FilterConfig{
			TemperatureDepth: 8,
			TiltDepth:        4,
		},
		Temperature: TemperatureConfig{
			VRef:             3.3,
			FullScale:        4095,
			SlopeMV:          2.5,
			ReferenceCelsius: 30,
		},
		Alarm: AlarmConfig{
			Threshold: 40,
			Chip:      "gpiochip0",
			Line:      17,
		},
		Motor: MotorConfig{
			PWMChip:    0,
			PWMChannel: 0,
			Period:     20 * time.Millisecond,
			MinAngle:   -90,
			MaxAngle:   90,
			MinPulseUs: 1000,
			MaxPulseUs: 2000,
		},
		Display: DisplayConfig{
			Chip:            "gpiochip0",
			DataLines:       []int{5, 6, 12, 13, 16, 19, 20, 21},
			RSLine:          22,
			RWLine:          Disabled,
			ENLine:          23,
			Settle:          50 * time.Microsecond,
			RefreshInterval: 250 * time.Millisecond,
		},
		Keypad: KeypadConfig{
			Chip:     "gpiochip0",
			RowLines: []int{24, 25, 8, 7},
			ColLines: []int{4, 27, 9, 11},
			Debounce: 10 * time.Millisecond,
		},
		Accelerometer: AccelerometerConfig{
			Chip:      "gpiochip0",
			ReadyLine: Disabled,
		},
		MQTT: MQTTConfig{
			ClientID:   "sensor-pipeline",
			BufferSize: 256,
			Heartbeat:  15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()
	return cfg, nil
}

// ensureDefaults replaces zero values that can never be meant literally.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Sensor.Baud == 0 {
		c.Sensor.Baud = def.Sensor.Baud
	}
	if c.Sensor.SampleInterval == 0 {
		c.Sensor.SampleInterval = def.Sensor.SampleInterval
	}
	if c.Sensor.ReferenceTimeout == 0 {
		c.Sensor.ReferenceTimeout = def.Sensor.ReferenceTimeout
	}

	if c.Filter.TemperatureDepth == 0 {
		c.Filter.TemperatureDepth = def.Filter.TemperatureDepth
	}
	if c.Filter.TiltDepth == 0 {
		c.Filter.TiltDepth = def.Filter.TiltDepth
	}

	if c.Temperature.VRef == 0 {
		c.Temperature.VRef = def.Temperature.VRef
	}
	if c.Temperature.FullScale == 0 {
		c.Temperature.FullScale = def.Temperature.FullScale
	}
	if c.Temperature.SlopeMV == 0 {
		c.Temperature.SlopeMV = def.Temperature.SlopeMV
	}

	if c.Motor.Period == 0 {
		c.Motor.Period = def.Motor.Period
	}
	if c.Display.RefreshInterval == 0 {
		c.Display.RefreshInterval = def.Display.RefreshInterval
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate reports every setting that cannot work, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Filter.TemperatureDepth < 1 {
		bad("filter.temperature_depth must be at least 1, got %d", c.Filter.TemperatureDepth)
	}
	if c.Filter.TiltDepth < 1 {
		bad("filter.tilt_depth must be at least 1, got %d", c.Filter.TiltDepth)
	}
	if c.Sensor.SampleInterval <= 0 {
		bad("sensor.sample_interval must be positive, got %s", c.Sensor.SampleInterval)
	}
	if c.Alarm.Hysteresis < 0 {
		bad("alarm.hysteresis must not be negative, got %g", c.Alarm.Hysteresis)
	}
	if c.Motor.MinAngle >= c.Motor.MaxAngle {
		bad("motor angle range [%d, %d] is empty", c.Motor.MinAngle, c.Motor.MaxAngle)
	}
	if c.Motor.PWMChip != Disabled && time.Duration(c.Motor.MaxPulseUs)*time.Microsecond > c.Motor.Period {
		bad("motor.max_pulse_us %d exceeds period %s", c.Motor.MaxPulseUs, c.Motor.Period)
	}
	if n := len(c.Display.DataLines); n != 0 && n != 8 {
		bad("display.data_lines needs 8 lines, got %d", n)
	}
	if n := len(c.Keypad.RowLines); n != 0 && n != 4 {
		bad("keypad.row_lines needs 4 lines, got %d", n)
	}
	if len(c.Keypad.RowLines) != len(c.Keypad.ColLines) {
		bad("keypad.col_lines needs %d lines, got %d", len(c.Keypad.RowLines), len(c.Keypad.ColLines))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		bad("log.level: %v", err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

// DisplayFitted reports whether display GPIO lines are configured.
func (c *Config) DisplayFitted() bool { return len(c.Display.DataLines) == 8 }

// KeypadFitted reports whether keypad GPIO lines are configured.
func (c *Config) KeypadFitted() bool { return len(c.Keypad.RowLines) == 4 }
