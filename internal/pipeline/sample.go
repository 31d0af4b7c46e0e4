package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/derive"
	"github.com/sweeney/sensor-pipeline/internal/sensor"
)

// samplePoll is how often Sample retries a channel with nothing latched yet.
const samplePoll = 10 * time.Millisecond

// Reading is one unfiltered pass through the derivation stage.
type Reading struct {
	Reference      int
	RawTemperature int
	Celsius        float64
	X, Y, Z        int
	Pitch, Roll    float32
}

// Sample reads every channel once without filtering. It backs the
// -print-state diagnostic. A driver that has not latched a sample yet is
// polled for up to wait before giving up.
func Sample(drv sensor.Driver, params derive.TemperatureParams, wait time.Duration) (Reading, error) {
	var r Reading
	var err error

	if r.Reference, err = drv.FactoryReference(); err != nil {
		return r, fmt.Errorf("read factory reference: %w", err)
	}
	cal, err := derive.Calibrate(r.Reference, params)
	if err != nil {
		return r, fmt.Errorf("calibrate: %w", err)
	}

	deadline := time.Now().Add(wait)
	err = poll(deadline, func() (err error) {
		r.RawTemperature, err = drv.ReadRawTemperature()
		return err
	})
	if err != nil {
		return r, fmt.Errorf("read temperature: %w", err)
	}
	r.Celsius = cal.Celsius(float64(r.RawTemperature))

	err = poll(deadline, func() (err error) {
		r.X, r.Y, r.Z, err = drv.ReadRawAcceleration()
		return err
	})
	if err != nil {
		return r, fmt.Errorf("read acceleration: %w", err)
	}
	r.Pitch = derive.Pitch(r.X, r.Y, r.Z)
	r.Roll = derive.Roll(r.X, r.Y, r.Z)
	return r, nil
}

// poll retries read while it reports sensor.ErrNoSample and deadline has
// not passed. Any other error ends it at once.
func poll(deadline time.Time, read func() error) error {
	for {
		err := read()
		if !errors.Is(err, sensor.ErrNoSample) || !time.Now().Before(deadline) {
			return err
		}
		time.Sleep(samplePoll)
	}
}

// String formats the reading for the terminal.
func (r Reading) String() string {
	return fmt.Sprintf("reference=%d temperature=%d (%.2f C) accel=(%d, %d, %d) pitch=%.1f roll=%.1f",
		r.Reference, r.RawTemperature, r.Celsius, r.X, r.Y, r.Z, r.Pitch, r.Roll)
}
