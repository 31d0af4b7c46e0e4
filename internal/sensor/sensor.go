// Package sensor is the boundary to the temperature and acceleration hardware.
// Drivers return the most recently latched sample and never block on new data.
package sensor

import "errors"

// ErrNoSample is returned before the first sample has been latched.
var ErrNoSample = errors.New("sensor: no sample latched yet")

// Driver reads raw sensor counts.
type Driver interface {
	// ReadRawTemperature returns the latest temperature ADC count.
	ReadRawTemperature() (int, error)

	// ReadRawAcceleration returns the latest tri-axis acceleration counts.
	ReadRawAcceleration() (x, y, z int, err error)

	// FactoryReference returns the vendor calibration count for the
	// temperature sensor. Read once at startup.
	FactoryReference() (int, error)
}

// Accel is one tri-axis acceleration sample in raw counts.
type Accel struct {
	X, Y, Z int
}
