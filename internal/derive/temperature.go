// Package derive converts filtered raw sensor counts into physical quantities.
package derive

import (
	"errors"
	"fmt"
)

// TemperatureParams describes the analog temperature sensor and its ADC.
type TemperatureParams struct {
	VRef             float64 // ADC reference voltage (V)
	FullScale        int     // ADC count at VRef
	SlopeMV          float64 // sensor sensitivity (mV per degree C)
	ReferenceCelsius float64 // temperature at which the factory reference was taken
}

// DefaultTemperatureParams matches the STM32F4 internal sensor on a 12-bit ADC.
func DefaultTemperatureParams() TemperatureParams {
	return TemperatureParams{
		VRef:             3.3,
		FullScale:        4095,
		SlopeMV:          2.5,
		ReferenceCelsius: 30,
	}
}

// Calibration is the one-time temperature calibration taken at startup.
// It is immutable; copies are safe to share.
type Calibration struct {
	reference int
	refC      float64
	perCount  float64 // degrees C per ADC count
}

// Calibrate builds the calibration from the factory reference count.
func Calibrate(reference int, p TemperatureParams) (Calibration, error) {
	if p.FullScale <= 0 {
		return Calibration{}, fmt.Errorf("derive: full scale %d must be positive", p.FullScale)
	}
	if p.SlopeMV == 0 {
		return Calibration{}, errors.New("derive: sensor slope must be non-zero")
	}
	if p.VRef <= 0 {
		return Calibration{}, fmt.Errorf("derive: reference voltage %v must be positive", p.VRef)
	}
	if reference < 0 || reference > p.FullScale {
		return Calibration{}, fmt.Errorf("derive: factory reference %d outside ADC range 0..%d", reference, p.FullScale)
	}
	mvPerCount := p.VRef * 1000 / float64(p.FullScale)
	return Calibration{
		reference: reference,
		refC:      p.ReferenceCelsius,
		perCount:  mvPerCount / p.SlopeMV,
	}, nil
}

// Reference returns the factory reference count the calibration was built from.
func (c Calibration) Reference() int {
	return c.reference
}

// Celsius converts a filtered average ADC count into degrees C.
func (c Calibration) Celsius(average float64) float64 {
	return (average-float64(c.reference))*c.perCount + c.refC
}
