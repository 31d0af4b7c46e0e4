package sensor

import "sync"

// FakeDriver is a test double that returns scripted samples.
// Each read consumes the next sample; when exhausted the last one repeats.
type FakeDriver struct {
	mu sync.Mutex

	Temperatures []int
	Accels       []Accel
	Reference    int

	tempIndex  int
	accelIndex int

	// TempReads and AccelReads count successful reads.
	TempReads  int
	AccelReads int

	// Errors, if set, are returned by the matching read.
	TempError      error
	AccelError     error
	ReferenceError error
}

// ReadRawTemperature returns the next scripted temperature count.
func (f *FakeDriver) ReadRawTemperature() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TempError != nil {
		return 0, f.TempError
	}
	if len(f.Temperatures) == 0 {
		return 0, ErrNoSample
	}
	v := f.Temperatures[f.tempIndex]
	if f.tempIndex < len(f.Temperatures)-1 {
		f.tempIndex++
	}
	f.TempReads++
	return v, nil
}

// ReadRawAcceleration returns the next scripted acceleration sample.
func (f *FakeDriver) ReadRawAcceleration() (int, int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AccelError != nil {
		return 0, 0, 0, f.AccelError
	}
	if len(f.Accels) == 0 {
		return 0, 0, 0, ErrNoSample
	}
	a := f.Accels[f.accelIndex]
	if f.accelIndex < len(f.Accels)-1 {
		f.accelIndex++
	}
	f.AccelReads++
	return a.X, a.Y, a.Z, nil
}

// FactoryReference returns the scripted reference.
func (f *FakeDriver) FactoryReference() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReferenceError != nil {
		return 0, f.ReferenceError
	}
	return f.Reference, nil
}

// SetTempError sets or clears the temperature read error.
func (f *FakeDriver) SetTempError(err error) {
	f.mu.Lock()
	f.TempError = err
	f.mu.Unlock()
}

// Reads returns the temperature and acceleration read counts.
func (f *FakeDriver) Reads() (temp, accel int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TempReads, f.AccelReads
}
