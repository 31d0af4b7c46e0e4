package gpio

import (
	"errors"
	"sync"
)

// FakeSource is an interrupt source fired by hand in tests.
type FakeSource struct {
	name string

	mu   sync.Mutex
	fire func(line int)

	// ArmError, if set, will be returned by Arm.
	ArmError error

	// Arms and Disarms count calls.
	Arms    int
	Disarms int
}

// NewFakeSource creates an unarmed FakeSource.
func NewFakeSource(name string) *FakeSource {
	return &FakeSource{name: name}
}

// Name returns the source name.
func (f *FakeSource) Name() string { return f.name }

// Arm records fire for later Trigger calls.
func (f *FakeSource) Arm(fire func(line int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ArmError != nil {
		return f.ArmError
	}
	if f.fire != nil {
		return errors.New("fake source already armed")
	}
	f.fire = fire
	f.Arms++
	return nil
}

// Disarm forgets the fire callback.
func (f *FakeSource) Disarm() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fire = nil
	f.Disarms++
	return nil
}

// Armed reports whether Trigger would deliver.
func (f *FakeSource) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fire != nil
}

// Trigger simulates an edge on line. It reports false when the source is
// not armed, which is what real hardware looks like before the request.
func (f *FakeSource) Trigger(line int) bool {
	f.mu.Lock()
	fire := f.fire
	f.mu.Unlock()
	if fire == nil {
		return false
	}
	fire(line)
	return true
}
