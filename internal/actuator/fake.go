package actuator

import "sync"

// FakeOutput records every Set call.
type FakeOutput struct {
	mu     sync.Mutex
	States []bool

	// SetError, if set, is returned by Set after recording.
	SetError error
}

// Set records the state.
func (f *FakeOutput) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.States = append(f.States, on)
	return f.SetError
}

// Last returns the most recent state and whether any was recorded.
func (f *FakeOutput) Last() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.States) == 0 {
		return false, false
	}
	return f.States[len(f.States)-1], true
}

// FakeMotor records every position it is sent.
type FakeMotor struct {
	mu        sync.Mutex
	Positions []int
}

// SetPosition records pos.
func (f *FakeMotor) SetPosition(pos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Positions = append(f.Positions, pos)
	return nil
}

// Last returns the most recent position and whether any was recorded.
func (f *FakeMotor) Last() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Positions) == 0 {
		return 0, false
	}
	return f.Positions[len(f.Positions)-1], true
}
