package dispatch

import (
	"errors"
	"sync"
	"time"
)

// Source is an interrupt source. Once armed it calls fire from its own
// goroutine each time it triggers; line identifies the input that fired
// where a source has more than one.
type Source interface {
	Name() string
	Arm(fire func(line int)) error
	Disarm() error
}

// TickSource fires at a fixed interval, like a hardware timer update interrupt.
type TickSource struct {
	name     string
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickSource returns a timer source firing every interval.
func NewTickSource(name string, interval time.Duration) *TickSource {
	return &TickSource{name: name, interval: interval}
}

// Name returns the source name.
func (s *TickSource) Name() string { return s.name }

// Arm starts the timer.
func (s *TickSource) Arm(fire func(line int)) error {
	if s.interval <= 0 {
		return errors.New("tick source: interval must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errors.New("tick source: already armed")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				fire(0)
			case <-stop:
				return
			}
		}
	}(s.stop, s.done)
	return nil
}

// Disarm stops the timer and waits for its goroutine to exit.
func (s *TickSource) Disarm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	return nil
}
