package dispatch

import (
	"context"
	"sync/atomic"
)

// Mailbox is a single-slot mailbox with overwrite-on-full semantics.
// Posting while a value is still waiting replaces it.
type Mailbox[T any] struct {
	slot        atomic.Pointer[T]
	wake        chan struct{}
	overwritten atomic.Uint64
}

// NewMailbox returns an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{wake: make(chan struct{}, 1)}
}

// Post stores v, replacing any unconsumed value. It never blocks.
func (m *Mailbox[T]) Post(v T) {
	if old := m.slot.Swap(&v); old != nil {
		m.overwritten.Add(1)
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Take blocks until a value is available and consumes it.
func (m *Mailbox[T]) Take(ctx context.Context) (T, error) {
	for {
		if p := m.slot.Swap(nil); p != nil {
			return *p, nil
		}
		select {
		case <-m.wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Overwritten returns how many posted values were replaced before being taken.
func (m *Mailbox[T]) Overwritten() uint64 {
	return m.overwritten.Load()
}
