// Package dispatch connects interrupt sources to the tasks that service them.
//
// A source callback ("ISR") only ever sets a flag or posts to a mailbox; it
// never blocks and never does I/O. The task that owns the flag blocks until
// it is set, consumes it, then does the work. A source that fires again
// before its task consumed the previous signal is coalesced, not queued.
package dispatch

import (
	"context"
	"sync/atomic"
)

// Flags is a set of pending signal bits owned by one consuming task.
// Set may be called from any goroutine; Wait must only be called by the owner.
type Flags struct {
	bits      atomic.Uint32
	wake      chan struct{}
	coalesced atomic.Uint64
}

// NewFlags returns an empty flag set.
func NewFlags() *Flags {
	return &Flags{wake: make(chan struct{}, 1)}
}

// Set raises the bits in mask and wakes the owner. It never blocks.
func (f *Flags) Set(mask uint32) {
	if prev := f.bits.Or(mask); prev&mask != 0 {
		f.coalesced.Add(1)
	}
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until any bit in mask is pending, clears those bits and
// returns them. It waits forever unless ctx is cancelled.
func (f *Flags) Wait(ctx context.Context, mask uint32) (uint32, error) {
	for {
		if got := f.bits.And(^mask) & mask; got != 0 {
			return got, nil
		}
		select {
		case <-f.wake:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Pending returns the bits currently set without consuming them.
func (f *Flags) Pending() uint32 {
	return f.bits.Load()
}

// Coalesced returns how many sets found their bit already pending.
func (f *Flags) Coalesced() uint64 {
	return f.coalesced.Load()
}
