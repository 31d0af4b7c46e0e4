package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource fires immediately on Arm, like an interrupt that is already
// pending when it is enabled.
type fakeSource struct {
	name   string
	fireOn []int
	armErr error
	log    *[]string
	mu     *sync.Mutex
	armed  atomic.Bool
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Arm(fire func(line int)) error {
	s.record("arm " + s.name)
	if s.armErr != nil {
		return s.armErr
	}
	s.armed.Store(true)
	for _, l := range s.fireOn {
		fire(l)
	}
	return nil
}

func (s *fakeSource) Disarm() error {
	s.record("disarm " + s.name)
	s.armed.Store(false)
	return nil
}

func (s *fakeSource) record(ev string) {
	s.mu.Lock()
	*s.log = append(*s.log, ev)
	s.mu.Unlock()
}

func TestRunnerEarlySignalIsNotLost(t *testing.T) {
	var mu sync.Mutex
	var events []string

	f := NewFlags()
	handled := make(chan uint32, 4)
	r := NewRunner(nil)
	require.NoError(t, r.AddTask(FlagTask("temperature", f, bitTemp, func(_ context.Context, got uint32) {
		handled <- got
	})))
	src := &fakeSource{name: "timer", fireOn: []int{0}, log: &events, mu: &mu}
	require.NoError(t, r.AddSource(src, func(int) { f.Set(bitTemp) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case got := <-handled:
		assert.Equal(t, uint32(bitTemp), got)
	case <-time.After(time.Second):
		t.Fatal("signal fired at arm time was lost")
	}

	cancel()
	require.NoError(t, <-done)
	assert.False(t, src.armed.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"arm timer", "disarm timer"}, events)
}

func TestRunnerMailboxTask(t *testing.T) {
	var mu sync.Mutex
	var events []string

	m := NewMailbox[int]()
	got := make(chan int, 1)
	r := NewRunner(nil)
	require.NoError(t, r.AddTask(MailboxTask("keypad", m, func(_ context.Context, row int) {
		got <- row
	})))
	require.NoError(t, r.AddSource(&fakeSource{name: "rows", fireOn: []int{2}, log: &events, mu: &mu}, m.Post))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	select {
	case row := <-got:
		assert.Equal(t, 2, row)
	case <-time.After(time.Second):
		t.Fatal("mailbox value not delivered")
	}
}

func TestRunnerArmOrderAndReverseDisarm(t *testing.T) {
	var mu sync.Mutex
	var events []string

	r := NewRunner(nil)
	f := NewFlags()
	require.NoError(t, r.AddTask(FlagTask("t", f, 1, func(context.Context, uint32) {})))
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, r.AddSource(&fakeSource{name: n, log: &events, mu: &mu}, func(int) {}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 3
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"arm a", "arm b", "arm c", "disarm c", "disarm b", "disarm a"}, events)
}

func TestRunnerArmErrorDisarmsArmedSources(t *testing.T) {
	var mu sync.Mutex
	var events []string

	r := NewRunner(nil)
	require.NoError(t, r.AddTask(FlagTask("t", NewFlags(), 1, func(context.Context, uint32) {})))
	require.NoError(t, r.AddSource(&fakeSource{name: "a", log: &events, mu: &mu}, func(int) {}))
	require.NoError(t, r.AddSource(&fakeSource{name: "b", armErr: errors.New("busy"), log: &events, mu: &mu}, func(int) {}))
	require.NoError(t, r.AddSource(&fakeSource{name: "c", log: &events, mu: &mu}, func(int) {}))

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arm b")
	assert.Equal(t, []string{"arm a", "arm b", "disarm a"}, events)
}

func TestRunnerRejectsChangesAfterStart(t *testing.T) {
	r := NewRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	assert.ErrorIs(t, r.AddTask(Task{}), ErrStarted)
	assert.ErrorIs(t, r.AddSource(NewTickSource("x", time.Second), func(int) {}), ErrStarted)
	assert.ErrorIs(t, r.Run(context.Background()), ErrStarted)
}

func TestTickSourceFires(t *testing.T) {
	s := NewTickSource("timer", 2*time.Millisecond)
	var n atomic.Int32
	require.NoError(t, s.Arm(func(int) { n.Add(1) }))
	assert.Error(t, s.Arm(func(int) {}))

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, s.Disarm())

	stopped := n.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stopped, n.Load())
	assert.NoError(t, s.Disarm())
}

func TestTickSourceRejectsZeroInterval(t *testing.T) {
	assert.Error(t, NewTickSource("timer", 0).Arm(func(int) {}))
}
