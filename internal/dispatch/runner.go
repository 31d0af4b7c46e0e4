package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrStarted is returned when tasks or sources are added to a running Runner.
var ErrStarted = errors.New("dispatch: runner already started")

// Task is a consumer loop: Wait blocks until the task is signalled and
// consumes the signal, then Handle services it. Both run on the task's own
// goroutine, so state captured by the closures needs no locking.
type Task struct {
	Name   string
	Wait   func(ctx context.Context) error
	Handle func(ctx context.Context)
}

// FlagTask returns a Task that waits on mask in f and passes the consumed bits to handle.
func FlagTask(name string, f *Flags, mask uint32, handle func(ctx context.Context, got uint32)) Task {
	var got uint32
	return Task{
		Name: name,
		Wait: func(ctx context.Context) error {
			var err error
			got, err = f.Wait(ctx, mask)
			return err
		},
		Handle: func(ctx context.Context) { handle(ctx, got) },
	}
}

// MailboxTask returns a Task that takes values from m and passes them to handle.
func MailboxTask[T any](name string, m *Mailbox[T], handle func(ctx context.Context, v T)) Task {
	var v T
	return Task{
		Name: name,
		Wait: func(ctx context.Context) error {
			var err error
			v, err = m.Take(ctx)
			return err
		},
		Handle: func(ctx context.Context) { handle(ctx, v) },
	}
}

type binding struct {
	src  Source
	fire func(line int)
}

// Runner owns the startup order: every task is running and waiting before
// any source is armed, so no signal can fire without a consumer.
type Runner struct {
	log *slog.Logger

	mu      sync.Mutex
	started bool
	tasks   []Task
	sources []binding
}

// NewRunner creates an empty Runner.
func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log}
}

// AddTask registers a task.
func (r *Runner) AddTask(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrStarted
	}
	r.tasks = append(r.tasks, t)
	return nil
}

// AddSource registers a source and the callback it fires. Sources are armed
// in registration order.
func (r *Runner) AddSource(s Source, fire func(line int)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrStarted
	}
	r.sources = append(r.sources, binding{src: s, fire: fire})
	return nil
}

// Run starts the tasks, arms the sources once every task is waiting, and
// blocks until ctx is cancelled. Sources are disarmed before Run returns.
// A Runner can only be run once.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrStarted
	}
	r.started = true
	tasks := append([]Task(nil), r.tasks...)
	sources := append([]binding(nil), r.sources...)
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var ready sync.WaitGroup
	ready.Add(len(tasks))
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			return r.loop(gctx, t, ready.Done)
		})
	}
	ready.Wait()
	r.log.Debug("dispatch: tasks ready", "tasks", len(tasks))

	var armErr error
	armed := sources[:0:0]
	for _, b := range sources {
		if err := b.src.Arm(b.fire); err != nil {
			armErr = fmt.Errorf("arm %s: %w", b.src.Name(), err)
			break
		}
		armed = append(armed, b)
		r.log.Info("dispatch: source armed", "source", b.src.Name())
	}

	if armErr == nil {
		<-gctx.Done()
	}

	for i := len(armed) - 1; i >= 0; i-- {
		if err := armed[i].src.Disarm(); err != nil {
			r.log.Warn("dispatch: disarm failed", "source", armed[i].src.Name(), "err", err)
		}
	}

	cancel()
	err := g.Wait()
	if armErr != nil {
		return armErr
	}
	return err
}

// loop reports ready before its first Wait. Flags and mailboxes latch, so a
// source firing in between is still observed by that Wait.
func (r *Runner) loop(ctx context.Context, t Task, ready func()) error {
	ready()
	for {
		if err := t.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("task %s: %w", t.Name, err)
		}
		t.Handle(ctx)
	}
}
