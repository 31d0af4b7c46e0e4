package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxOverwritesOnFull(t *testing.T) {
	m := NewMailbox[int]()
	m.Post(1)
	m.Post(2)

	v, err := m.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, uint64(1), m.Overwritten())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailboxWakesTaker(t *testing.T) {
	m := NewMailbox[string]()
	got := make(chan string, 1)
	go func() {
		v, _ := m.Take(context.Background())
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	m.Post("row 3")

	select {
	case v := <-got:
		assert.Equal(t, "row 3", v)
	case <-time.After(time.Second):
		t.Fatal("taker not woken")
	}
	assert.Zero(t, m.Overwritten())
}

func TestMailboxCancelReturnsZero(t *testing.T) {
	m := NewMailbox[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := m.Take(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v)
}
