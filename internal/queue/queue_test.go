package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotMessage(t *testing.T) {
	t.Parallel()

	msg := NewSnapshotMessage(42)
	assert.Equal(t, TypeSnapshot, msg.Type)
	assert.EqualValues(t, 42, msg.RecordID)
	assert.NotEmpty(t, msg.ID)
	assert.NotEqual(t, msg.ID, NewSnapshotMessage(42).ID)
}

func TestInMemoryPublishConsume(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	messages, err := q.Consume(ctx)
	require.NoError(t, err)

	sent := NewSnapshotMessage(7)
	require.NoError(t, q.Publish(ctx, sent))

	select {
	case got := <-messages:
		assert.Equal(t, sent, got)
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestInMemoryPublishDropsWhenFull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewInMemory(2)

	require.NoError(t, q.Publish(ctx, NewSnapshotMessage(1)))
	require.NoError(t, q.Publish(ctx, NewSnapshotMessage(2)))

	// Nobody is consuming; the next publish must return immediately with a
	// drop instead of stalling the scan handler.
	done := make(chan error, 1)
	go func() { done <- q.Publish(ctx, NewSnapshotMessage(3)) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrFull)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("publish blocked on a full queue")
	}

	// Draining one slot makes room again.
	messages, err := q.Consume(ctx)
	require.NoError(t, err)
	<-messages
	assert.Eventually(t, func() bool {
		return q.Publish(ctx, NewSnapshotMessage(4)) == nil
	}, time.Second, 10*time.Millisecond)
}
