// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodekit-os/kernel/id"
)

func entry(mid id.MessageId) InboxEntry {
	return NewEnvelopeEntry(&Envelope{Id: mid})
}

func TestQueueNextIsFIFO(t *testing.T) {
	q := NewQueue()
	q.Push(entry(1))
	q.Push(entry(2))

	ctx := context.Background()
	e1, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, id.MessageId(1), e1.ID())

	e2, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, id.MessageId(2), e2.ID())
}

func TestQueueNextBlocksUntilPush(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	done := make(chan InboxEntry, 1)
	go func() {
		e, err := q.Next(ctx)
		require.NoError(t, err)
		done <- e
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(entry(7))

	select {
	case e := <-done:
		require.Equal(t, id.MessageId(7), e.ID())
	case <-time.After(time.Second):
		t.Fatal("Next never returned")
	}
}

func TestQueueAwaitPullsMatchOutOfOrder(t *testing.T) {
	q := NewQueue()
	q.Push(entry(1))
	q.Push(entry(2))
	q.Push(entry(3))

	ctx := context.Background()
	e, err := q.Await(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, id.MessageId(2), e.ID())

	// Remaining entries keep their relative order.
	e1, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, id.MessageId(1), e1.ID())
	e3, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, id.MessageId(3), e3.ID())
}

func TestQueueAwaitTimesOutOnContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Await(ctx, 42)
	require.Error(t, err)
}
