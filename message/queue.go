// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"context"
	"sync"

	"github.com/nodekit-os/kernel/id"
)

// Queue is a process's inbox: a FIFO of delivered envelopes and
// locally-synthesized send errors (§4.3). It supports two receive modes:
// Next (strict FIFO pop) and Await (pull a specific id out of order,
// leaving the relative order of everything else untouched).
type Queue struct {
	mu     sync.Mutex
	buf    []InboxEntry
	signal chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{})}
}

// Push appends entry to the tail of the queue and wakes any waiter.
func (q *Queue) Push(entry InboxEntry) {
	q.mu.Lock()
	q.buf = append(q.buf, entry)
	old := q.signal
	q.signal = make(chan struct{})
	q.mu.Unlock()
	close(old)
}

// Len reports the number of buffered entries, for inspection/testing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Next pops the head entry, blocking until one is available or ctx is done.
func (q *Queue) Next(ctx context.Context) (InboxEntry, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			e := q.buf[0]
			q.buf = q.buf[1:]
			q.mu.Unlock()
			return e, nil
		}
		sig := q.signal
		q.mu.Unlock()

		select {
		case <-sig:
		case <-ctx.Done():
			return InboxEntry{}, ctx.Err()
		}
	}
}

// Await scans the queue for an entry whose id matches want, removing and
// returning it as soon as it is present — even if entries ahead of it
// arrived earlier. Entries that do not match are left in place, preserving
// their relative FIFO order for later Next/Await calls (§4.3).
func (q *Queue) Await(ctx context.Context, want id.MessageId) (InboxEntry, error) {
	for {
		q.mu.Lock()
		for i, e := range q.buf {
			if e.ID() == want {
				q.buf = append(q.buf[:i], q.buf[i+1:]...)
				q.mu.Unlock()
				return e, nil
			}
		}
		sig := q.signal
		q.mu.Unlock()

		select {
		case <-sig:
		case <-ctx.Done():
			return InboxEntry{}, ctx.Err()
		}
	}
}
