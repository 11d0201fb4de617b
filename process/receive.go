// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package process

import (
	"context"

	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/message"
)

// consumeContextLocked removes and returns the context entry registered
// under mid, stopping its timeout timer so it can never also fire. Exactly
// one of {matching Response, Timeout} may consume an entry (§3 invariant,
// §9).
func (in *Instance) consumeContextLocked(mid id.MessageId) (*ProcessContext, bool) {
	ce, ok := in.contexts[mid]
	if !ok {
		return nil, false
	}
	delete(in.contexts, mid)
	ce.timer.Stop()
	pc := ce.ctx
	return &pc, true
}

// Receive blocks until the next inbox entry is available, updates the
// current_incoming/nested_request/last_blob bookkeeping (§3, §4.4), and
// returns it along with the ProcessContext it completed, if any.
func (in *Instance) Receive(ctx context.Context) (message.InboxEntry, *ProcessContext, error) {
	entry, err := in.inbox.Next(ctx)
	if err != nil {
		return message.InboxEntry{}, nil, err
	}
	pc := in.absorb(entry)
	return entry, pc, nil
}

// absorb applies one inbox entry's effect on current_incoming, nested_request
// and last_blob, and returns whatever ProcessContext it consumed, if any. It
// is used by both Receive and SendAndAwaitResponse so the two paths stay in
// lockstep.
func (in *Instance) absorb(entry message.InboxEntry) *ProcessContext {
	in.mu.Lock()
	defer in.mu.Unlock()

	if entry.Err != nil {
		pc, _ := in.consumeContextLocked(entry.Err.Id)
		return pc
	}

	env := entry.Envelope
	var consumed *ProcessContext
	switch env.Message.(type) {
	case message.Response:
		if pc, ok := in.consumeContextLocked(env.Id); ok {
			consumed = pc
			in.nestedReq = pc.Predecessor
		} else {
			in.nestedReq = nil
		}
		in.lastBlob = env.Blob
		in.currentIn = env

	case message.Request:
		in.nestedReq = nil
		in.lastBlob = env.Blob
		in.currentIn = env
	}
	return consumed
}
