// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package process

import (
	"context"
	"time"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/message"
)

// SendOpts carries the parts of a send that are not intrinsic to the
// Request/Response value itself.
type SendOpts struct {
	// Caps are the capabilities the caller wants attached; FilterCaps
	// reduces this to whatever the sending process actually holds (§4.2).
	Caps []capability.Capability
	// Blob overrides inheritance; nil means "inherit if Inherit is set".
	Blob *message.Blob
	// Context is opaque bytes the caller wants back with the eventual
	// Response or Timeout (§3).
	Context []byte
}

// predecessorRequestLocked returns the predecessor Request a new send's
// inherit=true would reuse: current_incoming if it is itself a Request, else
// nested_request if current_incoming is a Response and nested_request is set
// (§4.4 "Id assignment").
func (in *Instance) predecessorRequestLocked() (*message.Envelope, bool) {
	if in.currentIn == nil {
		return nil, false
	}
	if _, ok := in.currentIn.Message.(message.Request); ok {
		return in.currentIn, true
	}
	if _, ok := in.currentIn.Message.(message.Response); ok {
		if in.nestedReq != nil {
			if _, ok := in.nestedReq.Message.(message.Request); ok {
				return in.nestedReq, true
			}
		}
	}
	return nil, false
}

// nextRequestIdLocked implements the id-reuse rule: only when the new
// request has inherit=true and a predecessor Request exists does it reuse
// that predecessor's id, and only if that id is not already outstanding in
// contexts; otherwise a fresh random id is drawn (§4.4, §9 Open Question
// resolution).
func (in *Instance) nextRequestIdLocked(inherit bool) id.MessageId {
	if inherit {
		if pred, ok := in.predecessorRequestLocked(); ok {
			if _, exists := in.contexts[pred.Id]; !exists {
				return pred.Id
			}
		}
	}
	for {
		cand := randomMessageId()
		if _, exists := in.contexts[cand]; !exists {
			return cand
		}
	}
}

// computeRsvpLocked implements the rsvp table literally (§3 invariant 3,
// §4.4 "rsvp computation"): expects_response always wins and sets rsvp to
// this process's own address; otherwise, when inheriting from a current
// Request, rsvp is that Request's own rsvp value, not its source.
func (in *Instance) computeRsvpLocked(expectsResponse, inherit bool) *id.Address {
	if expectsResponse {
		self := in.self
		return &self
	}
	if !inherit || in.currentIn == nil {
		return nil
	}
	if _, ok := in.currentIn.Message.(message.Request); !ok {
		return nil
	}
	if in.currentIn.Rsvp == nil {
		return nil
	}
	rsvp := *in.currentIn.Rsvp
	return &rsvp
}

// SendRequest emits req to target, filtering opts.Caps down to what this
// process actually holds, inheriting rsvp/blob per req.Inherit, and
// registering a timeout if req.ExpectsResponse is set (§3, §4.3, §4.4).
func (in *Instance) SendRequest(ctx context.Context, target id.Address, req message.Request, opts SendOpts) (id.MessageId, error) {
	signed, err := in.oracle.FilterCaps(ctx, in.self.Process, in.self.Node, opts.Caps)
	if err != nil {
		return 0, err
	}
	req.Capabilities = signed

	in.mu.Lock()
	blob := opts.Blob
	if req.Inherit && blob == nil {
		blob = in.lastBlob
	}
	rsvp := in.computeRsvpLocked(req.ExpectsResponse != nil, req.Inherit)
	mid := in.nextRequestIdLocked(req.Inherit)

	if req.ExpectsResponse != nil {
		var predecessor *message.Envelope
		if in.currentIn != nil {
			predecessor = in.currentIn
		}
		entry := &contextEntry{ctx: ProcessContext{Predecessor: predecessor, UserContext: opts.Context}}
		d := *req.ExpectsResponse
		entry.timer = time.AfterFunc(d, func() { in.fireTimeout(mid, target, req) })
		in.contexts[mid] = entry
	}
	in.mu.Unlock()

	env := message.Envelope{Id: mid, Source: in.self, Target: target, Rsvp: rsvp, Message: req, Blob: blob}
	in.outbox.Deliver(ctx, env)
	return mid, nil
}

// fireTimeout synthesizes a Timeout send error into the process's own
// inbox if, and only if, no Response beat the timer to consuming the
// context entry (§7, §9 exactly-one-of coupling).
func (in *Instance) fireTimeout(mid id.MessageId, target id.Address, req message.Request) {
	in.mu.Lock()
	_, ok := in.contexts[mid]
	if ok {
		delete(in.contexts, mid)
	}
	in.mu.Unlock()
	if !ok {
		return
	}
	in.inbox.Push(message.NewErrorEntry(&message.SendError{Id: mid, Target: target, Kind: message.Timeout, Message: req}))
}

// responseIdTargetLocked is the make-response-id-target fallback: respond
// to current_incoming if it is a Request (honoring its rsvp); otherwise, if
// current_incoming is a Response, fall back to nested_request. With
// neither available there is nothing to respond to (§4.3, §4.4).
func (in *Instance) responseIdTargetLocked() (id.MessageId, id.Address, bool) {
	fallback := func(env *message.Envelope) (id.MessageId, id.Address, bool) {
		if env == nil {
			return 0, id.Address{}, false
		}
		target := env.Source
		if env.Rsvp != nil {
			target = *env.Rsvp
		}
		return env.Id, target, true
	}

	if in.currentIn == nil {
		return 0, id.Address{}, false
	}
	switch in.currentIn.Message.(type) {
	case message.Request:
		return fallback(in.currentIn)
	case message.Response:
		return fallback(in.nestedReq)
	default:
		return 0, id.Address{}, false
	}
}

// SendResponse answers whatever current_incoming (or, failing that,
// nested_request) designates as the addressee, per responseIdTargetLocked.
// If neither is available the response is dropped with a logged warning,
// matching the original kernel's "need non-None incoming message" behavior.
func (in *Instance) SendResponse(ctx context.Context, resp message.Response, opts SendOpts) error {
	in.mu.Lock()
	mid, target, ok := in.responseIdTargetLocked()
	if !ok {
		in.mu.Unlock()
		in.log.Warn("dropping response: no incoming message to respond to")
		return nil
	}
	blob := opts.Blob
	if resp.Inherit && blob == nil {
		blob = in.lastBlob
	}
	in.mu.Unlock()

	signed, err := in.oracle.FilterCaps(ctx, in.self.Process, in.self.Node, opts.Caps)
	if err != nil {
		return err
	}
	resp.Capabilities = signed

	env := message.Envelope{Id: mid, Source: in.self, Target: target, Message: resp, Blob: blob}
	in.outbox.Deliver(ctx, env)
	return nil
}

// AwaitResponse blocks for the entry matching mid — typically one
// registered by an earlier SendRequest call — pulling it out of the inbox
// out of order while preserving every other entry's relative order (§4.3).
func (in *Instance) AwaitResponse(ctx context.Context, mid id.MessageId) (message.InboxEntry, error) {
	entry, err := in.inbox.Await(ctx, mid)
	if err != nil {
		return message.InboxEntry{}, err
	}
	in.absorb(entry)
	return entry, nil
}

// SendAndAwaitResponse sends req and blocks for its matching Response (or
// Timeout/Offline send error), pulling it out of the inbox out of order via
// Await while leaving every other buffered entry's relative order intact
// (§4.3).
func (in *Instance) SendAndAwaitResponse(ctx context.Context, target id.Address, req message.Request, opts SendOpts) (message.InboxEntry, error) {
	mid, err := in.SendRequest(ctx, target, req, opts)
	if err != nil {
		return message.InboxEntry{}, err
	}
	entry, err := in.inbox.Await(ctx, mid)
	if err != nil {
		return message.InboxEntry{}, err
	}
	in.absorb(entry)
	return entry, nil
}
