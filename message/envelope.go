// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"github.com/nodekit-os/kernel/id"
)

// Envelope (KernelMessage in spec.md) is the on-wire unit routed between
// two addresses (§3).
type Envelope struct {
	Id      id.MessageId
	Source  id.Address
	Target  id.Address
	Rsvp    *id.Address
	Message Message
	Blob    *Blob
}

// SendErrorKind enumerates the ways a send can fail (§7).
type SendErrorKind int

const (
	// Offline: the target is unreachable.
	Offline SendErrorKind = iota
	// Timeout: the awaited response did not arrive in time.
	Timeout
	// Denied: the sender lacked a capability to address the target.
	Denied
)

func (k SendErrorKind) String() string {
	switch k {
	case Offline:
		return "Offline"
	case Timeout:
		return "Timeout"
	case Denied:
		return "Denied"
	default:
		return "Unknown"
	}
}

// SendError is delivered as a synthetic inbox entry when a send cannot be
// completed (§7).
type SendError struct {
	Id      id.MessageId
	Target  id.Address
	Kind    SendErrorKind
	Message Message
}

func (e *SendError) Error() string {
	return "send error: " + e.Kind.String() + " to " + e.Target.String()
}

// InboxEntry is either a delivered Envelope or a synthesized SendError —
// the "Result<Envelope, SendError>" of spec.md §3.
type InboxEntry struct {
	Envelope *Envelope
	Err      *SendError
}

// ID returns the correlation id shared by both variants.
func (e InboxEntry) ID() id.MessageId {
	if e.Envelope != nil {
		return e.Envelope.Id
	}
	return e.Err.Id
}

// NewEnvelopeEntry wraps a delivered envelope.
func NewEnvelopeEntry(env *Envelope) InboxEntry {
	return InboxEntry{Envelope: env}
}

// NewErrorEntry wraps a synthesized send error.
func NewErrorEntry(err *SendError) InboxEntry {
	return InboxEntry{Err: err}
}
