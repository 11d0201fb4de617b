// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package message implements the envelope and message types carried
// between processes (§3, §4.3), and the per-process inbox queue.
package message

import (
	"time"

	"github.com/nodekit-os/kernel/capability"
)

// Message is the sum type carried by an Envelope: either a Request or a
// Response.
type Message interface {
	isMessage()
	// GetInherit reports the message's inherit flag, needed by both send
	// paths regardless of which variant is in play.
	GetInherit() bool
	// GetCapabilities returns the attached capability list.
	GetCapabilities() []capability.Signed
}

// Request is a message that may solicit a Response.
type Request struct {
	Inherit bool
	// ExpectsResponse is the Option<seconds> from spec.md §3. Nil means
	// None.
	ExpectsResponse *time.Duration
	Body            []byte
	// Metadata is Option<bytes>; nil means None.
	Metadata     []byte
	Capabilities []capability.Signed
}

func (Request) isMessage() {}

func (r Request) GetInherit() bool                        { return r.Inherit }
func (r Request) GetCapabilities() []capability.Signed     { return r.Capabilities }

// Response answers a prior Request.
type Response struct {
	Inherit      bool
	Body         []byte
	Metadata     []byte
	Capabilities []capability.Signed
}

func (Response) isMessage() {}

func (r Response) GetInherit() bool                    { return r.Inherit }
func (r Response) GetCapabilities() []capability.Signed { return r.Capabilities }

// Blob is lazily-loaded bytes attached to an envelope, independent of Body.
type Blob struct {
	Mime  *string
	Bytes []byte
}
