// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package process implements the per-process execution loop: the boot
// gate, receive/send/await cycle, request/response correlation with
// timeouts, and blob inheritance (§3, §4.4).
package process

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/message"
)

// State is the process's lifecycle state (§3 Lifecycles, §4.4 state
// machine).
type State int32

const (
	PreBoot State = iota
	Running
	Exited
)

// Outbox is how an Instance hands an outgoing envelope to the main
// dispatch loop. Defining it as an interface here — rather than importing
// package dispatch directly — breaks the natural cyclic reference between
// the dispatch loop (which owns instances) and the instances themselves
// (§4.5 design note, §9).
type Outbox interface {
	Deliver(ctx context.Context, env message.Envelope)
}

// ProcessContext is the ephemeral per-outstanding-request bookkeeping
// entry (§3).
type ProcessContext struct {
	Predecessor *message.Envelope
	UserContext []byte
}

type contextEntry struct {
	ctx   ProcessContext
	timer *time.Timer
}

// Instance is the runtime state of one running process (§3 "ProcessInstance
// runtime state").
type Instance struct {
	self   id.Address
	oracle *capability.Oracle
	outbox Outbox
	log    log.Logger

	inbox *message.Queue

	mu           sync.Mutex
	state        State
	generation   uint64
	preBootBuf   []message.InboxEntry
	contexts     map[id.MessageId]*contextEntry
	currentIn    *message.Envelope
	nestedReq    *message.Envelope
	lastBlob     *message.Blob
}

// New creates a process instance in the PreBoot state.
func New(self id.Address, oracle *capability.Oracle, outbox Outbox, logger log.Logger) *Instance {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Instance{
		self:     self,
		oracle:   oracle,
		outbox:   outbox,
		log:      logger.With("process", self.String()),
		inbox:    message.NewQueue(),
		state:    PreBoot,
		contexts: make(map[id.MessageId]*contextEntry),
	}
}

// Self returns the process's own address.
func (in *Instance) Self() id.Address { return in.self }

// InboxLen reports the number of entries currently buffered in the
// process's inbox, for inbox-depth metrics.
func (in *Instance) InboxLen() int { return in.inbox.Len() }

// State returns the instance's current lifecycle state.
func (in *Instance) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// isRunSignal reports whether entry is the kernel-originated Request that
// moves a process from PreBoot to Running (§4.4).
func isRunSignal(entry message.InboxEntry) bool {
	if entry.Envelope == nil {
		return false
	}
	if !entry.Envelope.Source.Process.Equal(id.KernelProcessId) {
		return false
	}
	req, ok := entry.Envelope.Message.(message.Request)
	return ok && string(req.Body) == "run"
}

// Push delivers one inbox entry (called by the dispatch loop). While
// PreBoot, entries are held in a buffer until the Run signal arrives, at
// which point the buffer is replayed into the live inbox in arrival order
// (§3, §4.4).
func (in *Instance) Push(entry message.InboxEntry) {
	in.mu.Lock()
	if in.state == PreBoot {
		if isRunSignal(entry) {
			buf := in.preBootBuf
			in.preBootBuf = nil
			in.state = Running
			in.mu.Unlock()
			for _, e := range buf {
				in.inbox.Push(e)
			}
			return
		}
		in.preBootBuf = append(in.preBootBuf, entry)
		in.mu.Unlock()
		return
	}
	in.mu.Unlock()
	in.inbox.Push(entry)
}

// randomMessageId draws a uniformly random MessageId, retrying internally
// only happens at the call site (which knows the contexts map).
func randomMessageId() id.MessageId {
	return id.MessageId(rand.Uint64())
}
