// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package process

import (
	"context"

	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/message"
	"github.com/nodekit-os/kernel/record"
)

// Exit marks the instance Exited, invalidates its generation, and returns
// the generation value that was current at the moment of exit. A caller
// enacting rec.OnExit asynchronously (e.g. restarting the process) must
// pass this generation back to Generation comparisons so a
// reinitialized instance never mistakes a stale prior incarnation's exit
// policy for its own (SPEC_FULL.md supplemented feature: exit generation
// guard).
func (in *Instance) Exit() uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.state = Exited
	gen := in.generation
	in.generation++
	for _, ce := range in.contexts {
		ce.timer.Stop()
	}
	in.contexts = make(map[id.MessageId]*contextEntry)
	return gen
}

// Generation returns the instance's current incarnation counter. It is
// bumped every time Exit is called, so a holder of an older Generation
// value knows its exit policy targets a superseded incarnation.
func (in *Instance) Generation() uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.generation
}

// EnactExit runs rec.OnExit's policy against the given outbox on behalf of
// self, the process that just exited. nextId is called once per emitted
// request to draw its MessageId (the dispatch loop owns id allocation
// across the whole node, so it is supplied rather than derived here). Only
// OnExitRequests emits anything here; OnExitNone and OnExitRestart return
// without acting, and a restart is carried out by the caller (the dispatch
// loop, which knows whether the exit was graceful) (§3, §4.4).
func EnactExit(ctx context.Context, outbox Outbox, self id.Address, rec record.ProcessRecord, nextId func() id.MessageId) {
	switch rec.OnExit.Kind {
	case record.OnExitNone, record.OnExitRestart:
		return
	case record.OnExitRequests:
		for _, pr := range rec.OnExit.Requests {
			outbox.Deliver(ctx, message.Envelope{
				Id:      nextId(),
				Source:  self,
				Target:  pr.Target,
				Message: pr.Request,
				Blob:    pr.Blob,
			})
		}
	}
}
