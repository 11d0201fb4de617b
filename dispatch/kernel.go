// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatch

import (
	"context"
	"fmt"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/message"
	"github.com/nodekit-os/kernel/process"
	"github.com/nodekit-os/kernel/record"
)

// Kernel commands bypass the ordinary send-capability check (§4.5): they
// mutate the process table and call the oracle directly, and are only ever
// invoked by the runtime itself, never routed as source-addressable
// envelopes.

// InitializeProcess creates a new instance for pid, registers it in the
// process table, and installs rec.Capabilities into its oracle ledger
// entry. The instance starts in process.PreBoot; RunProcess admits it.
func (r *Router) InitializeProcess(ctx context.Context, pid id.ProcessId, rec record.ProcessRecord, logger log.Logger) (*process.Instance, error) {
	self := id.Address{Node: r.local, Process: pid}
	inst := process.New(self, r.oracle, r, logger)
	r.table.put(pid, entry{inst: inst, rec: rec})
	for _, c := range rec.Capabilities {
		if err := r.oracle.Add(ctx, pid, c, [64]byte{}); err != nil {
			return nil, fmt.Errorf("dispatch: initialize %s: %w", pid, err)
		}
	}
	return inst, nil
}

// RunProcess delivers the kernel-sourced Run signal that moves pid from
// PreBoot to Running, flushing whatever was buffered in the meantime
// (§4.4).
func (r *Router) RunProcess(pid id.ProcessId) error {
	e, ok := r.table.get(pid)
	if !ok {
		return fmt.Errorf("dispatch: run unknown process %s", pid)
	}
	kernel := id.Address{Node: r.local, Process: id.KernelProcessId}
	self := id.Address{Node: r.local, Process: pid}
	e.inst.Push(message.NewEnvelopeEntry(&message.Envelope{
		Source:  kernel,
		Target:  self,
		Message: message.Request{Body: []byte("run")},
	}))
	return nil
}

// KillProcess removes pid from the table, revokes every capability it
// held or issued, and enacts its OnExit policy. crashed distinguishes an
// error exit from a clean one — an OnExitRestart policy is only honored
// on a clean exit (§3 "Restart: only if exit was not an error").
func (r *Router) KillProcess(ctx context.Context, pid id.ProcessId, crashed bool) error {
	e, ok := r.table.get(pid)
	if !ok {
		return nil
	}
	gen := e.inst.Exit()
	r.table.delete(pid)
	// OnExit requests go out before the revoke, so the send-capability
	// check still sees the messaging capabilities pid held.
	if e.rec.OnExit.Kind == record.OnExitRequests {
		self := id.Address{Node: r.local, Process: pid}
		var seq uint64
		process.EnactExit(ctx, r, self, e.rec, func() id.MessageId {
			seq++
			return id.MessageId(gen)<<32 | id.MessageId(seq)
		})
	}
	if err := r.oracle.RevokeAll(ctx, pid); err != nil {
		return fmt.Errorf("dispatch: revoke on kill %s: %w", pid, err)
	}

	switch e.rec.OnExit.Kind {
	case record.OnExitNone:
		return nil

	case record.OnExitRestart:
		if crashed {
			return nil
		}
		if _, err := r.InitializeProcess(ctx, pid, e.rec, r.log); err != nil {
			return err
		}
		return r.RunProcess(pid)
	}
	return nil
}

// GrantCapabilities adds each of caps to on's oracle ledger entry.
func (r *Router) GrantCapabilities(ctx context.Context, on id.ProcessId, caps []capability.Capability) error {
	for _, c := range caps {
		if err := r.oracle.Add(ctx, on, c, [64]byte{}); err != nil {
			return err
		}
	}
	return nil
}

// DropCapabilities removes each of caps from on's oracle ledger entry.
func (r *Router) DropCapabilities(ctx context.Context, on id.ProcessId, caps []capability.Capability) error {
	for _, c := range caps {
		if err := r.oracle.Drop(ctx, on, c); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the live instance registered for pid, if any — used by
// services (state, VFS) that need to push synthetic entries into a
// process's inbox without going through the ordinary Deliver path.
func (r *Router) Lookup(pid id.ProcessId) (*process.Instance, bool) {
	e, ok := r.table.get(pid)
	if !ok {
		return nil, false
	}
	return e.inst, true
}
