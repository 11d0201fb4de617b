// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/internal/metrics"
	"github.com/nodekit-os/kernel/message"
)

// Network is the outward hop for envelopes whose target is not on the
// local node. Wiring this to a real transport is out of scope (spec.md §1
// names networking an external collaborator); Router only needs somewhere
// to hand off foreign-target envelopes.
type Network interface {
	SendForeign(ctx context.Context, env message.Envelope)
}

// Router is the main dispatch loop (§4.5): it owns the process table and
// the oracle handle, validates and routes every envelope, and implements
// process.Outbox so process.Instance can hand it outgoing sends directly.
type Router struct {
	local  id.NodeId
	oracle *capability.Oracle
	signer *capability.Signer
	net    Network
	log    log.Logger
	met    *metrics.Dispatch

	table   *table
	recvSeq atomic.Uint64
}

// NewRouter constructs a Router bound to the given node identity, oracle,
// and (optional) network hop.
func NewRouter(local id.NodeId, oracle *capability.Oracle, signer *capability.Signer, net Network, logger log.Logger, met *metrics.Dispatch) *Router {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	if met == nil {
		met = metrics.NewDispatch(nil)
	}
	return &Router{
		local:  local,
		oracle: oracle,
		signer: signer,
		net:    net,
		log:    logger.With("component", "dispatch"),
		met:    met,
		table:  newTable(),
	}
}

// Deliver is process.Outbox: every send a process instance makes arrives
// here, indistinguishable from an envelope arriving from the network.
func (r *Router) Deliver(ctx context.Context, env message.Envelope) {
	seq := r.recvSeq.Add(1)
	r.log.Trace("received envelope", "seq", seq, "id", env.Id, "source", env.Source.String(), "target", env.Target.String())
	r.met.EnvelopesTotal.Inc()

	foreign := env.Source.Node != r.local

	switch m := env.Message.(type) {
	case message.Request:
		if foreign {
			m.Capabilities = r.pruneForgedCaps(m.Capabilities)
			env.Message = m
		}
		if !r.admitRequest(ctx, env, m) {
			return
		}
		r.grantAttachedCaps(ctx, env.Target.Process, m.Capabilities)
		r.forward(ctx, env)

	case message.Response:
		if foreign {
			m.Capabilities = r.pruneForgedCaps(m.Capabilities)
			env.Message = m
		}
		r.grantAttachedCaps(ctx, env.Target.Process, m.Capabilities)
		r.forward(ctx, env)
	}
}

// pruneForgedCaps drops every capability claiming a local-node issuer whose
// signature does not verify under the local key (§3 invariant 4, §8
// property 3, scenario S5). Genuinely foreign-issued caps are passed
// through unverified — this node has no key to check them against.
func (r *Router) pruneForgedCaps(caps []capability.Signed) []capability.Signed {
	if r.signer == nil || len(caps) == 0 {
		return caps
	}
	out := make([]capability.Signed, 0, len(caps))
	for _, sc := range caps {
		if sc.Cap.Issuer.Node == r.local && !r.signer.VerifyLocal(sc.Cap, sc.Sig) {
			r.log.Warn("dropping forged capability", "issuer", sc.Cap.Issuer.String())
			r.met.ForgedCapsDropped.Inc()
			continue
		}
		out = append(out, sc)
	}
	return out
}

// grantAttachedCaps installs every capability a delivered message carries
// into the target's ledger entry, completing the transfer the sending
// process initiated by attaching them (§3: capabilities travel with
// envelopes; FilterCaps at the sender only lets through what it already
// held).
func (r *Router) grantAttachedCaps(ctx context.Context, target id.ProcessId, caps []capability.Signed) {
	for _, sc := range caps {
		if err := r.oracle.Add(ctx, target, sc.Cap, sc.Sig); err != nil {
			r.log.Warn("failed to grant attached capability", "target", target.String(), "error", err)
			return
		}
	}
}

// admitRequest implements the send-capability check (§4.5 step 2). On
// denial it synthesizes a Denied SendError back to a local source and
// returns false so the caller drops the original envelope.
func (r *Router) admitRequest(ctx context.Context, env message.Envelope, req message.Request) bool {
	kernel := id.Address{Node: r.local, Process: id.KernelProcessId}
	if env.Source.Equal(env.Target) || env.Source.Equal(kernel) {
		return true
	}
	if e, ok := r.table.get(env.Target.Process); ok && e.rec.Public {
		return true
	}
	has, err := r.oracle.Has(ctx, env.Source.Process, capability.Capability{Issuer: env.Target, Params: capability.MessagingParams})
	if err != nil {
		r.log.Warn("capability check failed", "error", err)
		r.sendError(ctx, env, message.Denied)
		return false
	}
	if !has {
		r.met.RequestsDenied.Inc()
		r.sendError(ctx, env, message.Denied)
		return false
	}
	return true
}

// forward delivers env to its target's local inbox, or hands it to the
// network subsystem if the target is not on this node (§4.5 step 3-4).
func (r *Router) forward(ctx context.Context, env message.Envelope) {
	if env.Target.Node != r.local {
		if r.net == nil {
			r.sendError(ctx, env, message.Offline)
			return
		}
		r.net.SendForeign(ctx, env)
		return
	}
	e, ok := r.table.get(env.Target.Process)
	if !ok {
		r.sendError(ctx, env, message.Offline)
		return
	}
	e.inst.Push(message.NewEnvelopeEntry(&env))
	r.met.InboxDepth.WithLabelValues(env.Target.Process.String()).Set(float64(e.inst.InboxLen()))
}

// sendError synthesizes a SendError back into the source's own inbox, if
// the source is a local process (§7). A foreign source simply never sees
// the failure at this hop — it is the network subsystem's responsibility
// to surface transport failures to remote nodes, which is out of scope.
func (r *Router) sendError(ctx context.Context, env message.Envelope, kind message.SendErrorKind) {
	if env.Source.Node != r.local {
		return
	}
	e, ok := r.table.get(env.Source.Process)
	if !ok {
		return
	}
	e.inst.Push(message.NewErrorEntry(&message.SendError{Id: env.Id, Target: env.Target, Kind: kind, Message: env.Message}))
}
