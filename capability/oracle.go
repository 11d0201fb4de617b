// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package capability

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/internal/metrics"
	"github.com/nodekit-os/kernel/kernelerr"
)

// heldCap is a Capability as recorded in a subject's ledger entry, together
// with the signature to reattach when it is re-filtered out to another
// process (own-issued caps are re-signed on the fly instead).
type heldCap struct {
	cap Capability
	sig [64]byte
}

type opKind int

const (
	opAdd opKind = iota
	opDrop
	opHas
	opGetAll
	opFilterCaps
	opRevokeAll
	opSnapshot
	opRestore
)

type command struct {
	kind    opKind
	on      id.ProcessId
	cap     Capability
	sig     [64]byte
	caps    []Capability
	process id.ProcessId
	entries []Entry
	reply   chan reply
}

type reply struct {
	has    bool
	caps   []Capability
	signed []Signed
	list   []Entry
	err    error
}

// Entry is one exported (subject, capability, signature) row, used to
// persist and restore the oracle's ledger (§3 invariant 5).
type Entry struct {
	Subject id.ProcessId
	Cap     Capability
	Sig     [64]byte
}

// Oracle is the authoritative ledger of which process holds which
// capabilities. It runs as a single task owning all mutable state; every
// other caller only ever holds a handle that serializes requests onto its
// command channel, per §5's "no shared mutable memory between processes"
// and §9's "global mutable state is avoided" design note.
type Oracle struct {
	signer *Signer
	log    log.Logger
	met    *metrics.Oracle

	cmds   chan command
	closed atomic.Bool
}

// NewOracle starts an oracle task bound to the given local signing key.
// Its grant/revoke counters are unregistered; use NewOracleWithMetrics to
// have them scraped.
func NewOracle(signer *Signer, logger log.Logger) *Oracle {
	return newOracle(signer, logger, metrics.NewOracle(nil))
}

// NewOracleWithMetrics is NewOracle, registering the oracle's grant/revoke
// counters against reg.
func NewOracleWithMetrics(signer *Signer, logger log.Logger, reg prometheus.Registerer) *Oracle {
	return newOracle(signer, logger, metrics.NewOracle(reg))
}

func newOracle(signer *Signer, logger log.Logger, met *metrics.Oracle) *Oracle {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	o := &Oracle{
		signer: signer,
		log:    logger.With("component", "oracle"),
		met:    met,
		cmds:   make(chan command, 64),
	}
	go o.run()
	return o
}

// Close stops the oracle's task. Subsequent calls observe
// kernelerr.Fatal, mirroring "if the oracle channel is closed, processes
// treat that as a fatal kernel error" (§4.2).
func (o *Oracle) Close() {
	if o.closed.CompareAndSwap(false, true) {
		close(o.cmds)
	}
}

func (o *Oracle) send(ctx context.Context, c command) (reply, error) {
	if o.closed.Load() {
		return reply{}, kernelerr.NewFatal("oracle", "channel closed")
	}
	c.reply = make(chan reply, 1)
	select {
	case o.cmds <- c:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (o *Oracle) run() {
	ledger := make(map[id.ProcessId]map[string]heldCap)

	ledgerFor := func(on id.ProcessId) map[string]heldCap {
		m, ok := ledger[on]
		if !ok {
			m = make(map[string]heldCap)
			ledger[on] = m
		}
		return m
	}

	for c := range o.cmds {
		switch c.kind {
		case opAdd:
			ledgerFor(c.on)[c.cap.key()] = heldCap{cap: c.cap, sig: c.sig}
			o.met.Grants.Inc()
			c.reply <- reply{}

		case opDrop:
			delete(ledgerFor(c.on), c.cap.key())
			c.reply <- reply{}

		case opHas:
			_, ok := ledgerFor(c.on)[c.cap.key()]
			c.reply <- reply{has: ok}

		case opGetAll:
			m := ledgerFor(c.on)
			out := make([]Capability, 0, len(m))
			for _, h := range m {
				out = append(out, h.cap)
			}
			c.reply <- reply{caps: out}

		case opFilterCaps:
			m := ledgerFor(c.on)
			out := make([]Signed, 0, len(c.caps))
			for _, cap := range c.caps {
				h, ok := m[cap.key()]
				if !ok {
					continue
				}
				out = append(out, Signed{Cap: cap, Sig: h.sig})
			}
			c.reply <- reply{signed: out}

		case opRevokeAll:
			for subject, m := range ledger {
				if subject.Equal(c.process) {
					delete(ledger, subject)
					o.met.Revokes.Add(float64(len(m)))
					continue
				}
				for key, h := range m {
					if h.cap.Issuer.Process.Equal(c.process) {
						delete(m, key)
						o.met.Revokes.Inc()
					}
				}
			}
			c.reply <- reply{}

		case opSnapshot:
			var out []Entry
			for subject, m := range ledger {
				for _, h := range m {
					out = append(out, Entry{Subject: subject, Cap: h.cap, Sig: h.sig})
				}
			}
			c.reply <- reply{list: out}

		case opRestore:
			ledger = make(map[id.ProcessId]map[string]heldCap)
			for _, e := range c.entries {
				ledgerFor(e.Subject)[e.Cap.key()] = heldCap{cap: e.Cap, sig: e.Sig}
			}
			c.reply <- reply{}
		}
	}
}

// Add inserts cap into on's ledger entry. Idempotent. sig is the signature
// to retain for re-filtering if cap's issuer is foreign; for locally
// issued caps (issuer == this node) pass a zero signature, it will be
// recomputed on demand by FilterCaps.
func (o *Oracle) Add(ctx context.Context, on id.ProcessId, cap Capability, sig [64]byte) error {
	_, err := o.send(ctx, command{kind: opAdd, on: on, cap: cap, sig: sig})
	return err
}

// Drop removes cap from on's ledger entry. Idempotent.
func (o *Oracle) Drop(ctx context.Context, on id.ProcessId, cap Capability) error {
	_, err := o.send(ctx, command{kind: opDrop, on: on, cap: cap})
	return err
}

// Has reports whether on holds exactly cap.
func (o *Oracle) Has(ctx context.Context, on id.ProcessId, cap Capability) (bool, error) {
	r, err := o.send(ctx, command{kind: opHas, on: on, cap: cap})
	return r.has, err
}

// GetAll returns every capability on currently holds.
func (o *Oracle) GetAll(ctx context.Context, on id.ProcessId) ([]Capability, error) {
	r, err := o.send(ctx, command{kind: opGetAll, on: on})
	return r.caps, err
}

// FilterCaps returns, for each input cap that on holds, a Signed pair: the
// cap plus a signature. Locally-issued caps are signed fresh with this
// node's key; foreign-issued caps carry the signature recorded when they
// were admitted (§4.2).
func (o *Oracle) FilterCaps(ctx context.Context, on id.ProcessId, local id.NodeId, caps []Capability) ([]Signed, error) {
	r, err := o.send(ctx, command{kind: opFilterCaps, on: on, caps: caps})
	if err != nil {
		return nil, err
	}
	if o.signer == nil {
		return r.signed, nil
	}
	out := make([]Signed, len(r.signed))
	for i, s := range r.signed {
		if s.Cap.Issuer.Node == local {
			s.Sig = o.signer.Sign(s.Cap)
		}
		out[i] = s
	}
	return out, nil
}

// RevokeAll removes every capability where process is the subject or the
// issuer — called when a process is killed.
func (o *Oracle) RevokeAll(ctx context.Context, process id.ProcessId) error {
	_, err := o.send(ctx, command{kind: opRevokeAll, process: process})
	return err
}

// Snapshot exports the entire ledger, for persistence by the state
// service (§3 invariant 5).
func (o *Oracle) Snapshot(ctx context.Context) ([]Entry, error) {
	r, err := o.send(ctx, command{kind: opSnapshot})
	return r.list, err
}

// Restore replaces the ledger wholesale from a prior Snapshot, used on
// kernel boot to bring the oracle back to its last-persisted state.
func (o *Oracle) Restore(ctx context.Context, entries []Entry) error {
	_, err := o.send(ctx, command{kind: opRestore, entries: entries})
	return err
}

// Signer exposes the node's signing identity so the dispatch loop can
// verify foreign caps claiming local issuance (§3 invariant 4) without
// routing every incoming envelope through the oracle's command channel.
func (o *Oracle) Signer() *Signer {
	return o.signer
}
