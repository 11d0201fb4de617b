// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics registers the kernel's prometheus collectors, adapted
// from the teacher's registry-per-subsystem pattern (metrics/metric.go):
// each subsystem gets its own small struct of collectors built against a
// caller-supplied prometheus.Registerer, so tests can pass a throwaway
// registry and production can share one per node.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch holds the main dispatch loop's collectors (§4.5).
type Dispatch struct {
	EnvelopesTotal    prometheus.Counter
	RequestsDenied    prometheus.Counter
	ForgedCapsDropped prometheus.Counter
	InboxDepth        *prometheus.GaugeVec
}

// NewDispatch registers Dispatch's collectors against reg. A nil reg
// yields an unregistered, fully functional set of collectors, for use in
// tests that don't care about scraping.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	d := &Dispatch{
		EnvelopesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_dispatch_envelopes_total",
			Help: "Total envelopes handled by the dispatch loop.",
		}),
		RequestsDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_dispatch_requests_denied_total",
			Help: "Requests dropped for lacking a messaging capability.",
		}),
		ForgedCapsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_dispatch_forged_caps_dropped_total",
			Help: "Capabilities dropped for failing local-issuer signature verification.",
		}),
		InboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nodekit_dispatch_inbox_depth",
			Help: "Buffered entry count in a process's inbox.",
		}, []string{"process"}),
	}
	if reg != nil {
		reg.MustRegister(d.EnvelopesTotal, d.RequestsDenied, d.ForgedCapsDropped, d.InboxDepth)
	}
	return d
}

// Oracle holds the capability oracle's collectors (§4.2).
type Oracle struct {
	Grants  prometheus.Counter
	Revokes prometheus.Counter
}

// NewOracle registers Oracle's collectors against reg.
func NewOracle(reg prometheus.Registerer) *Oracle {
	o := &Oracle{
		Grants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_oracle_grants_total",
			Help: "Capabilities added to the ledger.",
		}),
		Revokes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_oracle_revokes_total",
			Help: "Capabilities removed by RevokeAll.",
		}),
	}
	if reg != nil {
		reg.MustRegister(o.Grants, o.Revokes)
	}
	return o
}

// Vfs holds the VFS service's collectors (§4.7).
type Vfs struct {
	OpDuration *prometheus.HistogramVec
	OpsDenied  prometheus.Counter
}

// NewVfs registers Vfs's collectors against reg.
func NewVfs(reg prometheus.Registerer) *Vfs {
	v := &Vfs{
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "nodekit_vfs_op_duration_seconds",
			Help: "VFS operation latency by op kind.",
		}, []string{"op"}),
		OpsDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_vfs_ops_denied_total",
			Help: "VFS operations rejected for missing capability.",
		}),
	}
	if reg != nil {
		reg.MustRegister(v.OpDuration, v.OpsDenied)
	}
	return v
}
