// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package record defines ProcessRecord, the persistent description of a
// process (§3), shared between the dispatch loop (which holds the live
// process table) and the persistent state service (which durably stores
// it).
package record

import (
	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/message"
)

// OnExitKind selects how a terminated process's exit is enacted (§3, §4.4).
type OnExitKind int

const (
	// OnExitNone: drop the process record and its capabilities.
	OnExitNone OnExitKind = iota
	// OnExitRestart: re-initialize with the same caps, wasm handle, and
	// OnExit policy — only if the exit was not an error.
	OnExitRestart
	// OnExitRequests: emit a fixed list of requests on exit (those the
	// sender holds a messaging capability for).
	OnExitRequests
)

// PendingRequest is one (address, request, blob) triple to emit when an
// OnExitRequests policy is enacted.
type PendingRequest struct {
	Target  id.Address
	Request message.Request
	Blob    *message.Blob
}

// OnExit is the process's exit policy.
type OnExit struct {
	Kind     OnExitKind
	Requests []PendingRequest
}

// ProcessRecord is the persistent description of a process: enough to
// restart it, and to answer capability and addressing questions about it
// without consulting the live instance.
type ProcessRecord struct {
	WasmHandle   string
	OnExit       OnExit
	Capabilities []capability.Capability
	Public       bool
	WitVersion   uint32
}
