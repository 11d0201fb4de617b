// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dispatch implements the main dispatch loop (§4.5): the process
// table, send-capability enforcement, kernel commands, and foreign-origin
// capability-forgery pruning.
package dispatch

import (
	"sync"

	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/process"
	"github.com/nodekit-os/kernel/record"
)

// entry is one row of the live process table: the running instance plus
// the persistent record that describes it.
type entry struct {
	inst *process.Instance
	rec  record.ProcessRecord
}

// table is the ProcessId → inbox mapping the dispatch loop owns, guarded
// by a single mutex (§4.5, §5 "Oracle ledger... no external locking" note
// applies equally here: this is the only lock in the router).
type table struct {
	mu sync.RWMutex
	m  map[id.ProcessId]entry
}

func newTable() *table {
	return &table{m: make(map[id.ProcessId]entry)}
}

func (t *table) get(pid id.ProcessId) (entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.m[pid]
	return e, ok
}

func (t *table) put(pid id.ProcessId, e entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[pid] = e
}

func (t *table) delete(pid id.ProcessId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, pid)
}

// ids returns a snapshot of every registered ProcessId.
func (t *table) ids() []id.ProcessId {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]id.ProcessId, 0, len(t.m))
	for pid := range t.m {
		out = append(out, pid)
	}
	return out
}
