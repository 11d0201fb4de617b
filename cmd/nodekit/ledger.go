// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/statestore"
)

// ledgerPid is the reserved key the oracle's ledger snapshot is persisted
// under between runs — it is never a routable process, only a key into
// the state store's (pid.Hash() -> bytes) space (§3 invariant 5).
var ledgerPid = id.ProcessId{Name: "oracle-ledger", Package: "distro", Publisher: "sys"}

// saveLedger CBOR-encodes the oracle's current snapshot and persists it
// under ledgerPid, so a restart can restore every held capability without
// replaying every grant a node has ever issued.
func saveLedger(store *statestore.Store, entries []capability.Entry) error {
	b, err := cbor.Marshal(entries)
	if err != nil {
		return fmt.Errorf("nodekit: encode oracle ledger: %w", err)
	}
	return store.SetState(ledgerPid, b)
}

// loadLedger reads back what saveLedger wrote, or reports (nil, false) on
// first boot when nothing has been saved yet.
func loadLedger(store *statestore.Store) ([]capability.Entry, bool, error) {
	b, err := store.GetState(ledgerPid)
	if err == statestore.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("nodekit: read oracle ledger: %w", err)
	}
	var entries []capability.Entry
	if err := cbor.Unmarshal(b, &entries); err != nil {
		return nil, false, fmt.Errorf("nodekit: decode oracle ledger: %w", err)
	}
	return entries, true, nil
}
