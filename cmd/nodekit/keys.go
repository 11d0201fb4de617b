// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nodekit-os/kernel/capability"
)

// loadOrCreateSigner reads the node's Ed25519 seed from <home>/signer.key,
// generating and persisting a fresh one on first boot. A stable signing
// identity across restarts is what lets VerifyLocal keep recognizing this
// node's own previously issued capabilities (§3 invariant 4).
func loadOrCreateSigner(home string) (*capability.Signer, error) {
	path := filepath.Join(home, "signer.key")
	seed, err := os.ReadFile(path)
	if err == nil {
		return capability.NewSignerFromSeed(seed)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("nodekit: read signing key: %w", err)
	}

	signer, err := capability.NewSigner()
	if err != nil {
		return nil, fmt.Errorf("nodekit: generate signing key: %w", err)
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("nodekit: create home dir: %w", err)
	}
	if err := os.WriteFile(path, signer.Seed(), 0o600); err != nil {
		return nil, fmt.Errorf("nodekit: persist signing key: %w", err)
	}
	return signer, nil
}
