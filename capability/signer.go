// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package capability

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Signer holds the local node's Ed25519 signing keypair and signs/verifies
// capabilities issued by, or claiming to be issued by, this node.
//
// crypto/ed25519 (stdlib) is used directly rather than a pack dependency;
// see SPEC_FULL.md's DOMAIN STACK table for why no pack library exposes a
// better-suited Sign/Verify entry point.
type Signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewSigner generates a fresh Ed25519 keypair.
func NewSigner() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("capability: generate signing key: %w", err)
	}
	return &Signer{pub: pub, priv: priv}, nil
}

// NewSignerFromSeed reconstructs a Signer from a persisted 32-byte seed, so
// the node's signing identity survives restarts.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("capability: signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// Seed returns the 32-byte seed to persist so the signing identity can be
// reconstructed on restart.
func (s *Signer) Seed() []byte {
	return s.priv.Seed()
}

// PublicKey returns the node's public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}

// Sign signs cap's canonical encoding with the local key.
func (s *Signer) Sign(cap Capability) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(s.priv, cap.CanonicalBytes()))
	return sig
}

// VerifyLocal verifies that sig is a valid local-key signature over cap's
// canonical encoding. Used when a foreign envelope carries a capability
// claiming issuer.node == local node (§3 invariant 4, §8 property 3).
func (s *Signer) VerifyLocal(cap Capability, sig [64]byte) bool {
	return ed25519.Verify(s.pub, cap.CanonicalBytes(), sig[:])
}
