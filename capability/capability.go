// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package capability implements the capability oracle: the authoritative
// ledger of which process may do what, and the signing/verification of
// capabilities that cross node boundaries (§4.2).
package capability

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/nodekit-os/kernel/id"
)

// Capability is an unforgeable authorization token: the issuer's address
// plus an opaque params byte string interpreted by the issuer's domain
// (messaging, network, or a VFS drive grant; see spec.md §6).
type Capability struct {
	Issuer id.Address
	Params []byte
}

// Equal reports byte-exact equality of both fields.
func (c Capability) Equal(other Capability) bool {
	return c.Issuer.Equal(other.Issuer) && bytes.Equal(c.Params, other.Params)
}

// key returns a value suitable as a map key for a Capability, since a raw
// Capability (containing a []byte) is not itself comparable.
func (c Capability) key() string {
	return fmt.Sprintf("%s|%x", c.Issuer.String(), c.Params)
}

// Signed pairs a Capability with the Ed25519 signature over its canonical
// wire encoding (§4.2, §6).
type Signed struct {
	Cap Capability
	Sig [64]byte
}

// wireForm is the struct that gets canonically CBOR-encoded for signing,
// matching §4.2's "canonical byte encoding of (issuer, params)".
type wireForm struct {
	Issuer string
	Params []byte
}

// CanonicalBytes returns the deterministic encoding of (issuer, params)
// that is signed and verified.
func (c Capability) CanonicalBytes() []byte {
	b, err := cbor.Marshal(wireForm{Issuer: c.Issuer.String(), Params: c.Params})
	if err != nil {
		// wireForm only contains a string and a byte slice; cbor.Marshal
		// cannot fail on it.
		panic(fmt.Sprintf("capability: unreachable marshal failure: %v", err))
	}
	return b
}

// Conventional capability param shapes (spec.md §6).
var (
	MessagingParams = []byte(`"messaging"`)
	NetworkParams   = []byte(`"network"`)
)

// VfsKind distinguishes VFS capability kinds.
type VfsKind string

const (
	VfsRead  VfsKind = "read"
	VfsWrite VfsKind = "write"
)

// VfsParams encodes a {kind, drive} VFS capability in the canonical form
// spec.md §6 describes.
func VfsParams(kind VfsKind, drive id.Drive) []byte {
	b, _ := cbor.Marshal(struct {
		Kind  string `cbor:"kind"`
		Drive string `cbor:"drive"`
	}{Kind: string(kind), Drive: "/" + drive.String()})
	return b
}

// VfsRootParams encodes the {root: true} capability required by CreateDrive.
func VfsRootParams() []byte {
	b, _ := cbor.Marshal(struct {
		Root bool `cbor:"root"`
	}{Root: true})
	return b
}
