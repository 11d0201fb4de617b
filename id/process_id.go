// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package id implements the kernel's naming model: NodeId, ProcessId,
// Address, and MessageId (§3, §4.1 of the kernel specification).
package id

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// NodeId is the string identifier of a physical host in the network.
type NodeId string

// ProcessId is the (name, package, publisher) triple that names a process.
// It is total-ordered lexicographically by (name, package, publisher) and
// formats as "name:package:publisher".
type ProcessId struct {
	Name      string
	Package   string
	Publisher string
}

var (
	// ErrBadProcessId is returned when a string is not a well-formed
	// ProcessId: wrong segment count, or an empty or invalid segment.
	ErrBadProcessId = errors.New("id: malformed process id")
)

// isSegmentByte reports whether b is valid within a ProcessId segment:
// lowercase ASCII letters, digits, dash and underscore.
func isSegmentByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '-' || b == '_':
		return true
	default:
		return false
	}
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isSegmentByte(s[i]) {
			return false
		}
	}
	return true
}

// ParseProcessId parses the canonical "name:package:publisher" form.
// It fails on wrong arity or any empty/invalid segment.
func ParseProcessId(s string) (ProcessId, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ProcessId{}, fmt.Errorf("%w: %q has %d segments, want 3", ErrBadProcessId, s, len(parts))
	}
	for _, p := range parts {
		if !validSegment(p) {
			return ProcessId{}, fmt.Errorf("%w: invalid segment %q in %q", ErrBadProcessId, p, s)
		}
	}
	return ProcessId{Name: parts[0], Package: parts[1], Publisher: parts[2]}, nil
}

// String formats the ProcessId as "name:package:publisher". It is the
// exact inverse of ParseProcessId.
func (p ProcessId) String() string {
	return p.Name + ":" + p.Package + ":" + p.Publisher
}

// Less reports whether p sorts before other under the triple's
// lexicographic total order.
func (p ProcessId) Less(other ProcessId) bool {
	if p.Name != other.Name {
		return p.Name < other.Name
	}
	if p.Package != other.Package {
		return p.Package < other.Package
	}
	return p.Publisher < other.Publisher
}

// Equal reports field-wise equality.
func (p ProcessId) Equal(other ProcessId) bool {
	return p == other
}

// Drive is the (package, publisher) pair that owns a VFS drive. Two
// ProcessIds share a drive iff their Drive()s are equal.
func (p ProcessId) Drive() Drive {
	return Drive{Package: p.Package, Publisher: p.Publisher}
}

// Drive names the (package, publisher) owner of a VFS subtree.
type Drive struct {
	Package   string
	Publisher string
}

// String formats as "package:publisher".
func (d Drive) String() string {
	return d.Package + ":" + d.Publisher
}

// Hash returns a stable 32-byte digest of the ProcessId's canonical string
// form, for use as a persistent-store key (§4.1). Uses the same BLAKE3
// digest as vfs.Hash (see vfs/hash.go) so a process's state-store key and
// its VFS content hashes come from one library, not two.
func (p ProcessId) Hash() [32]byte {
	return blake3.Sum256([]byte(p.String()))
}

// Well-known runtime process identities bootstrapped at first boot
// (SPEC_FULL.md §SUPPLEMENTED FEATURES 4; spec.md §4.6).
var (
	KernelProcessId   = ProcessId{Name: "kernel", Package: "distro", Publisher: "sys"}
	NetProcessId      = ProcessId{Name: "net", Package: "distro", Publisher: "sys"}
	VfsProcessId      = ProcessId{Name: "vfs", Package: "distro", Publisher: "sys"}
	StateProcessId    = ProcessId{Name: "state", Package: "distro", Publisher: "sys"}
	TerminalProcessId = ProcessId{Name: "terminal", Package: "distro", Publisher: "sys"}
)

// Alias maps short human-typed names (as used at a terminal) to full
// ProcessIds. It lives in id because both the bootstrap manifest parser
// (statestore.Bootstrap) and the out-of-scope terminal need the same table;
// the terminal itself is not implemented here (spec.md §1 Out of scope).
type Alias map[string]ProcessId

// DefaultAliases returns the alias table seeded with the well-known
// runtime processes.
func DefaultAliases() Alias {
	return Alias{
		"kernel":   KernelProcessId,
		"net":      NetProcessId,
		"vfs":      VfsProcessId,
		"state":    StateProcessId,
		"terminal": TerminalProcessId,
	}
}
