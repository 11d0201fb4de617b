// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package id

import (
	"errors"
	"fmt"
	"strings"
)

// Address is a (NodeId, ProcessId) pair: the fully-qualified location of a
// process within the network.
type Address struct {
	Node    NodeId
	Process ProcessId
}

// ErrBadAddress is returned when a string is not a well-formed Address.
var ErrBadAddress = errors.New("id: malformed address")

// String formats as "node@name:package:publisher".
func (a Address) String() string {
	return string(a.Node) + "@" + a.Process.String()
}

// ParseAddress parses the canonical "node@ProcessId" form.
func ParseAddress(s string) (Address, error) {
	node, rest, ok := strings.Cut(s, "@")
	if !ok || node == "" {
		return Address{}, fmt.Errorf("%w: %q missing node@ separator", ErrBadAddress, s)
	}
	pid, err := ParseProcessId(rest)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrBadAddress, err)
	}
	return Address{Node: NodeId(node), Process: pid}, nil
}

// Equal reports whether a and other name the same node and process.
func (a Address) Equal(other Address) bool {
	return a.Node == other.Node && a.Process.Equal(other.Process)
}

// MessageId uniquely identifies an in-flight request within the set of
// requests a single process holds outstanding (§3).
type MessageId uint64
