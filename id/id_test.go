// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package id

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessIdRoundTrip(t *testing.T) {
	cases := []string{
		"echo:terminal:sys",
		"my-app:pkg_one:publisher-two",
		"a:b:c",
	}
	for _, c := range cases {
		pid, err := ParseProcessId(c)
		require.NoError(t, err)
		require.Equal(t, c, pid.String())
	}
}

func TestProcessIdRejectsBadArity(t *testing.T) {
	for _, bad := range []string{"", "a:b", "a:b:c:d", "a::c", ":b:c", "a:b:"} {
		_, err := ParseProcessId(bad)
		require.ErrorIs(t, err, ErrBadProcessId)
	}
}

func TestProcessIdRejectsInvalidSegmentBytes(t *testing.T) {
	for _, bad := range []string{"A:b:c", "a:b:c!", "a b:c:d"} {
		_, err := ParseProcessId(bad)
		require.ErrorIs(t, err, ErrBadProcessId)
	}
}

func TestProcessIdOrdering(t *testing.T) {
	a := ProcessId{Name: "a", Package: "p", Publisher: "s"}
	b := ProcessId{Name: "b", Package: "p", Publisher: "s"}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}

func TestProcessIdHashStable(t *testing.T) {
	pid := ProcessId{Name: "echo", Package: "terminal", Publisher: "sys"}
	h1 := pid.Hash()
	h2 := pid.Hash()
	require.Equal(t, h1, h2)

	other := ProcessId{Name: "cat", Package: "terminal", Publisher: "sys"}
	require.NotEqual(t, pid.Hash(), other.Hash())
}

func TestAddressRoundTrip(t *testing.T) {
	addr, err := ParseAddress("node-1@echo:terminal:sys")
	require.NoError(t, err)
	require.Equal(t, "node-1@echo:terminal:sys", addr.String())
	require.Equal(t, NodeId("node-1"), addr.Node)
}

func TestAddressRejectsMissingAt(t *testing.T) {
	_, err := ParseAddress("echo:terminal:sys")
	require.ErrorIs(t, err, ErrBadAddress)
}

func TestAddressEquality(t *testing.T) {
	a, _ := ParseAddress("n@a:b:c")
	b, _ := ParseAddress("n@a:b:c")
	c, _ := ParseAddress("n2@a:b:c")
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestDefaultAliasesResolveWellKnownIds(t *testing.T) {
	aliases := DefaultAliases()
	require.Equal(t, KernelProcessId, aliases["kernel"])
	require.Equal(t, VfsProcessId, aliases["vfs"])
}
