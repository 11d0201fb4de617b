// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package statestore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodekit-os/kernel/id"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	pid := id.ProcessId{Name: "app", Package: "app", Publisher: "dev.os"}

	require.NoError(t, s.SetState(pid, []byte("hello")))
	got, err := s.GetState(pid)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestGetStateNotFound(t *testing.T) {
	s := newTestStore(t)
	pid := id.ProcessId{Name: "missing", Package: "app", Publisher: "dev.os"}

	_, err := s.GetState(pid)
	require.True(t, errors.Is(err, NotFound))
}

func TestDeleteStateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	pid := id.ProcessId{Name: "app", Package: "app", Publisher: "dev.os"}

	require.NoError(t, s.SetState(pid, []byte("x")))
	require.NoError(t, s.DeleteState(pid))
	require.NoError(t, s.DeleteState(pid))

	_, err := s.GetState(pid)
	require.True(t, errors.Is(err, NotFound))
}

func TestBackupOverwritesPriorSnapshot(t *testing.T) {
	s := newTestStore(t)
	pid := id.ProcessId{Name: "app", Package: "app", Publisher: "dev.os"}

	require.NoError(t, s.SetState(pid, []byte("v1")))
	require.NoError(t, s.Backup())

	require.NoError(t, s.SetState(pid, []byte("v2")))
	require.NoError(t, s.Backup())
}
