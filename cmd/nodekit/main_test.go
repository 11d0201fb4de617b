// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOracleLsReportsEmptyLedgerBeforeAnyRun(t *testing.T) {
	home := t.TempDir()

	cmd := oracleCmd()
	cmd.SetArgs([]string{"ls", "--home", home})
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "no ledger has been persisted yet")
}

func TestBackupOnFreshHomeSucceeds(t *testing.T) {
	home := t.TempDir()

	cmd := backupCmd()
	cmd.SetArgs([]string{"--home", home})
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "backup complete")
}

func TestLoadOrCreateSignerIsStableAcrossCalls(t *testing.T) {
	home := t.TempDir()

	first, err := loadOrCreateSigner(home)
	require.NoError(t, err)
	second, err := loadOrCreateSigner(home)
	require.NoError(t, err)

	require.Equal(t, first.PublicKey(), second.PublicKey())
}
