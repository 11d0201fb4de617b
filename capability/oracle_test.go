// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodekit-os/kernel/id"
)

func addr(node, pid string) id.Address {
	a, err := id.ParseAddress(node + "@" + pid)
	if err != nil {
		panic(err)
	}
	return a
}

func TestOracleAddHasDropIdempotent(t *testing.T) {
	ctx := context.Background()
	signer, err := NewSigner()
	require.NoError(t, err)
	o := NewOracle(signer, nil)
	defer o.Close()

	on := id.ProcessId{Name: "x", Package: "p", Publisher: "s"}
	cap := Capability{Issuer: addr("node1", "b:p:s"), Params: MessagingParams}

	has, err := o.Has(ctx, on, cap)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, o.Add(ctx, on, cap, [64]byte{}))
	require.NoError(t, o.Add(ctx, on, cap, [64]byte{})) // idempotent

	has, err = o.Has(ctx, on, cap)
	require.NoError(t, err)
	require.True(t, has)

	all, err := o.GetAll(ctx, on)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, o.Drop(ctx, on, cap))
	require.NoError(t, o.Drop(ctx, on, cap)) // idempotent
	has, err = o.Has(ctx, on, cap)
	require.NoError(t, err)
	require.False(t, has)
}

func TestOracleFilterCapsOnlyReturnsHeld(t *testing.T) {
	ctx := context.Background()
	signer, err := NewSigner()
	require.NoError(t, err)
	o := NewOracle(signer, nil)
	defer o.Close()

	on := id.ProcessId{Name: "x", Package: "p", Publisher: "s"}
	held := Capability{Issuer: addr("node1", "b:p:s"), Params: MessagingParams}
	notHeld := Capability{Issuer: addr("node1", "c:p:s"), Params: MessagingParams}

	require.NoError(t, o.Add(ctx, on, held, [64]byte{}))

	signed, err := o.FilterCaps(ctx, on, "node1", []Capability{held, notHeld})
	require.NoError(t, err)
	require.Len(t, signed, 1)
	require.True(t, signed[0].Cap.Equal(held))
}

func TestOracleFilterCapsSignsLocalIssuer(t *testing.T) {
	ctx := context.Background()
	signer, err := NewSigner()
	require.NoError(t, err)
	o := NewOracle(signer, nil)
	defer o.Close()

	on := id.ProcessId{Name: "x", Package: "p", Publisher: "s"}
	localIssuer := addr("node1", "kernel:distro:sys")
	cap := Capability{Issuer: localIssuer, Params: MessagingParams}
	require.NoError(t, o.Add(ctx, on, cap, [64]byte{}))

	signed, err := o.FilterCaps(ctx, on, "node1", []Capability{cap})
	require.NoError(t, err)
	require.Len(t, signed, 1)
	require.True(t, signer.VerifyLocal(cap, signed[0].Sig))
}

func TestOracleRevokeAllRemovesSubjectAndIssued(t *testing.T) {
	ctx := context.Background()
	signer, err := NewSigner()
	require.NoError(t, err)
	o := NewOracle(signer, nil)
	defer o.Close()

	victim := id.ProcessId{Name: "victim", Package: "p", Publisher: "s"}
	other := id.ProcessId{Name: "other", Package: "p", Publisher: "s"}

	victimAddr := addr("node1", victim.String())
	capFromVictim := Capability{Issuer: victimAddr, Params: MessagingParams}
	capToVictim := Capability{Issuer: addr("node1", "issuer:p:s"), Params: MessagingParams}

	require.NoError(t, o.Add(ctx, other, capFromVictim, [64]byte{}))
	require.NoError(t, o.Add(ctx, victim, capToVictim, [64]byte{}))

	require.NoError(t, o.RevokeAll(ctx, victim))

	all, err := o.GetAll(ctx, victim)
	require.NoError(t, err)
	require.Empty(t, all)

	all, err = o.GetAll(ctx, other)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestOracleSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	signer, err := NewSigner()
	require.NoError(t, err)
	o := NewOracle(signer, nil)
	defer o.Close()

	on := id.ProcessId{Name: "x", Package: "p", Publisher: "s"}
	cap := Capability{Issuer: addr("node1", "b:p:s"), Params: MessagingParams}
	require.NoError(t, o.Add(ctx, on, cap, [64]byte{}))

	entries, err := o.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	o2 := NewOracle(signer, nil)
	defer o2.Close()
	require.NoError(t, o2.Restore(ctx, entries))

	has, err := o2.Has(ctx, on, cap)
	require.NoError(t, err)
	require.True(t, has)
}

func TestOracleClosedIsFatal(t *testing.T) {
	ctx := context.Background()
	signer, err := NewSigner()
	require.NoError(t, err)
	o := NewOracle(signer, nil)
	o.Close()

	_, err = o.Has(ctx, id.ProcessId{}, Capability{})
	require.Error(t, err)
}
