// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package vfs

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
)

func newTestService(t *testing.T) (*Service, *capability.Oracle) {
	t.Helper()
	oracle := capability.NewOracle(nil, nil)
	t.Cleanup(oracle.Close)
	svc, err := NewService(t.TempDir(), "alice.os", oracle, nil, nil)
	require.NoError(t, err)
	return svc, oracle
}

func ownerPid(drive id.Drive) id.ProcessId {
	return id.ProcessId{Name: "app", Package: drive.Package, Publisher: drive.Publisher}
}

func TestCreateDriveGrantsOwnerCaps(t *testing.T) {
	svc, oracle := newTestService(t)
	ctx := context.Background()
	drive := id.Drive{Package: "app", Publisher: "dev.os"}
	owner := ownerPid(drive)

	require.NoError(t, svc.CreateDrive(ctx, owner, drive))

	vfsAddr := id.Address{Node: "alice.os", Process: id.VfsProcessId}
	has, err := oracle.Has(ctx, owner, capability.Capability{Issuer: vfsAddr, Params: capability.VfsParams(capability.VfsWrite, drive)})
	require.NoError(t, err)
	require.True(t, has)
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	drive := id.Drive{Package: "app", Publisher: "dev.os"}
	owner := ownerPid(drive)

	require.NoError(t, svc.CreateDrive(ctx, owner, drive))
	require.NoError(t, svc.WriteAll(ctx, owner, drive, "hello.txt", []byte("hi there")))

	require.NoError(t, svc.OpenFile(ctx, owner, drive, "hello.txt", false))
	got, err := svc.ReadToEnd(ctx, owner, drive, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hi there"), got)
}

func TestWriteDeniedWithoutCapability(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	drive := id.Drive{Package: "app", Publisher: "dev.os"}
	owner := ownerPid(drive)
	require.NoError(t, svc.CreateDrive(ctx, owner, drive))

	stranger := id.ProcessId{Name: "other", Package: "other", Publisher: "dev.os"}
	err := svc.WriteAll(ctx, stranger, drive, "hello.txt", []byte("nope"))
	require.ErrorIs(t, err, ErrNoCap)
}

func TestPathTraversalRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	drive := id.Drive{Package: "app", Publisher: "dev.os"}
	owner := ownerPid(drive)
	require.NoError(t, svc.CreateDrive(ctx, owner, drive))

	err := svc.WriteAll(ctx, owner, drive, "../../etc/passwd", []byte("pwned"))
	require.ErrorIs(t, err, ErrBadPath)
}

func TestHashMatchesContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	drive := id.Drive{Package: "app", Publisher: "dev.os"}
	owner := ownerPid(drive)
	require.NoError(t, svc.CreateDrive(ctx, owner, drive))
	require.NoError(t, svc.WriteAll(ctx, owner, drive, "f.bin", []byte("payload")))

	h1, err := svc.Hash(ctx, owner, drive, "f.bin")
	require.NoError(t, err)
	h2, err := svc.Hash(ctx, owner, drive, "f.bin")
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Equal(t, blake3.Sum256([]byte("payload")), h1)
}

func TestAddZipRejectsEmptyEntry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	drive := id.Drive{Package: "app", Publisher: "dev.os"}
	owner := ownerPid(drive)
	require.NoError(t, svc.CreateDrive(ctx, owner, drive))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("empty.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	err = svc.AddZip(ctx, owner, drive, "/", buf.Bytes())
	require.ErrorIs(t, err, ErrEmptyEntry)
}
