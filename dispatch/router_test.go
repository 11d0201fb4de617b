// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/message"
	"github.com/nodekit-os/kernel/process"
	"github.com/nodekit-os/kernel/record"
)

const local id.NodeId = "alice.os"

func newTestRouter(t *testing.T) (*Router, *capability.Oracle) {
	t.Helper()
	signer, err := capability.NewSigner()
	require.NoError(t, err)
	oracle := capability.NewOracle(signer, nil)
	t.Cleanup(oracle.Close)
	r := NewRouter(local, oracle, signer, nil, nil, nil)
	return r, oracle
}

func pid(name string) id.ProcessId {
	return id.ProcessId{Name: name, Package: "app", Publisher: "dev.os"}
}

func TestEchoRoundTrip(t *testing.T) {
	r, oracle := newTestRouter(t)
	ctx := context.Background()

	a, err := r.InitializeProcess(ctx, pid("a"), record.ProcessRecord{}, nil)
	require.NoError(t, err)
	b, err := r.InitializeProcess(ctx, pid("b"), record.ProcessRecord{}, nil)
	require.NoError(t, err)
	require.NoError(t, r.RunProcess(pid("a")))
	require.NoError(t, r.RunProcess(pid("b")))

	require.NoError(t, oracle.Add(ctx, pid("a"), capability.Capability{
		Issuer: id.Address{Node: local, Process: pid("b")},
		Params: capability.MessagingParams,
	}, [64]byte{}))

	timeout := 5 * time.Second
	mid, err := a.SendRequest(ctx, id.Address{Node: local, Process: pid("b")},
		message.Request{Body: []byte("hi"), ExpectsResponse: &timeout}, process.SendOpts{})
	require.NoError(t, err)

	entry, _, err := b.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry.Envelope)
	require.Equal(t, []byte("hi"), entry.Envelope.Message.(message.Request).Body)

	require.NoError(t, b.SendResponse(ctx, message.Response{Body: []byte("hi")}, process.SendOpts{}))

	resp, err := a.AwaitResponse(ctx, mid)
	require.NoError(t, err)
	require.NotNil(t, resp.Envelope)
	require.Equal(t, []byte("hi"), resp.Envelope.Message.(message.Response).Body)
}

func TestCapabilityDenial(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	x, err := r.InitializeProcess(ctx, pid("x"), record.ProcessRecord{}, nil)
	require.NoError(t, err)
	y, err := r.InitializeProcess(ctx, pid("y"), record.ProcessRecord{}, nil)
	require.NoError(t, err)
	require.NoError(t, r.RunProcess(pid("x")))
	require.NoError(t, r.RunProcess(pid("y")))

	_, err = x.SendRequest(ctx, id.Address{Node: local, Process: pid("y")},
		message.Request{Body: []byte("go")}, process.SendOpts{})
	require.NoError(t, err)

	entry, _, err := x.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry.Err)
	require.Equal(t, message.Denied, entry.Err.Kind)
	require.Equal(t, 0, y.InboxLen())
}

func TestForeignCapForgeryIsPruned(t *testing.T) {
	r, oracle := newTestRouter(t)
	ctx := context.Background()

	p, err := r.InitializeProcess(ctx, pid("p"), record.ProcessRecord{}, nil)
	require.NoError(t, err)
	require.NoError(t, r.RunProcess(pid("p")))

	require.NoError(t, oracle.Add(ctx, pid("evil"), capability.Capability{
		Issuer: id.Address{Node: local, Process: pid("p")},
		Params: capability.MessagingParams,
	}, [64]byte{}))

	forged := capability.Signed{
		Cap: capability.Capability{Issuer: id.Address{Node: local, Process: pid("p")}, Params: capability.NetworkParams},
		Sig: [64]byte{1, 2, 3},
	}
	env := message.Envelope{
		Id:      1,
		Source:  id.Address{Node: "mallory.os", Process: pid("evil")},
		Target:  id.Address{Node: local, Process: pid("p")},
		Message: message.Request{Body: []byte("go"), Capabilities: []capability.Signed{forged}},
	}
	r.Deliver(ctx, env)

	entry, _, err := p.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry.Envelope)
	require.Empty(t, entry.Envelope.Message.(message.Request).Capabilities)
}

func TestKillProcessRestart(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	rec := record.ProcessRecord{OnExit: record.OnExit{Kind: record.OnExitRestart}}
	_, err := r.InitializeProcess(ctx, pid("c"), rec, nil)
	require.NoError(t, err)
	require.NoError(t, r.RunProcess(pid("c")))

	require.NoError(t, r.KillProcess(ctx, pid("c"), false))

	inst, ok := r.Lookup(pid("c"))
	require.True(t, ok)
	require.Equal(t, process.Running, inst.State())
}
