// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package process

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/message"
)

type fakeOutbox struct {
	mu  sync.Mutex
	out []message.Envelope
}

func (f *fakeOutbox) Deliver(_ context.Context, env message.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, env)
}

func (f *fakeOutbox) last() message.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out[len(f.out)-1]
}

func (f *fakeOutbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}

func newTestInstance(t *testing.T) (*Instance, *fakeOutbox) {
	t.Helper()
	self := id.Address{Node: "alice.os", Process: id.ProcessId{Name: "app", Package: "app", Publisher: "dev.os"}}
	oracle := capability.NewOracle(nil, nil)
	t.Cleanup(oracle.Close)
	out := &fakeOutbox{}
	return New(self, oracle, out, nil), out
}

func TestPushBuffersUntilRunSignal(t *testing.T) {
	in, _ := newTestInstance(t)
	kernel := id.Address{Node: "alice.os", Process: id.KernelProcessId}

	in.Push(message.NewEnvelopeEntry(&message.Envelope{Id: 1, Source: in.Self(), Target: in.Self(),
		Message: message.Request{Body: []byte("early")}}))
	require.Equal(t, PreBoot, in.State())
	require.Equal(t, 0, in.inbox.Len())

	in.Push(message.NewEnvelopeEntry(&message.Envelope{Id: 2, Source: kernel, Target: in.Self(),
		Message: message.Request{Body: []byte("run")}}))

	require.Equal(t, Running, in.State())
	require.Equal(t, 1, in.inbox.Len())

	entry, err := in.inbox.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, id.MessageId(1), entry.ID())
}

func TestReceiveTracksCurrentIncomingAndNestedRequest(t *testing.T) {
	in, out := newTestInstance(t)
	target := id.Address{Node: "bob.os", Process: id.ProcessId{Name: "svc", Package: "svc", Publisher: "dev.os"}}
	markRunning(in)

	timeout := 5 * time.Second
	mid, err := in.SendRequest(context.Background(), target, message.Request{ExpectsResponse: &timeout}, SendOpts{})
	require.NoError(t, err)
	require.Equal(t, 1, out.count())

	resp := &message.Envelope{Id: mid, Source: target, Target: in.Self(), Message: message.Response{Body: []byte("ok")}}
	in.Push(message.NewEnvelopeEntry(resp))

	entry, pc, err := in.Receive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, entry.Envelope)
	require.NotNil(t, pc)

	in.mu.Lock()
	require.Nil(t, in.nestedReq)
	in.mu.Unlock()
}

func TestSendResponseUsesCurrentIncomingRequest(t *testing.T) {
	in, out := newTestInstance(t)
	requester := id.Address{Node: "carol.os", Process: id.ProcessId{Name: "svc", Package: "svc", Publisher: "dev.os"}}
	markRunning(in)

	req := &message.Envelope{Id: 9, Source: requester, Target: in.Self(), Message: message.Request{Body: []byte("ping")}}
	in.Push(message.NewEnvelopeEntry(req))
	_, _, err := in.Receive(context.Background())
	require.NoError(t, err)

	err = in.SendResponse(context.Background(), message.Response{Body: []byte("pong")}, SendOpts{})
	require.NoError(t, err)

	sent := out.last()
	require.Equal(t, id.MessageId(9), sent.Id)
	require.True(t, sent.Target.Equal(requester))
}

func TestSendResponseDropsWithNoIncoming(t *testing.T) {
	in, out := newTestInstance(t)
	markRunning(in)

	err := in.SendResponse(context.Background(), message.Response{Body: []byte("pong")}, SendOpts{})
	require.NoError(t, err)
	require.Equal(t, 0, out.count())
}

func TestTimeoutFiresIntoOwnInboxWhenNoResponseArrives(t *testing.T) {
	in, _ := newTestInstance(t)
	target := id.Address{Node: "bob.os", Process: id.ProcessId{Name: "svc", Package: "svc", Publisher: "dev.os"}}
	markRunning(in)

	short := 10 * time.Millisecond
	mid, err := in.SendRequest(context.Background(), target, message.Request{ExpectsResponse: &short}, SendOpts{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	entry, err := in.inbox.Await(ctx, mid)
	require.NoError(t, err)
	require.NotNil(t, entry.Err)
	require.Equal(t, message.Timeout, entry.Err.Kind)
}

func markRunning(in *Instance) {
	in.mu.Lock()
	in.state = Running
	in.mu.Unlock()
}
