// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"

	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/message"
)

// loggingNetwork is the dispatch.Network stub for a standalone node: it has
// no peers, so any envelope crossing it is logged and dropped. Wiring a
// real transport is out of scope (spec.md §1 names networking an external
// collaborator; dispatch.Router only needs somewhere to hand off
// foreign-target envelopes).
type loggingNetwork struct {
	log log.Logger
}

func (n *loggingNetwork) SendForeign(ctx context.Context, env message.Envelope) {
	n.log.Warn("no network transport configured, dropping foreign envelope", "target", env.Target.String())
}
