// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"
	"path/filepath"

	"github.com/nodekit-os/kernel/id"
)

// Config gathers the flags shared by every subcommand that boots or
// inspects a node's on-disk state.
type Config struct {
	Home   string
	Node   id.NodeId
	Target string
}

func defaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".nodekit")
	}
	return ".nodekit"
}

func parseNodeId(s string) id.NodeId {
	return id.NodeId(s)
}
