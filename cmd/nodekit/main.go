// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nodekit",
	Short: "A WASM component process kernel: capability-secure processes, message passing, persistent state, and a virtual file system",
	Long: `nodekit boots and inspects a single kernel node: per-process execution loops
dispatched over capability-checked message envelopes, a persistent
key-value state service, and a capability-gated virtual file system,
rooted at a node's home directory.`,
}

func main() {
	rootCmd.AddCommand(
		startCmd(),
		backupCmd(),
		oracleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
