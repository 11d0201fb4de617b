// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/statestore"
)

func backupCmd() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot a stopped node's state store to <home>/kernel/checkpoint",
		Long: `backup opens the node's state store directly (the node must not be running,
pebble allows only one writer at a time) and atomically snapshots it,
overwriting any prior checkpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := statestore.Open(cfg.Home, log.NewNoOpLogger())
			if err != nil {
				return fmt.Errorf("nodekit: open state store: %w", err)
			}
			defer store.Close()
			if err := store.Backup(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "backup complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Home, "home", defaultHome(), "node home directory")
	return cmd
}
