// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/statestore"
)

func oracleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Inspect a stopped node's persisted capability ledger",
	}
	cmd.AddCommand(oracleLsCmd())
	return cmd
}

func oracleLsCmd() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List every (subject, issuer, params) row in the last-persisted ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := statestore.Open(cfg.Home, log.NewNoOpLogger())
			if err != nil {
				return fmt.Errorf("nodekit: open state store: %w", err)
			}
			defer store.Close()

			entries, found, err := loadLedger(store)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "no ledger has been persisted yet")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  issuer=%s  params=%x\n", e.Subject, e.Cap.Issuer, e.Cap.Params)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Home, "home", defaultHome(), "node home directory")
	return cmd
}
