// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/dispatch"
	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/internal/metrics"
	"github.com/nodekit-os/kernel/statestore"
	"github.com/nodekit-os/kernel/vfs"
)

func startCmd() *cobra.Command {
	cfg := Config{}
	var nodeStr string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Boot a node: open its store, restore the capability ledger, and run bootstrap if first boot",
		Long: `start opens the node's persistent store and VFS root at --home, restores the
capability oracle's ledger from the prior run (or runs first-boot bootstrap
against --target if none is found), then blocks serving kernel commands
until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Node = parseNodeId(nodeStr)
			return runStart(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Home, "home", defaultHome(), "node home directory for persistent state, VFS, and signing key")
	cmd.Flags().StringVar(&nodeStr, "node", "local.os", "this node's identity")
	cmd.Flags().StringVar(&cfg.Target, "target", "target", "directory of first-boot distribution package zips")
	return cmd
}

func runStart(ctx context.Context, cfg Config) error {
	logger := log.NewLogrusLogger(logrus.StandardLogger())

	registry := prometheus.NewRegistry()
	signer, err := loadOrCreateSigner(cfg.Home)
	if err != nil {
		return err
	}

	store, err := statestore.Open(cfg.Home, logger)
	if err != nil {
		return fmt.Errorf("nodekit: open state store: %w", err)
	}
	defer store.Close()

	oracle := capability.NewOracleWithMetrics(signer, logger, registry)
	defer oracle.Close()

	entries, restored, err := loadLedger(store)
	if err != nil {
		return err
	}
	if restored {
		if err := oracle.Restore(ctx, entries); err != nil {
			return fmt.Errorf("nodekit: restore oracle ledger: %w", err)
		}
		logger.Info("restored capability ledger", "entries", len(entries))
	}

	net := &loggingNetwork{log: logger}
	router := dispatch.NewRouter(cfg.Node, oracle, signer, net, logger, metrics.NewDispatch(registry))

	vfsSvc, err := vfs.NewService(cfg.Home, cfg.Node, oracle, logger, metrics.NewVfs(registry))
	if err != nil {
		return fmt.Errorf("nodekit: open vfs: %w", err)
	}

	if !restored {
		logger.Info("first boot, running bootstrap", "target", cfg.Target)
		if err := statestore.Bootstrap(ctx, cfg.Node, cfg.Target, router, vfsSvc, logger); err != nil {
			return fmt.Errorf("nodekit: bootstrap: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("node running", "node", cfg.Node, "home", cfg.Home)
	<-ctx.Done()
	logger.Info("shutting down, snapshotting state")

	snapshot, err := oracle.Snapshot(context.Background())
	if err != nil {
		return fmt.Errorf("nodekit: snapshot oracle before shutdown: %w", err)
	}
	if err := saveLedger(store, snapshot); err != nil {
		return err
	}
	return store.Backup()
}
