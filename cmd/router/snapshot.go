package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"routeScope/internal/config"
	"routeScope/internal/router"
	"routeScope/internal/supplier"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Refresh pools once and write them to the configured sinks",
		RunE:  runSnapshot,
	}

	cmd.Flags().String("snapshot-out", "", "JSONL file to write")
	cmd.Flags().Int("max-retries", 3, "retries per source fetch")
	addRouterFlags(cmd)
	addSourceFlags(cmd)

	return cmd
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg.Sources, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	if len(b.sinks) == 0 {
		return fmt.Errorf("no sink configured: set --snapshot-out, --pg-dsn or --redis-addr")
	}

	finder := router.New(routerConfig(cfg.Router), logger, nil)
	sup, err := supplier.New(supplierConfig(cfg.Supplier), finder, b.sources, b.sinks, logger, nil)
	if err != nil {
		return err
	}
	if _, err := sup.ForceRefresh(ctx); err != nil {
		return err
	}

	stats := finder.Stats()
	logger.Info("snapshot written",
		zap.Int("pools", stats.Pools),
		zap.Int("tokens", stats.Tokens),
		zap.Strings("exchanges", stats.Exchanges),
		zap.Int("sinks", len(b.sinks)),
	)
	return nil
}
