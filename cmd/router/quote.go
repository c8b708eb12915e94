package main

import (
	"context"
	"encoding/json"
	"errors"
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

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Find the best route for one swap",
		RunE:  runQuote,
	}

	cmd.Flags().String("in", "", "input token symbol")
	cmd.Flags().String("out", "", "output token symbol")
	cmd.Flags().Float64("amount", 0, "input amount")
	cmd.Flags().String("snapshot-out", "", "JSONL snapshot from serve or snapshot, read as a pool source")
	addRouterFlags(cmd)
	addSourceFlags(cmd)

	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
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

	tokenIn, _ := cmd.Flags().GetString("in")
	tokenOut, _ := cmd.Flags().GetString("out")
	amount, _ := cmd.Flags().GetFloat64("amount")

	rcfg := routerConfig(cfg.Router)
	if err := rcfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg.Sources, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	if len(b.sources) == 0 {
		return fmt.Errorf("no pool source configured: set --pools, --pair, --snapshot-out, --pg-dsn or --redis-addr")
	}

	finder := router.New(rcfg, logger, nil)
	sup, err := supplier.New(supplierConfig(cfg.Supplier), finder, b.sources, nil, logger, nil)
	if err != nil {
		return err
	}
	if _, err := sup.ForceRefresh(ctx); err != nil {
		return fmt.Errorf("load pools: %w", err)
	}

	stats := finder.Stats()
	logger.Debug("pools loaded", zap.Int("pools", stats.Pools), zap.Int("tokens", stats.Tokens))

	route, err := finder.FindBestRoute(ctx, tokenIn, tokenOut, amount)
	switch {
	case errors.Is(err, router.ErrNoRouteFound):
		return fmt.Errorf("no route available from %s to %s within %d hops", tokenIn, tokenOut, finder.Config().MaxHops)
	case errors.Is(err, router.ErrInvalidRequest):
		return fmt.Errorf("invalid request: %w", err)
	case err != nil:
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(route)
}
