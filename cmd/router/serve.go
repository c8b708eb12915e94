package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"routeScope/internal/api"
	"routeScope/internal/config"
	"routeScope/internal/router"
	"routeScope/internal/supplier"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Refresh pools continuously and serve routes over HTTP",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Duration("interval", 10*time.Second, "pool refresh interval")
	cmd.Flags().Int("max-retries", 3, "retries per source fetch")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("snapshot-out", "", "JSONL file rewritten after each refresh")
	addRouterFlags(cmd)
	addSourceFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	finder := router.New(rcfg, logger, reg)
	sup, err := supplier.New(supplierConfig(cfg.Supplier), finder, b.sources, b.sinks, logger, reg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(finder, reg, logger)
	server := api.NewServer(cfg.Listen, handler.Routes(), cfg.ReadTimeout, cfg.WriteTimeout, logger)

	logger.Info("router start",
		zap.String("listen", cfg.Listen),
		zap.Int("sources", len(b.sources)),
		zap.Int("sinks", len(b.sinks)),
		zap.Int("max_hops", finder.Config().MaxHops),
		zap.Duration("interval", cfg.Supplier.Interval),
	)

	go func() {
		_ = sup.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
