package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "router",
		Short:        "Multi-hop swap route finder",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newQuoteCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSnapshotCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func addRouterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-hops", 3, "maximum hops per route")
	cmd.Flags().Int("max-visits", 100000, "search node-visit budget")
	cmd.Flags().Duration("search-timeout", 0, "per-search deadline, 0 disables")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("pools", nil, "pool files (.jsonl, .json, .yaml)")
	cmd.Flags().String("rpc", "", "JSON-RPC URL for on-chain pairs")
	cmd.Flags().StringSlice("pair", nil, "on-chain pairs as exchange:address[:fee]")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Bool("pg-init-schema", false, "create the pools table if missing")
	cmd.Flags().String("redis-addr", "", "Redis address")
}
