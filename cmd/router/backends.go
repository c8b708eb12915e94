package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"routeScope/internal/chain"
	"routeScope/internal/config"
	"routeScope/internal/router"
	"routeScope/internal/source/file"
	"routeScope/internal/source/onchain"
	"routeScope/internal/storage"
	"routeScope/internal/storage/cache"
	"routeScope/internal/storage/postgres"
	"routeScope/internal/supplier"
)

// backends are the sources and sinks opened from configuration. Stores are
// listed ahead of live sources so a refresh lets live pools win.
type backends struct {
	sources []supplier.Source
	sinks   []supplier.Sink
	closers []func()

	stores []supplier.Source
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.SourcesConfig, logger *zap.Logger) (*backends, error) {
	b := &backends{}

	for _, path := range cfg.PoolFiles {
		b.sources = append(b.sources, file.NewSource(path))
	}

	if len(cfg.Pairs) > 0 {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		b.closers = append(b.closers, chainClient.Close)

		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("get chain id: %w", err)
		}
		logger.Info("connected to chain", zap.String("chain_id", chainID.String()), zap.Int("pairs", len(cfg.Pairs)))

		pairs := make([]onchain.PairConfig, 0, len(cfg.Pairs))
		for _, spec := range cfg.Pairs {
			pairs = append(pairs, onchain.PairConfig{Exchange: spec.Exchange, Address: spec.Address, Fee: spec.Fee})
		}
		src, err := onchain.NewPairSource(chainClient, pairs, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sources = append(b.sources, src)
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			b.Close()
			return nil, err
		}
		if cfg.PGInitSchema {
			if err := store.InitSchema(ctx); err != nil {
				store.Close()
				b.Close()
				return nil, err
			}
		}
		b.addStore(store)
	}

	if cfg.RedisAddr != "" {
		store, err := cache.NewRedisStore(ctx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.addStore(store)
	}

	if cfg.SnapshotOut != "" {
		b.addStore(storage.NewJsonlStorage(cfg.SnapshotOut))
	}

	b.sources = append(b.stores, b.sources...)
	b.stores = nil
	return b, nil
}

// addStore registers a store as both a warm-start source and a sink.
func (b *backends) addStore(store storage.Store) {
	b.stores = append(b.stores, store)
	b.sinks = append(b.sinks, store)
	b.closers = append(b.closers, func() { _ = store.Close() })
}

func routerConfig(cfg config.RouterConfig) router.Config {
	return router.Config{
		MaxHops:        cfg.MaxHops,
		MaxVisits:      cfg.MaxVisits,
		SearchTimeout:  cfg.SearchTimeout,
		GasPerHop:      cfg.GasPerHop,
		BaseConfidence: cfg.BaseConfidence,
	}
}

func supplierConfig(cfg config.SupplierConfig) supplier.Config {
	return supplier.Config{
		Interval:     cfg.Interval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		FetchTimeout: cfg.FetchTimeout,
	}
}
