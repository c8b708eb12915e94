package supplier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"routeScope/internal/model"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 500 * time.Millisecond
)

// ErrSupplierFailure is returned when no source produced pools on a refresh.
var ErrSupplierFailure = errors.New("supplier failure")

// Source produces a pool inventory.
type Source interface {
	Name() string
	FetchPools(ctx context.Context) ([]model.Pool, error)
}

// Sink persists the merged pool inventory after a refresh.
type Sink interface {
	Name() string
	PutPoolBatch(ctx context.Context, pools []model.Pool) error
}

// Updater receives merged pools. RouteFinder satisfies it.
type Updater interface {
	UpdatePools(pools []model.Pool)
	Pools() []model.Pool
}

// Config controls refresh cadence and per-source retries.
type Config struct {
	Interval     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	FetchTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}

// Supplier pulls pools from its sources into an Updater and fans the merged
// inventory out to sinks.
type Supplier struct {
	cfg     Config
	updater Updater
	sources []Source
	sinks   []Sink
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	mu         sync.Mutex
	lastUpdate time.Time
	lastGood   map[string][]model.Pool
}

// New builds a Supplier. At least one source is required.
func New(cfg Config, updater Updater, sources []Source, sinks []Sink, logger *zap.Logger, reg prometheus.Registerer) (*Supplier, error) {
	if updater == nil {
		return nil, fmt.Errorf("updater is nil")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supplier{
		cfg:      cfg.withDefaults(),
		updater:  updater,
		sources:  sources,
		sinks:    sinks,
		logger:   logger,
		metrics:  NewMetrics(reg),
		now:      time.Now,
		lastGood: make(map[string][]model.Pool),
	}, nil
}

// Refresh fetches every source unless the last successful update is younger
// than the configured interval. It reports whether the updater was fed.
func (s *Supplier) Refresh(ctx context.Context) (bool, error) {
	return s.refresh(ctx, false)
}

// ForceRefresh is Refresh without the debounce.
func (s *Supplier) ForceRefresh(ctx context.Context) (bool, error) {
	return s.refresh(ctx, true)
}

// Run refreshes immediately and then on every interval until ctx is done.
func (s *Supplier) Run(ctx context.Context) error {
	s.logger.Info("supplier started",
		zap.Int("sources", len(s.sources)),
		zap.Int("sinks", len(s.sinks)),
		zap.Duration("interval", s.cfg.Interval),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.refresh(ctx, true); err != nil && ctx.Err() == nil {
			s.logger.Error("refresh failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("supplier stopped")
			return nil
		case <-ticker.C:
		}
	}
}

type fetchResult struct {
	source string
	pools  []model.Pool
	err    error
}

func (s *Supplier) refresh(ctx context.Context, force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	if !force && !s.lastUpdate.IsZero() && start.Sub(s.lastUpdate) < s.cfg.Interval {
		s.metrics.skipped.Inc()
		return false, nil
	}
	defer func() {
		s.metrics.refreshDuration.Observe(s.now().Sub(start).Seconds())
	}()

	results := s.fetchAll(ctx)

	var (
		stale []model.Pool
		fresh []model.Pool
		errs  []error
	)
	for _, res := range results {
		if res.err != nil {
			s.metrics.fetches.WithLabelValues(res.source, "error").Inc()
			errs = append(errs, fmt.Errorf("source %s: %w", res.source, res.err))
			cached := s.lastGood[res.source]
			s.logger.Warn("source fetch failed",
				zap.String("source", res.source),
				zap.Int("cached_pools", len(cached)),
				zap.Error(res.err),
			)
			stale = append(stale, cached...)
			continue
		}
		s.metrics.fetches.WithLabelValues(res.source, "ok").Inc()
		s.lastGood[res.source] = res.pools
		fresh = append(fresh, res.pools...)
	}

	if len(errs) == len(results) {
		return false, fmt.Errorf("%w: %w", ErrSupplierFailure, errors.Join(errs...))
	}

	// Fresh pools go last so they win over cached copies of the same pool.
	merged := make([]model.Pool, 0, len(stale)+len(fresh))
	merged = append(merged, stale...)
	merged = append(merged, fresh...)
	s.updater.UpdatePools(merged)
	s.lastUpdate = start

	s.logger.Info("pools refreshed",
		zap.Int("fresh", len(fresh)),
		zap.Int("stale", len(stale)),
		zap.Int("failed_sources", len(errs)),
	)

	s.pushSinks(ctx)
	return true, nil
}

func (s *Supplier) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		i, src := i, src
		g.Go(func() error {
			pools, err := s.fetch(ctx, src)
			results[i] = fetchResult{source: src.Name(), pools: pools, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Supplier) fetch(ctx context.Context, src Source) ([]model.Pool, error) {
	var pools []model.Pool
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		if s.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()
		}
		got, err := src.FetchPools(ctx)
		if err != nil {
			return err
		}
		pools = got
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		s.logger.Debug("retry source fetch",
			zap.String("source", src.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})
	if err != nil {
		return nil, err
	}
	return pools, nil
}

func (s *Supplier) pushSinks(ctx context.Context) {
	if len(s.sinks) == 0 {
		return
	}
	pools := s.updater.Pools()
	for _, sink := range s.sinks {
		if err := sink.PutPoolBatch(ctx, pools); err != nil {
			s.metrics.sinkFailures.WithLabelValues(sink.Name()).Inc()
			s.logger.Warn("sink write failed", zap.String("sink", sink.Name()), zap.Error(err))
		}
	}
}
