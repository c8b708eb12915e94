package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"routeScope/internal/model"
)

// ctxCheckInterval is how many visits pass between context checks.
const ctxCheckInterval = 1024

// Stats summarizes the current pool snapshot.
type Stats struct {
	Pools     int      `json:"pools"`
	Tokens    int      `json:"tokens"`
	Exchanges []string `json:"exchanges"`
}

// RouteFinder finds the best multi-hop swap route over a pool snapshot.
// FindBestRoute is lock-free; UpdatePools serializes writers and publishes a
// new snapshot atomically.
type RouteFinder struct {
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// New builds a RouteFinder with an empty pool index.
func New(cfg Config, logger *zap.Logger, reg prometheus.Registerer) *RouteFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &RouteFinder{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: NewMetrics(reg),
	}
	f.snap.Store(emptySnapshot())
	return f
}

// Config returns the effective configuration.
func (f *RouteFinder) Config() Config {
	return f.cfg
}

// UpdatePools merges pools into the index by (exchange, address). A pool seen
// before is replaced and keeps its enumeration position. Invalid pools are
// skipped. An empty update leaves the index untouched.
func (f *RouteFinder) UpdatePools(pools []model.Pool) {
	if len(pools) == 0 {
		return
	}

	valid := make([]model.Pool, 0, len(pools))
	for _, pool := range pools {
		if err := pool.Validate(); err != nil {
			f.metrics.rejectedPools.Inc()
			f.logger.Warn("skip invalid pool",
				zap.String("exchange", pool.Exchange),
				zap.String("address", pool.Address),
				zap.String("pair", pool.Pair),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, pool)
	}
	if len(valid) == 0 {
		return
	}

	f.mu.Lock()
	next := f.snap.Load().merge(valid)
	f.snap.Store(next)
	f.mu.Unlock()

	f.metrics.pools.Set(float64(len(next.pools)))
	f.logger.Debug("pools updated", zap.Int("received", len(pools)), zap.Int("merged", len(valid)), zap.Int("total", len(next.pools)))
}

// Pools returns a copy of the current snapshot in enumeration order.
func (f *RouteFinder) Pools() []model.Pool {
	snap := f.snap.Load()
	return append([]model.Pool(nil), snap.pools...)
}

// Stats describes the current snapshot.
func (f *RouteFinder) Stats() Stats {
	snap := f.snap.Load()
	return Stats{
		Pools:     len(snap.pools),
		Tokens:    len(snap.adjacency),
		Exchanges: append([]string(nil), snap.exchanges...),
	}
}

// FindBestRoute returns the highest scoring route from tokenIn to tokenOut for
// the given input amount.
func (f *RouteFinder) FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amount float64) (model.Route, error) {
	start := time.Now()
	route, visits, err := f.findBestRoute(ctx, tokenIn, tokenOut, amount)
	f.metrics.searchDuration.Observe(time.Since(start).Seconds())
	f.metrics.searchVisits.Observe(float64(visits))
	f.metrics.searches.WithLabelValues(outcome(route, err)).Inc()
	return route, err
}

func (f *RouteFinder) findBestRoute(ctx context.Context, tokenIn, tokenOut string, amount float64) (model.Route, int, error) {
	tokenIn = strings.TrimSpace(tokenIn)
	tokenOut = strings.TrimSpace(tokenOut)
	if err := validateRequest(tokenIn, tokenOut, amount); err != nil {
		return model.Route{}, 0, err
	}

	if f.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.SearchTimeout)
		defer cancel()
	}

	s := &search{
		ctx:       ctx,
		snap:      f.snap.Load(),
		tokenOut:  tokenOut,
		amount:    amount,
		maxHops:   f.cfg.MaxHops,
		maxVisits: f.cfg.MaxVisits,
		path:      make([]string, 1, f.cfg.MaxHops+1),
		edges:     make([]edge, 0, f.cfg.MaxHops),
	}
	s.path[0] = tokenIn
	if ctx.Err() != nil {
		s.aborted = true
	} else {
		s.visit(tokenIn)
	}

	if s.best == nil {
		if s.overflows > 0 {
			return model.Route{}, s.visits, fmt.Errorf("%w: amount %v overflows route output %s -> %s", ErrInvalidRequest, amount, tokenIn, tokenOut)
		}
		if s.aborted {
			f.logger.Debug("route search aborted",
				zap.String("token_in", tokenIn),
				zap.String("token_out", tokenOut),
				zap.Int("visits", s.visits),
			)
			return model.Route{}, s.visits, fmt.Errorf("%w: %s -> %s after %d visits", ErrSearchAborted, tokenIn, tokenOut, s.visits)
		}
		return model.Route{}, s.visits, fmt.Errorf("%w: %s -> %s within %d hops", ErrNoRouteFound, tokenIn, tokenOut, f.cfg.MaxHops)
	}

	best := s.best
	hopCount := len(best.hops)
	return model.Route{
		Path:           best.path,
		Hops:           best.hops,
		ExpectedOutput: best.output,
		EstimatedGas:   f.cfg.GasPerHop * uint64(hopCount),
		Confidence:     confidence(f.cfg.BaseConfidence, best.slippage, hopCount),
		Slippage:       best.slippage,
		Score:          best.score,
		Candidates:     s.candidates,
		Partial:        s.aborted,
	}, s.visits, nil
}

func validateRequest(tokenIn, tokenOut string, amount float64) error {
	if tokenIn == "" || tokenOut == "" {
		return fmt.Errorf("%w: token in and token out are required", ErrInvalidRequest)
	}
	if tokenIn == tokenOut {
		return fmt.Errorf("%w: token in and token out are both %s", ErrInvalidRequest, tokenIn)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidRequest, amount)
	}
	return nil
}

func outcome(route model.Route, err error) string {
	switch {
	case err == nil && route.Partial:
		return outcomePartial
	case err == nil:
		return outcomeFound
	case errors.Is(err, ErrInvalidRequest):
		return outcomeInvalid
	case errors.Is(err, ErrSearchAborted):
		return outcomeAborted
	default:
		return outcomeNoRoute
	}
}

// search is the state of one depth-bounded DFS.
type search struct {
	ctx       context.Context
	snap      *snapshot
	tokenOut  string
	amount    float64
	maxHops   int
	maxVisits int

	path  []string
	edges []edge

	visits     int
	aborted    bool
	candidates int
	overflows  int
	best       *candidate
}

func (s *search) visit(token string) {
	if s.aborted {
		return
	}
	s.visits++
	if s.visits > s.maxVisits {
		s.aborted = true
		return
	}
	if s.visits%ctxCheckInterval == 0 && s.ctx.Err() != nil {
		s.aborted = true
		return
	}

	if token == s.tokenOut {
		s.emit()
		return
	}
	if len(s.edges) >= s.maxHops {
		return
	}

	for _, e := range s.snap.adjacency[token] {
		if s.onPath(e.to) {
			continue
		}
		s.path = append(s.path, e.to)
		s.edges = append(s.edges, e)
		s.visit(e.to)
		s.path = s.path[:len(s.path)-1]
		s.edges = s.edges[:len(s.edges)-1]
		if s.aborted {
			return
		}
	}
}

func (s *search) onPath(token string) bool {
	for _, t := range s.path {
		if t == token {
			return true
		}
	}
	return false
}

// emit scores the current path. Only a strictly better score replaces the
// incumbent, so ties keep the path discovered first. Paths whose output or
// score is not finite are dropped.
func (s *search) emit() {
	s.candidates++
	c := evaluate(s.snap.pools, s.path, s.edges, s.amount)
	if !c.finite() {
		s.overflows++
		return
	}
	if s.best == nil || c.score > s.best.score {
		s.best = &c
	}
}
