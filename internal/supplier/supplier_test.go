package supplier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeScope/internal/model"
	"routeScope/internal/router"
)

type fakeSource struct {
	name string

	mu    sync.Mutex
	calls int
	pools []model.Pool
	errs  []error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchPools(ctx context.Context) ([]model.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return append([]model.Pool(nil), f.pools...), nil
}

func (f *fakeSource) set(pools []model.Pool, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools = pools
	f.errs = errs
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSink struct {
	err     error
	batches [][]model.Pool
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) PutPoolBatch(ctx context.Context, pools []model.Pool) error {
	f.batches = append(f.batches, pools)
	return f.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func testPool(exchange, pair, address string, liquidity float64) model.Pool {
	return model.Pool{
		Exchange:  exchange,
		Pair:      pair,
		Liquidity: liquidity,
		Price:     2000,
		Fee:       0.003,
		Address:   address,
	}
}

func newTestSupplier(t *testing.T, cfg Config, sources []Source, sinks []Sink) (*Supplier, *router.RouteFinder, *clock) {
	t.Helper()
	finder := router.New(router.Config{}, nil, nil)
	s, err := New(cfg, finder, sources, sinks, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, finder, c
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{}, nil, []Source{&fakeSource{name: "a"}}, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{}, router.New(router.Config{}, nil, nil), nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestRefreshMergesSourcesAndWritesSinks(t *testing.T) {
	a := &fakeSource{name: "a", pools: []model.Pool{testPool("A", "ETH/USDC", "p1", 1_000_000)}}
	b := &fakeSource{name: "b", pools: []model.Pool{testPool("B", "ETH/USDT", "p2", 2_000_000)}}
	sink := &fakeSink{}
	s, finder, _ := newTestSupplier(t, Config{}, []Source{a, b}, []Sink{sink})

	updated, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Len(t, finder.Pools(), 2)

	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 2)
}

func TestRefreshDebounce(t *testing.T) {
	a := &fakeSource{name: "a", pools: []model.Pool{testPool("A", "ETH/USDC", "p1", 1_000_000)}}
	s, _, c := newTestSupplier(t, Config{Interval: time.Minute}, []Source{a}, nil)
	ctx := context.Background()

	updated, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, updated)

	c.t = c.t.Add(30 * time.Second)
	updated, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, 1, a.callCount())

	updated, err = s.ForceRefresh(ctx)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 2, a.callCount())

	c.t = c.t.Add(time.Minute)
	updated, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 3, a.callCount())
}

func TestRefreshKeepsPoolsWhenSourceFails(t *testing.T) {
	a := &fakeSource{name: "a", pools: []model.Pool{testPool("A", "ETH/USDC", "p1", 1_000_000)}}
	b := &fakeSource{name: "b", pools: []model.Pool{testPool("B", "USDC/DAI", "p2", 1_000_000)}}
	s, finder, c := newTestSupplier(t, Config{MaxRetries: 0, RetryBackoff: time.Millisecond}, []Source{a, b}, nil)
	ctx := context.Background()

	_, err := s.Refresh(ctx)
	require.NoError(t, err)

	a.set(nil, errors.New("rpc down"))
	b.set([]model.Pool{testPool("B", "USDC/DAI", "p2", 5_000_000)})
	c.t = c.t.Add(time.Hour)

	updated, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, updated)

	pools := finder.Pools()
	require.Len(t, pools, 2)
	assert.Equal(t, "p1", pools[0].Address)
	assert.Equal(t, 5_000_000.0, pools[1].Liquidity)

	route, err := finder.FindBestRoute(ctx, "ETH", "DAI", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH", "USDC", "DAI"}, route.Path)
}

func TestRefreshAllSourcesFail(t *testing.T) {
	rpcErr := errors.New("rpc down")
	a := &fakeSource{name: "a", errs: []error{rpcErr}}
	b := &fakeSource{name: "b", errs: []error{errors.New("timeout")}}
	s, finder, _ := newTestSupplier(t, Config{MaxRetries: 0, RetryBackoff: time.Millisecond}, []Source{a, b}, nil)

	updated, err := s.Refresh(context.Background())
	assert.False(t, updated)
	assert.ErrorIs(t, err, ErrSupplierFailure)
	assert.ErrorIs(t, err, rpcErr)
	assert.Empty(t, finder.Pools())
}

func TestRefreshRetriesSource(t *testing.T) {
	a := &fakeSource{name: "a", pools: []model.Pool{testPool("A", "ETH/USDC", "p1", 1_000_000)}}
	a.set(a.pools, errors.New("flaky"), errors.New("flaky"))
	s, finder, _ := newTestSupplier(t, Config{MaxRetries: 2, RetryBackoff: time.Millisecond}, []Source{a}, nil)

	updated, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 3, a.callCount())
	assert.Len(t, finder.Pools(), 1)
}

func TestRefreshSinkFailureIsNotFatal(t *testing.T) {
	a := &fakeSource{name: "a", pools: []model.Pool{testPool("A", "ETH/USDC", "p1", 1_000_000)}}
	sink := &fakeSink{err: errors.New("disk full")}
	s, _, _ := newTestSupplier(t, Config{}, []Source{a}, []Sink{sink})

	updated, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Len(t, sink.batches, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	a := &fakeSource{name: "a", pools: []model.Pool{testPool("A", "ETH/USDC", "p1", 1_000_000)}}
	s, finder, _ := newTestSupplier(t, Config{Interval: time.Hour}, []Source{a}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(finder.Pools()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestWithRetryStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
