// Package onchain reads constant-product pair reserves over JSON-RPC and
// turns them into router pools.
package onchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"routeScope/internal/model"
)

// PairConfig names one pair contract to track.
type PairConfig struct {
	Exchange string
	Address  string
	Fee      float64
}

type pairTokens struct {
	token0 TokenMeta
	token1 TokenMeta
}

// PairSource prices UniswapV2-style pairs from their reserves. Token
// addresses and ERC20 metadata are immutable and cached after the first read.
type PairSource struct {
	caller Caller
	pairs  []PairConfig
	tokens *TokenMetaCache
	logger *zap.Logger

	mu        sync.RWMutex
	pairCache map[common.Address]pairTokens
}

func NewPairSource(caller Caller, pairs []PairConfig, logger *zap.Logger) (*PairSource, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller is nil")
	}
	for _, pair := range pairs {
		if !common.IsHexAddress(pair.Address) {
			return nil, fmt.Errorf("invalid pair address %q", pair.Address)
		}
		if strings.TrimSpace(pair.Exchange) == "" {
			return nil, fmt.Errorf("pair %s has no exchange", pair.Address)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairSource{
		caller:    caller,
		pairs:     pairs,
		tokens:    NewTokenMetaCache(),
		logger:    logger,
		pairCache: make(map[common.Address]pairTokens),
	}, nil
}

func (s *PairSource) Name() string {
	return "onchain"
}

// FetchPools reads every configured pair. A pair that fails is skipped; the
// fetch fails only when no pair could be read.
func (s *PairSource) FetchPools(ctx context.Context) ([]model.Pool, error) {
	pools := make([]model.Pool, 0, len(s.pairs))
	var errs []error
	for _, cfg := range s.pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pool, err := s.fetchPair(ctx, cfg)
		if err != nil {
			s.logger.Warn("pair fetch failed", zap.String("exchange", cfg.Exchange), zap.String("pair", cfg.Address), zap.Error(err))
			errs = append(errs, fmt.Errorf("pair %s: %w", cfg.Address, err))
			continue
		}
		pools = append(pools, pool)
	}
	if len(pools) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return pools, nil
}

func (s *PairSource) fetchPair(ctx context.Context, cfg PairConfig) (model.Pool, error) {
	address := common.HexToAddress(cfg.Address)
	tokens, err := s.pairTokens(ctx, address)
	if err != nil {
		return model.Pool{}, err
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return model.Pool{}, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := call(ctx, s.caller, address, pairABI, "getReserves")
	if err != nil {
		return model.Pool{}, err
	}
	if len(values) < 2 {
		return model.Pool{}, fmt.Errorf("getReserves returned %d values", len(values))
	}
	raw0, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve0: %w", err)
	}
	raw1, err := asBigInt(values[1])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve1: %w", err)
	}

	reserve0 := scaleAmount(raw0, tokens.token0.Decimals)
	reserve1 := scaleAmount(raw1, tokens.token1.Decimals)
	if reserve0 <= 0 || reserve1 <= 0 {
		return model.Pool{}, fmt.Errorf("pair has empty reserves")
	}

	return model.Pool{
		Exchange:  cfg.Exchange,
		Pair:      tokens.token0.Label() + model.PairSeparator + tokens.token1.Label(),
		Liquidity: 2 * reserve1,
		Price:     reserve1 / reserve0,
		Fee:       cfg.Fee,
		Address:   address.Hex(),
	}, nil
}

func (s *PairSource) pairTokens(ctx context.Context, pair common.Address) (pairTokens, error) {
	s.mu.RLock()
	cached, ok := s.pairCache[pair]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return pairTokens{}, fmt.Errorf("parse pair abi: %w", err)
	}

	var addrs [2]common.Address
	for i, method := range []string{"token0", "token1"} {
		values, err := call(ctx, s.caller, pair, pairABI, method)
		if err != nil {
			return pairTokens{}, err
		}
		addrs[i], err = asAddress(values[0])
		if err != nil {
			return pairTokens{}, fmt.Errorf("%s: %w", method, err)
		}
	}

	token0, err := s.tokenMeta(ctx, addrs[0])
	if err != nil {
		return pairTokens{}, fmt.Errorf("token0 metadata: %w", err)
	}
	token1, err := s.tokenMeta(ctx, addrs[1])
	if err != nil {
		return pairTokens{}, fmt.Errorf("token1 metadata: %w", err)
	}

	result := pairTokens{token0: token0, token1: token1}
	s.mu.Lock()
	s.pairCache[pair] = result
	s.mu.Unlock()
	return result, nil
}

func (s *PairSource) tokenMeta(ctx context.Context, token common.Address) (TokenMeta, error) {
	if meta, ok := s.tokens.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, s.caller, token, s.logger)
	if err != nil {
		return TokenMeta{}, err
	}
	s.tokens.Set(token, meta)
	return meta, nil
}
