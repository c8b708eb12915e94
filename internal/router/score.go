package router

import (
	"math"

	"routeScope/internal/model"
)

const (
	liquidityWeight = 0.4
	gasWeight       = 0.3
	slippageWeight  = 0.3

	// minSlippage keeps 1/slippage finite for very deep pools.
	minSlippage = 1e-12

	// hopConfidencePenalty is subtracted from confidence for every hop after the first.
	hopConfidencePenalty = 5.0
)

// candidate is a fully evaluated path.
type candidate struct {
	path      []string
	hops      []model.Hop
	output    float64
	liquidity float64
	slippage  float64
	score     float64
}

// evaluate walks the hops of a path, applying price and fee sequentially and
// accumulating price impact against each pool's liquidity. Impact is measured
// on the hop input valued in quote units so both directions of a pool agree.
func evaluate(pools []model.Pool, path []string, edges []edge, amount float64) candidate {
	hops := make([]model.Hop, 0, len(edges))
	current := amount
	retained := 1.0
	bottleneck := math.Inf(1)

	for i, e := range edges {
		pool := pools[e.pool]

		retained *= 1 - priceImpact(quoteValue(current, pool.Price, e.forward), pool.Liquidity)
		if pool.Liquidity < bottleneck {
			bottleneck = pool.Liquidity
		}

		out := current
		if e.forward {
			out *= pool.Price
		} else {
			out /= pool.Price
		}
		out *= 1 - pool.Fee

		hops = append(hops, model.Hop{
			Exchange:  pool.Exchange,
			Address:   pool.Address,
			Pair:      pool.Pair,
			TokenIn:   path[i],
			TokenOut:  path[i+1],
			AmountIn:  current,
			AmountOut: out,
			Fee:       pool.Fee,
		})
		current = out
	}

	slippage := 1 - retained
	if slippage < minSlippage {
		slippage = minSlippage
	}

	c := candidate{
		path:      append([]string(nil), path...),
		hops:      hops,
		output:    current,
		liquidity: bottleneck,
		slippage:  slippage,
	}
	c.score = score(bottleneck, len(edges), slippage)
	return c
}

// quoteValue prices a hop input in the pool's quote token, the unit its
// liquidity is stated in.
func quoteValue(amount, price float64, forward bool) float64 {
	if forward {
		return amount * price
	}
	return amount
}

// finite reports whether every number a Route carries is representable.
func (c candidate) finite() bool {
	for _, v := range []float64{c.output, c.slippage, c.score} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// priceImpact is the fraction of the pool consumed by a trade of size amount.
// An empty pool absorbs nothing and yields full impact.
func priceImpact(amount, liquidity float64) float64 {
	if liquidity <= 0 {
		return 1
	}
	return amount / (liquidity + amount)
}

// score blends bottleneck liquidity, hop count, and slippage. Gas enters in
// per-hop units since estimated gas is linear in hops.
func score(liquidity float64, hops int, slippage float64) float64 {
	liquidityScore := math.Log10(1 + liquidity)
	gasUnits := float64(hops)
	return liquidityScore*liquidityWeight + (1/gasUnits)*gasWeight + (1/slippage)*slippageWeight
}

func confidence(base, slippage float64, hops int) float64 {
	c := base*(1-slippage) - hopConfidencePenalty*float64(hops-1)
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
