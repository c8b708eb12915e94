package model

import (
	"fmt"
	"math"
	"strings"
)

// PairSeparator splits the two tokens of a pool pair, e.g. "ETH/USDC".
const PairSeparator = "/"

// Pool is a single tradable liquidity venue as reported by a pool source.
type Pool struct {
	Exchange  string  `json:"exchange" yaml:"exchange"`
	Pair      string  `json:"pair" yaml:"pair"`
	Liquidity float64 `json:"liquidity" yaml:"liquidity"`
	Volume24h float64 `json:"volume24h" yaml:"volume24h"`
	Price     float64 `json:"price" yaml:"price"`
	Fee       float64 `json:"fee" yaml:"fee"`
	Address   string  `json:"address" yaml:"address"`
}

// Key returns the pool identity. Address comparison is case-insensitive.
func (p Pool) Key() string {
	return p.Exchange + "|" + strings.ToLower(strings.TrimSpace(p.Address))
}

// Tokens returns the base and quote token of the pair.
func (p Pool) Tokens() (string, string, error) {
	parts := strings.Split(p.Pair, PairSeparator)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid pair %q", p.Pair)
	}
	base := strings.TrimSpace(parts[0])
	quote := strings.TrimSpace(parts[1])
	if base == "" || quote == "" {
		return "", "", fmt.Errorf("invalid pair %q", p.Pair)
	}
	if base == quote {
		return "", "", fmt.Errorf("pair %q trades a token against itself", p.Pair)
	}
	return base, quote, nil
}

// Validate checks that a pool can take part in routing.
func (p Pool) Validate() error {
	if strings.TrimSpace(p.Exchange) == "" {
		return fmt.Errorf("exchange is required")
	}
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if _, _, err := p.Tokens(); err != nil {
		return err
	}
	if !isFinite(p.Price) || p.Price <= 0 {
		return fmt.Errorf("price must be positive: %v", p.Price)
	}
	if !isFinite(p.Liquidity) || p.Liquidity < 0 {
		return fmt.Errorf("liquidity must be non-negative: %v", p.Liquidity)
	}
	if !isFinite(p.Volume24h) || p.Volume24h < 0 {
		return fmt.Errorf("volume24h must be non-negative: %v", p.Volume24h)
	}
	if !isFinite(p.Fee) || p.Fee < 0 || p.Fee >= 1 {
		return fmt.Errorf("fee must be in [0, 1): %v", p.Fee)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
