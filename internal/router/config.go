package router

import (
	"fmt"
	"time"
)

const (
	DefaultMaxHops        = 3
	DefaultMaxVisits      = 100_000
	DefaultGasPerHop      = 150_000
	DefaultBaseConfidence = 95.0
)

// Config controls route search.
type Config struct {
	// MaxHops bounds the number of swaps in a route.
	MaxHops int
	// MaxVisits bounds the number of DFS node visits per search.
	MaxVisits int
	// SearchTimeout bounds wall-clock time per search. Zero disables it.
	SearchTimeout  time.Duration
	GasPerHop      uint64
	BaseConfidence float64
}

func (c Config) withDefaults() Config {
	if c.MaxHops <= 0 {
		c.MaxHops = DefaultMaxHops
	}
	if c.MaxVisits <= 0 {
		c.MaxVisits = DefaultMaxVisits
	}
	if c.GasPerHop == 0 {
		c.GasPerHop = DefaultGasPerHop
	}
	if c.BaseConfidence <= 0 {
		c.BaseConfidence = DefaultBaseConfidence
	}
	return c
}

// Validate rejects settings that withDefaults cannot repair.
func (c Config) Validate() error {
	if c.SearchTimeout < 0 {
		return fmt.Errorf("search timeout must not be negative")
	}
	if c.BaseConfidence > 100 {
		return fmt.Errorf("base confidence must be <= 100")
	}
	return nil
}
