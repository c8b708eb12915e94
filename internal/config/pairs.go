package config

import (
	"fmt"
	"strconv"
	"strings"
)

const defaultPairFee = 0.003

// PairSpec is one on-chain pair to track, written as
// "exchange:address" or "exchange:address:fee".
type PairSpec struct {
	Exchange string
	Address  string
	Fee      float64
}

// ParsePairs parses pair specs. The fee defaults to 0.3%.
func ParsePairs(items []string) ([]PairSpec, error) {
	if len(items) == 0 {
		return nil, nil
	}
	specs := make([]PairSpec, 0, len(items))
	for _, item := range items {
		parts := strings.Split(item, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid pair %q: expected exchange:address[:fee]", item)
		}
		spec := PairSpec{
			Exchange: strings.TrimSpace(parts[0]),
			Address:  strings.TrimSpace(parts[1]),
			Fee:      defaultPairFee,
		}
		if spec.Exchange == "" || spec.Address == "" {
			return nil, fmt.Errorf("invalid pair %q: exchange and address are required", item)
		}
		if len(parts) == 3 {
			fee, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid pair fee %q: %w", item, err)
			}
			if fee < 0 || fee >= 1 {
				return nil, fmt.Errorf("invalid pair fee %q: must be in [0,1)", item)
			}
			spec.Fee = fee
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
