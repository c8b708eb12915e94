// Package storage persists pool inventories.
package storage

import (
	"context"

	"routeScope/internal/model"
)

// Store is a pool inventory backend that can both seed the router and
// receive the merged inventory after each refresh.
type Store interface {
	Name() string
	FetchPools(ctx context.Context) ([]model.Pool, error)
	PutPoolBatch(ctx context.Context, pools []model.Pool) error
	Close() error
}
