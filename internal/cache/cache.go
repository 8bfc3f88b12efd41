package cache

import (
	"context"
	"errors"

	"github.com/mikbell/forever/internal/domain"
)

// CartCache is a read-through copy of the authoritative cart. It is never written to directly
// by a mutation; mutations delete the entry instead.
type CartCache interface {
	Get(ctx context.Context, accountID string) (domain.Cart, error)
	Set(ctx context.Context, accountID string, cart domain.Cart) error
	Delete(ctx context.Context, accountID string) error
}

var ErrCacheMiss = errors.New("cache miss")
