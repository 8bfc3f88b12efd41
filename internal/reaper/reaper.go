// Package reaper physically removes unpaid orders past the payment deadline.
//
// Expiry itself is decided on read: an unpaid order is treated as gone from the moment
// its deadline passes, whether or not the reaper has run yet.
package reaper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mikbell/forever/internal/domain"
	"go.uber.org/zap"
)

type ExpiredOrderDeleter interface {
	DeleteExpired(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error)
}

type Reaper struct {
	orders   ExpiredOrderDeleter
	deadline time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(orders ExpiredOrderDeleter, deadline, interval time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		orders:   orders,
		deadline: deadline,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep deletes every unpaid order created at or before now minus the deadline.
func (r *Reaper) Sweep(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := domain.ExpiryCutoff(r.now(), r.deadline)
	ids, err := r.orders.DeleteExpired(ctx, cutoff)
	if err != nil {
		r.logger.Error("expired order sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return nil, err
	}
	for _, id := range ids {
		r.logger.Info("expired unpaid order removed", zap.String("order_id", id.String()))
	}
	return ids, nil
}
