package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/logger"
	"github.com/mikbell/forever/internal/payment"
	"github.com/mikbell/forever/internal/repository"
	"go.uber.org/zap"
)

// Outcome describes what a verified webhook delivery did. Every outcome is acknowledged.
type Outcome string

const (
	OutcomeConfirmed     Outcome = "confirmed"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeReplay        Outcome = "replay"
	OutcomeOrderNotFound Outcome = "order_not_found"
	OutcomeFailed        Outcome = "failed"
)

type WebhookReconciler struct {
	verifier payment.Verifier
	orders   repository.OrderRepository
	carts    Carts
	deadline time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewWebhookReconciler(verifier payment.Verifier, orders repository.OrderRepository, carts Carts,
	deadline time.Duration, logger *zap.Logger) *WebhookReconciler {
	return &WebhookReconciler{
		verifier: verifier,
		orders:   orders,
		carts:    carts,
		deadline: deadline,
		now:      time.Now,
		logger:   logger,
	}
}

// HandleEvent verifies payload against signature before anything else. The only error it
// returns wraps domain.ErrSignatureInvalid; after verification every outcome is an ack.
func (r *WebhookReconciler) HandleEvent(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := r.verifier.Verify(payload, signature)
	if err != nil {
		logger.WithContext(ctx, r.logger).Warn("webhook rejected", zap.Error(err))
		return "", err
	}

	log := logger.WithContext(ctx, r.logger).With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))

	if event.Type != payment.EventCheckoutCompleted {
		log.Debug("webhook event ignored")
		return OutcomeIgnored, nil
	}

	log = log.With(zap.String("order_id", event.OrderID), zap.String("session_id", event.SessionID))

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		log.Error("checkout completed without a valid order reference, needs manual reconciliation")
		return OutcomeOrderNotFound, nil
	}

	order, err := r.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Error("payment confirmed for unknown order, needs manual reconciliation")
		return OutcomeOrderNotFound, nil
	}
	if err != nil {
		log.Error("loading order for payment confirmation failed", zap.Error(err))
		return OutcomeFailed, nil
	}

	now := r.now()
	if order.IsExpired(now, r.deadline) {
		log.Error("payment confirmed after order expired, needs manual reconciliation",
			zap.Time("created_at", order.CreatedAt))
		return OutcomeOrderNotFound, nil
	}
	if order.Status != domain.OrderStatusAwaitingPayment {
		log.Info("duplicate payment confirmation ignored", zap.String("status", order.Status.String()))
		return OutcomeReplay, nil
	}

	if err := order.ConfirmPayment(now); err != nil {
		log.Warn("payment confirmation rejected", zap.Error(err))
		return OutcomeReplay, nil
	}
	outbox, err := newOutboxEvent(domain.EventOrderPaid, order, now)
	if err != nil {
		log.Error("building order.paid event failed", zap.Error(err))
		return OutcomeFailed, nil
	}

	err = r.orders.ConfirmPayment(ctx, order.ID, domain.ExpiryCutoff(now, r.deadline), now, outbox)
	if errors.Is(err, repository.ErrStatusConflict) {
		log.Info("payment confirmation lost race, treated as replay")
		return OutcomeReplay, nil
	}
	if err != nil {
		log.Error("persisting payment confirmation failed", zap.Error(err))
		return OutcomeFailed, nil
	}

	log.Info("payment confirmed", zap.String("account_id", order.AccountID))
	if err := r.carts.ClearCart(context.WithoutCancel(ctx), order.AccountID); err != nil {
		log.Error("cart clear after payment failed, left to event retry",
			zap.String("account_id", order.AccountID), zap.Error(err))
	}
	return OutcomeConfirmed, nil
}
