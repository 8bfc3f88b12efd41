package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikbell/forever/internal/cache"
	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/logger"
	"github.com/mikbell/forever/internal/pricing"
	"github.com/mikbell/forever/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheOpTimeout = time.Second

type CartService struct {
	repo           repository.CartRepository
	cache          cache.CartCache
	catalog        pricing.Catalog
	deliveryCharge decimal.Decimal
	logger         *zap.Logger
	sfg            singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, catalog pricing.Catalog,
	deliveryCharge decimal.Decimal, logger *zap.Logger) *CartService {
	return &CartService{
		repo:           repo,
		cache:          cache,
		catalog:        catalog,
		deliveryCharge: deliveryCharge,
		logger:         logger,
	}
}

// CartPreview is the cart as the owner sees it before checkout.
type CartPreview struct {
	Cart           domain.Cart
	Lines          []domain.LineItem
	Unavailable    []domain.CartLine
	Subtotal       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

// GetCart reads through the cache. An account without a cart document has an empty cart.
func (s *CartService) GetCart(ctx context.Context, accountID string) (domain.Cart, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}

	v, err, _ := s.sfg.Do(accountID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, accountID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithContext(ctx, s.logger).Warn("cache get error",
				zap.String("account_id", accountID), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, accountID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.Cart{}, nil
		}
		if err != nil {
			return nil, err
		}

		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
		defer cancel()
		if err := s.cache.Set(setCtx, accountID, cart); err != nil {
			logger.WithContext(ctx, s.logger).Warn("cache set error",
				zap.String("account_id", accountID), zap.Error(err))
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.Cart), nil
}

// ReadCart reads the stored cart without going through the cache.
func (s *CartService) ReadCart(ctx context.Context, accountID string) (domain.Cart, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}
	cart, err := s.repo.GetCart(ctx, accountID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem increments (item, size) by delta.
func (s *CartService) AddItem(ctx context.Context, accountID, itemID, size string, delta int) error {
	if err := validateCartCall(accountID, itemID, size); err != nil {
		return err
	}
	if delta <= 0 {
		return fmt.Errorf("%w: quantity to add must be positive", domain.ErrInvalidInput)
	}

	if err := s.repo.AddItem(ctx, accountID, itemID, size, delta); err != nil {
		return err
	}
	s.invalidateCache(ctx, accountID)
	return nil
}

func (s *CartService) SetQuantity(ctx context.Context, accountID, itemID, size string, quantity int) error {
	if err := validateCartCall(accountID, itemID, size); err != nil {
		return err
	}
	if quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", domain.ErrInvalidInput)
	}

	if err := s.repo.SetQuantity(ctx, accountID, itemID, size, quantity); err != nil {
		return err
	}
	s.invalidateCache(ctx, accountID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, accountID, itemID, size string) error {
	if err := validateCartCall(accountID, itemID, size); err != nil {
		return err
	}

	if err := s.repo.RemoveItem(ctx, accountID, itemID, size); err != nil {
		return err
	}
	s.invalidateCache(ctx, accountID)
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}

	if err := s.repo.ClearCart(ctx, accountID); err != nil {
		return err
	}
	s.invalidateCache(ctx, accountID)
	return nil
}

// ClearCartIfUnchangedSince clears only if the cart was not touched after since.
func (s *CartService) ClearCartIfUnchangedSince(ctx context.Context, accountID string, since time.Time) (bool, error) {
	cleared, err := s.repo.ClearCartIfUnchangedSince(ctx, accountID, since)
	if err != nil {
		return false, err
	}
	if cleared {
		s.invalidateCache(ctx, accountID)
	}
	return cleared, nil
}

// ReplaceCart overwrites the stored cart. Zero quantities are dropped.
func (s *CartService) ReplaceCart(ctx context.Context, accountID string, cart domain.Cart) error {
	if accountID == "" {
		return fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}
	if err := cart.Validate(); err != nil {
		return err
	}

	if err := s.repo.ReplaceCart(ctx, accountID, cart); err != nil {
		return err
	}
	s.invalidateCache(ctx, accountID)
	return nil
}

// MergeCart adds every quantity of cart onto the stored one.
func (s *CartService) MergeCart(ctx context.Context, accountID string, cart domain.Cart) error {
	if accountID == "" {
		return fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}
	if err := cart.Validate(); err != nil {
		return err
	}

	if err := s.repo.MergeCart(ctx, accountID, cart); err != nil {
		return err
	}
	s.invalidateCache(ctx, accountID)
	return nil
}

// Preview prices the cart. Delivery is only charged on a non-empty priced cart.
func (s *CartService) Preview(ctx context.Context, accountID string) (*CartPreview, error) {
	cart, err := s.GetCart(ctx, accountID)
	if err != nil {
		return nil, err
	}

	priced, err := pricing.Price(ctx, cart, s.catalog)
	if err != nil {
		return nil, err
	}

	preview := &CartPreview{
		Cart:           cart,
		Lines:          priced.Lines,
		Unavailable:    priced.Dropped,
		Subtotal:       priced.Subtotal,
		DeliveryCharge: decimal.Zero,
		Total:          priced.Subtotal,
	}
	if len(priced.Lines) > 0 {
		preview.DeliveryCharge = s.deliveryCharge
		preview.Total = priced.Subtotal.Add(s.deliveryCharge)
	}
	return preview, nil
}

func (s *CartService) invalidateCache(ctx context.Context, accountID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, accountID); err != nil {
		logger.WithContext(ctx, s.logger).Warn("cache invalidate error",
			zap.String("account_id", accountID), zap.Error(err))
	}
}

func validateCartCall(accountID, itemID, size string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}
	return domain.ValidateCartKey(itemID, size)
}
