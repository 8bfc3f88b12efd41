// Package pricing turns a cart snapshot into priced line items.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikbell/forever/internal/domain"
	"github.com/shopspring/decimal"
)

// Catalog is the lookup the resolver needs from the product catalog.
type Catalog interface {
	Lookup(ctx context.Context, itemID string) (*domain.Product, error)
}

type PricedCart struct {
	Lines    []domain.LineItem
	Subtotal decimal.Decimal
	// Dropped lines reference items the catalog no longer has.
	Dropped []domain.CartLine
}

// Price resolves every cart line against the catalog. Lines whose item is gone are
// skipped and reported in Dropped; any other lookup failure aborts.
func Price(ctx context.Context, cart domain.Cart, catalog Catalog) (*PricedCart, error) {
	priced := &PricedCart{
		Lines:    make([]domain.LineItem, 0),
		Subtotal: decimal.Zero,
		Dropped:  make([]domain.CartLine, 0),
	}

	products := make(map[string]*domain.Product)
	missing := make(map[string]bool)

	for _, line := range cart.Lines() {
		if missing[line.ItemID] {
			priced.Dropped = append(priced.Dropped, line)
			continue
		}

		product, ok := products[line.ItemID]
		if !ok {
			p, err := catalog.Lookup(ctx, line.ItemID)
			if errors.Is(err, domain.ErrNotFound) {
				missing[line.ItemID] = true
				priced.Dropped = append(priced.Dropped, line)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("lookup %s: %w", line.ItemID, err)
			}
			products[line.ItemID] = p
			product = p
		}

		item := domain.LineItem{
			ItemID:    line.ItemID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Size:      line.Size,
			Quantity:  line.Quantity,
		}
		priced.Lines = append(priced.Lines, item)
		priced.Subtotal = priced.Subtotal.Add(item.Amount())
	}

	return priced, nil
}
