package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Cart maps item id -> size label -> quantity. Quantities are always > 0.
type Cart map[string]map[string]int

// CartLine is one (item, size, quantity) entry of a cart.
type CartLine struct {
	ItemID   string `json:"item_id"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Lines returns the cart entries ordered by item id, then size.
func (c Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c))
	for itemID, sizes := range c {
		for size, qty := range sizes {
			if qty <= 0 {
				continue
			}
			lines = append(lines, CartLine{ItemID: itemID, Size: size, Quantity: qty})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ItemID != lines[j].ItemID {
			return lines[i].ItemID < lines[j].ItemID
		}
		return lines[i].Size < lines[j].Size
	})
	return lines
}

func (c Cart) Quantity(itemID, size string) int {
	return c[itemID][size]
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines()) == 0
}

// Normalize drops non-positive quantities and items left without sizes.
func (c Cart) Normalize() Cart {
	out := make(Cart, len(c))
	for itemID, sizes := range c {
		for size, qty := range sizes {
			if qty <= 0 {
				continue
			}
			if out[itemID] == nil {
				out[itemID] = make(map[string]int, len(sizes))
			}
			out[itemID][size] = qty
		}
	}
	return out
}

// Validate checks every key and quantity of a cart supplied by a client.
func (c Cart) Validate() error {
	for itemID, sizes := range c {
		for size, qty := range sizes {
			if err := ValidateCartKey(itemID, size); err != nil {
				return err
			}
			if qty < 0 {
				return fmt.Errorf("%w: quantity for %s/%s must not be negative", ErrInvalidInput, itemID, size)
			}
		}
	}
	return nil
}

// ValidateCartKey rejects item ids and sizes that cannot be stored as document field names.
func ValidateCartKey(itemID, size string) error {
	if err := validateKeyPart("item id", itemID); err != nil {
		return err
	}
	return validateKeyPart("size", size)
}

func validateKeyPart(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	if strings.Contains(v, ".") || strings.HasPrefix(v, "$") {
		return fmt.Errorf("%w: %s %q contains reserved characters", ErrInvalidInput, name, v)
	}
	return nil
}
