package http

import (
	"context"
	"net/http"

	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/service"
	"go.uber.org/zap"
)

type CartService interface {
	Preview(ctx context.Context, accountID string) (*service.CartPreview, error)
	AddItem(ctx context.Context, accountID, itemID, size string, delta int) error
	SetQuantity(ctx context.Context, accountID, itemID, size string, quantity int) error
	RemoveItem(ctx context.Context, accountID, itemID, size string) error
	ClearCart(ctx context.Context, accountID string) error
	ReplaceCart(ctx context.Context, accountID string, cart domain.Cart) error
	MergeCart(ctx context.Context, accountID string, cart domain.Cart) error
}

type CartHandler struct {
	carts  CartService
	logger *zap.Logger
}

func NewCartHandler(carts CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

type CartItemRequestDTO struct {
	ItemID string `json:"itemId"`
	Size   string `json:"size"`
	// Quantity is optional on add and defaults to one.
	Quantity *int `json:"quantity,omitempty"`
}

type CartBodyDTO struct {
	Cart domain.Cart `json:"cart"`
}

type CartLineDTO struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Amount    string `json:"amount"`
}

type UnavailableLineDTO struct {
	ItemID   string `json:"itemId"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type CartResponseDTO struct {
	Cart           domain.Cart          `json:"cart"`
	Lines          []CartLineDTO        `json:"lines"`
	Unavailable    []UnavailableLineDTO `json:"unavailable"`
	Subtotal       string               `json:"subtotal"`
	DeliveryCharge string               `json:"deliveryCharge"`
	Total          string               `json:"total"`
}

// GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondPreview(w, r, getAccountIDFromContext(r.Context()))
}

// POST /cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	accountID := getAccountIDFromContext(r.Context())

	var req CartItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	delta := 1
	if req.Quantity != nil {
		delta = *req.Quantity
	}

	if err := h.carts.AddItem(r.Context(), accountID, req.ItemID, req.Size, delta); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondPreview(w, r, accountID)
}

// POST /cart/update
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	accountID := getAccountIDFromContext(r.Context())

	var req CartItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	if err := h.carts.SetQuantity(r.Context(), accountID, req.ItemID, req.Size, *req.Quantity); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondPreview(w, r, accountID)
}

// POST /cart/remove
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	accountID := getAccountIDFromContext(r.Context())

	var req CartItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.carts.RemoveItem(r.Context(), accountID, req.ItemID, req.Size); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondPreview(w, r, accountID)
}

// POST /cart/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	accountID := getAccountIDFromContext(r.Context())

	if err := h.carts.ClearCart(r.Context(), accountID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondPreview(w, r, accountID)
}

// POST /cart/merge adds a cart built before login onto the stored one.
func (h *CartHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	accountID := getAccountIDFromContext(r.Context())

	var req CartBodyDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.carts.MergeCart(r.Context(), accountID, req.Cart); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondPreview(w, r, accountID)
}

// PUT /cart
func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	accountID := getAccountIDFromContext(r.Context())

	var req CartBodyDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.carts.ReplaceCart(r.Context(), accountID, req.Cart); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondPreview(w, r, accountID)
}

func (h *CartHandler) respondPreview(w http.ResponseWriter, r *http.Request, accountID string) {
	preview, err := h.carts.Preview(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertPreview(preview))
}

func convertPreview(p *service.CartPreview) CartResponseDTO {
	cart := p.Cart
	if cart == nil {
		cart = domain.Cart{}
	}
	dto := CartResponseDTO{
		Cart:           cart,
		Lines:          make([]CartLineDTO, 0, len(p.Lines)),
		Unavailable:    make([]UnavailableLineDTO, 0, len(p.Unavailable)),
		Subtotal:       p.Subtotal.StringFixed(2),
		DeliveryCharge: p.DeliveryCharge.StringFixed(2),
		Total:          p.Total.StringFixed(2),
	}
	for _, l := range p.Lines {
		dto.Lines = append(dto.Lines, CartLineDTO{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Amount:    l.Amount().StringFixed(2),
		})
	}
	for _, l := range p.Unavailable {
		dto.Unavailable = append(dto.Unavailable, UnavailableLineDTO{ItemID: l.ItemID, Size: l.Size, Quantity: l.Quantity})
	}
	return dto
}
