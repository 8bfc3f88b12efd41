package http

import (
	"context"
	"net/http"

	"github.com/mikbell/forever/internal/domain"
	"go.uber.org/zap"
)

type ProductLister interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

type ProductHandler struct {
	products ProductLister
	logger   *zap.Logger
}

func NewProductHandler(products ProductLister, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

type ProductResponseDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	dtos := make([]ProductResponseDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, ProductResponseDTO{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.StringFixed(2),
			ImageURL:    p.ImageURL,
		})
	}
	respondJSON(w, http.StatusOK, dtos)
}
