package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/payment"
	"github.com/mikbell/forever/internal/service"
	"go.uber.org/zap"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
	CreatePaymentSession(ctx context.Context, accountID string, orderID uuid.UUID) (*payment.Session, error)
	GetOrder(ctx context.Context, accountID string, orderID uuid.UUID) (*domain.Order, error)
	ListMine(ctx context.Context, accountID string) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	orders OrderService
	logger *zap.Logger
}

func NewOrdersHandler(orders OrderService, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, logger: logger}
}

type PlaceOrderRequestDTO struct {
	Address       domain.Address `json:"address"`
	PaymentMethod string         `json:"paymentMethod"`
}

type PlaceOrderResponseDTO struct {
	OrderID     string               `json:"orderId"`
	Status      string               `json:"status"`
	TotalAmount string               `json:"totalAmount"`
	RedirectURL string               `json:"redirectURL,omitempty"`
	Dropped     []UnavailableLineDTO `json:"dropped,omitempty"`
}

type SessionResponseDTO struct {
	OrderID     string `json:"orderId"`
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectURL"`
}

type UpdateStatusRequestDTO struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type OrderItemDTO struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type OrderResponseDTO struct {
	ID               string         `json:"id"`
	AccountID        string         `json:"accountId"`
	Items            []OrderItemDTO `json:"items"`
	DeliveryCharge   string         `json:"deliveryCharge"`
	TotalAmount      string         `json:"totalAmount"`
	Currency         string         `json:"currency"`
	Address          domain.Address `json:"address"`
	PaymentMethod    string         `json:"paymentMethod"`
	Status           string         `json:"status"`
	PaymentConfirmed bool           `json:"paymentConfirmed"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
}

// POST /order/place
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	accountID := getAccountIDFromContext(r.Context())

	var req PlaceOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		AccountID:     accountID,
		Address:       req.Address,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil && result != nil && errors.Is(err, domain.ErrPaymentProvider) {
		// the order exists; the client can retry the session with its id
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   err.Error(),
			Code:    "payment_provider_error",
			Details: fmt.Sprintf("order %s saved, retry POST /order/%s/session", result.Order.ID, result.Order.ID),
		})
		return
	}
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	dto := PlaceOrderResponseDTO{
		OrderID:     result.Order.ID.String(),
		Status:      result.Order.Status.String(),
		TotalAmount: result.Order.TotalAmount.StringFixed(2),
		RedirectURL: result.RedirectURL,
	}
	for _, l := range result.Dropped {
		dto.Dropped = append(dto.Dropped, UnavailableLineDTO{ItemID: l.ItemID, Size: l.Size, Quantity: l.Quantity})
	}
	respondJSON(w, http.StatusCreated, dto)
}

// POST /order/{orderId}/session
func (h *OrdersHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	session, err := h.orders.CreatePaymentSession(r.Context(), getAccountIDFromContext(r.Context()), orderID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponseDTO{
		OrderID:     orderID.String(),
		SessionID:   session.ID,
		RedirectURL: session.URL,
	})
}

// GET /order/{orderId}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), getAccountIDFromContext(r.Context()), orderID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// GET /order/mine
func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), getAccountIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders))
}

// GET /order/all
func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders))
}

// PUT /order/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "orderId must be a UUID")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "orderId must be a UUID")
		return uuid.Nil, false
	}
	return orderID, true
}

func convertOrders(orders []*domain.Order) []OrderResponseDTO {
	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	return dtos
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ItemID:    item.ItemID,
			Name:      item.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	return OrderResponseDTO{
		ID:               o.ID.String(),
		AccountID:        o.AccountID,
		Items:            items,
		DeliveryCharge:   o.DeliveryCharge.StringFixed(2),
		TotalAmount:      o.TotalAmount.StringFixed(2),
		Currency:         o.Currency,
		Address:          o.Address,
		PaymentMethod:    string(o.PaymentMethod),
		Status:           o.Status.String(),
		PaymentConfirmed: o.PaymentConfirmed,
		CreatedAt:        o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
