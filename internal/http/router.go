package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Cart     *CartHandler
	Orders   *OrdersHandler
	Webhook  *WebhookHandler
	Products *ProductHandler
}

func NewRouter(h Handlers, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/products", h.Products.ListProducts)

	r.Route("/cart", func(r chi.Router) {
		r.Use(AuthMiddleware)
		r.Get("/", h.Cart.GetCart)
		r.Put("/", h.Cart.ReplaceCart)
		r.Post("/add", h.Cart.AddItem)
		r.Post("/update", h.Cart.UpdateQuantity)
		r.Post("/remove", h.Cart.RemoveItem)
		r.Post("/clear", h.Cart.ClearCart)
		r.Post("/merge", h.Cart.MergeCart)
	})

	r.Route("/order", func(r chi.Router) {
		// authenticated by signature, not by account
		r.Post("/webhook", h.Webhook.HandleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware)
			r.Post("/place", h.Orders.PlaceOrder)
			r.Get("/mine", h.Orders.ListMine)
			r.Get("/{orderId}", h.Orders.GetOrder)
			r.Post("/{orderId}/session", h.Orders.CreateSession)

			r.With(OperatorOnly).Get("/all", h.Orders.ListAll)
			r.With(OperatorOnly).Put("/status", h.Orders.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "forever-api")
}
