package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikbell/forever/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func TestStripeProvider_CreateCheckoutSession(t *testing.T) {
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = make(map[string]string)
		for k, v := range r.PostForm {
			form[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	}))
	defer server.Close()

	provider := NewStripeProvider("sk_test_123", server.URL)
	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Lines: []CheckoutLine{
			{Name: "Shirt (M)", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 2},
			{Name: "Delivery", UnitPrice: decimal.RequireFromString("10"), Quantity: 1},
		},
		Currency:   "EUR",
		SuccessURL: "https://shop.example/orders?success=true",
		CancelURL:  "https://shop.example/cart?canceled=true",
		Metadata:   map[string]string{"order_id": "ord-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)
	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "eur", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "1999", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "2", form["line_items[0][quantity]"])
	assert.Equal(t, "Delivery", form["line_items[1][price_data][product_data][name]"])
	assert.Equal(t, "1000", form["line_items[1][price_data][unit_amount]"])
	assert.Equal(t, "ord-1", form["metadata[order_id]"])
}

func TestStripeProvider_ZeroDecimalCurrency(t *testing.T) {
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = make(map[string]string)
		for k, v := range r.PostForm {
			form[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_2","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_2"}`)
	}))
	defer server.Close()

	provider := NewStripeProvider("sk_test_123", server.URL)
	_, err := provider.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Lines:    []CheckoutLine{{Name: "Shirt (M)", UnitPrice: decimal.RequireFromString("1500"), Quantity: 1}},
		Currency: "JPY",
	})
	require.NoError(t, err)

	assert.Equal(t, "jpy", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "1500", form["line_items[0][price_data][unit_amount]"])
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"19.99", "EUR", 1999},
		{"10", "usd", 1000},
		{"0.005", "EUR", 1},
		{"1500", "JPY", 1500},
		{"1499.6", "KRW", 1500},
		{"1.234", "KWD", 1230},
		{"1.235", "KWD", 1240},
	}
	for _, tt := range tests {
		t.Run(tt.currency+" "+tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, MinorUnits(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestStripeProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"parameter_invalid_integer","message":"Invalid integer"}}`)
	}))
	defer server.Close()

	provider := NewStripeProvider("sk_test_123", server.URL)
	_, err := provider.CreateCheckoutSession(context.Background(), CheckoutRequest{Currency: "EUR"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "Invalid integer")
}

func signedEvent(t *testing.T, payload string, secret string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func checkoutCompletedPayload(orderID string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": "2023-10-16",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "metadata": {"order_id": %q}}}
	}`, orderID)
}

func TestStripeVerifier_CheckoutCompleted(t *testing.T) {
	header, body := signedEvent(t, checkoutCompletedPayload("ord-42"), testWebhookSecret)

	event, err := NewStripeVerifier(testWebhookSecret).Verify(body, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, "ord-42", event.OrderID)
}

func TestStripeVerifier_OtherEventType(t *testing.T) {
	payload := `{"id":"evt_2","object":"event","api_version":"2023-10-16","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`
	header, body := signedEvent(t, payload, testWebhookSecret)

	event, err := NewStripeVerifier(testWebhookSecret).Verify(body, header)
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", event.Type)
	assert.Empty(t, event.OrderID)
}

func TestStripeVerifier_TamperedBody(t *testing.T) {
	header, body := signedEvent(t, checkoutCompletedPayload("ord-42"), testWebhookSecret)
	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] = ' '

	_, err := NewStripeVerifier(testWebhookSecret).Verify(tampered, header)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
}

func TestStripeVerifier_WrongSecret(t *testing.T) {
	header, body := signedEvent(t, checkoutCompletedPayload("ord-42"), "whsec_other")

	_, err := NewStripeVerifier(testWebhookSecret).Verify(body, header)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
}

func TestStripeVerifier_MissingHeader(t *testing.T) {
	_, err := NewStripeVerifier(testWebhookSecret).Verify([]byte(checkoutCompletedPayload("x")), "")
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
}
