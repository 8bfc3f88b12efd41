package domain

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrInvalidTransition = errors.New("illegal transition of order status")
	ErrSignatureInvalid  = errors.New("webhook signature is invalid")
	ErrPaymentProvider   = errors.New("payment provider error")
)
