package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrProductUnavailable   = errors.New("a product in your cart is no longer available")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidPaymentMethod = errors.New("payment method must be COD or Online")
	ErrInvalidQuantity      = errors.New("quantity must be greater than 0")
	ErrProductNotFound      = errors.New("product not found")
	ErrCartItemNotFound     = errors.New("item not found in cart")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrEmailTaken           = errors.New("email already registered")
	ErrEmailDomain          = errors.New("email domain not allowed")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrCheckoutInProgress   = errors.New("a checkout with this idempotency key is in progress")
	// ErrRetryable wraps transient storage conflicts. The whole operation
	// may be retried from scratch.
	ErrRetryable = errors.New("concurrent update, please retry")
)

// StockError reports a product whose stock cannot cover a requested quantity.
type StockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
	// InCart is the quantity already in the cart when adding to it.
	InCart int
}

func (e *StockError) Error() string {
	if e.InCart > 0 {
		return fmt.Sprintf("insufficient stock for %s: only %d available and %d already in your cart", e.Name, e.Available, e.InCart)
	}
	return fmt.Sprintf("insufficient stock for %s: only %d available, %d requested", e.Name, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
