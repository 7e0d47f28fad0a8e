package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
}

// CartLine is a product and quantity in a user's cart. (UserID, ProductID) is unique.
type CartLine struct {
	UserID    string `json:"-"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartView is a cart line enriched with the product's current name.
type CartView struct {
	CartLine
	ProductName string `json:"product_name"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether an order in status s may move to next.
// Only pending orders change state.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	return next == OrderStatusPaid || next == OrderStatusCancelled
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "COD"
	PaymentOnline         PaymentMethod = "Online"
)

// ParsePaymentMethod validates a client supplied payment method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCashOnDelivery, PaymentOnline:
		return m, nil
	default:
		return "", ErrUnknownPaymentMethod
	}
}

// InitialStatus is the status a new order gets for this payment method.
// "paid" is a placeholder: no payment is captured at checkout.
func (m PaymentMethod) InitialStatus() OrderStatus {
	if m == PaymentOnline {
		return OrderStatusPaid
	}
	return OrderStatusPending
}

// OrderItem is a quantity and price snapshot of one product within an order.
// ProductID is a lookup key only; the product may no longer exist.
type OrderItem struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	// ProductName is resolved when the order is read, never stored.
	ProductName string `json:"product_name"`
}

// Subtotal returns quantity × price_at_purchase.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order. It owns its items.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderItem     `json:"items"`
}

// ItemsTotal sums the subtotals of the order's items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}
