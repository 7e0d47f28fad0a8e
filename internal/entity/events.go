package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Broker topics.
const (
	TopicOrdersPlaced         = "orders.placed"
	TopicPasswordResetRequest = "users.password_reset_requested"
	TopicPaymentEvents        = "payments.events"
)

// Event represents a domain event.
type Event interface {
	EventType() string
}

// OrderPlaced is emitted when a checkout commits.
type OrderPlaced struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Items         []OrderItem     `json:"items"`
	PlacedAt      time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// PasswordResetRequested is emitted so a notifier can mail the reset token.
type PasswordResetRequested struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e PasswordResetRequested) EventType() string { return "PasswordResetRequested" }

// PaymentOutcome is the result reported by the payment provider.
type PaymentOutcome string

const (
	PaymentSettled PaymentOutcome = "settled"
	PaymentFailed  PaymentOutcome = "failed"
)

// PaymentEvent is consumed from the payments topic.
type PaymentEvent struct {
	OrderID string         `json:"order_id"`
	Outcome PaymentOutcome `json:"outcome"`
}

// TargetStatus maps the payment outcome to the order status it drives.
func (e PaymentEvent) TargetStatus() (OrderStatus, error) {
	switch e.Outcome {
	case PaymentSettled:
		return OrderStatusPaid, nil
	case PaymentFailed:
		return OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown payment outcome %q", e.Outcome)
	}
}

// OutboxRecord is an event waiting to be relayed to the broker.
type OutboxRecord struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// NewOutboxRecord encodes event for publication on topic, partitioned by key.
func NewOutboxRecord(topic, key string, event Event) (*OutboxRecord, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return &OutboxRecord{
		EventID:   uuid.NewString(),
		EventType: event.EventType(),
		Topic:     topic,
		Key:       key,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}
