package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// RemovedProductLabel names order items whose product no longer exists.
const RemovedProductLabel = "Product not found"

// OrderService serves order history and applies payment outcomes.
type OrderService struct {
	store repository.Store
}

func NewOrderService(store repository.Store) *OrderService {
	return &OrderService{store: store}
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]entity.Order, error) {
	orders, err := s.store.Orders().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	ptrs := make([]*entity.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := annotateItemNames(ctx, s.store.Products(), ptrs, RemovedProductLabel); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one of the user's orders. Orders of other users are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*entity.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := annotateItemNames(ctx, s.store.Products(), []*entity.Order{order}, RemovedProductLabel); err != nil {
		return nil, err
	}
	return order, nil
}

// Transition moves a pending order to status to.
func (s *OrderService) Transition(ctx context.Context, orderID string, to entity.OrderStatus) error {
	if !entity.OrderStatusPending.CanTransition(to) {
		return fmt.Errorf("%w: pending to %s", ErrInvalidTransition, to)
	}
	err := s.store.Orders().UpdateStatus(ctx, orderID, entity.OrderStatusPending, to)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrOrderNotFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: order %s is no longer pending", ErrInvalidTransition, orderID)
	case err != nil:
		return fmt.Errorf("failed to update order status: %w", err)
	}
	slog.Info("Service: Order status changed", "order_id", orderID, "status", to)
	return nil
}

// HandlePaymentEvent applies a payments.events message. Stock is not
// restored when a payment fails.
func (s *OrderService) HandlePaymentEvent(ctx context.Context, payload []byte) error {
	var event entity.PaymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: failed to unmarshal payment event: %w", messaging.ErrPermanent, err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("%w: %w: payment event without order_id", messaging.ErrPermanent, ErrInvalidInput)
	}
	to, err := event.TargetStatus()
	if err != nil {
		return fmt.Errorf("%w: %w: %w", messaging.ErrPermanent, ErrInvalidInput, err)
	}

	err = s.Transition(ctx, event.OrderID, to)
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidTransition) {
		// A redelivered or unknown event; nothing to retry.
		return fmt.Errorf("%w: %w", messaging.ErrPermanent, err)
	}
	return err
}

// annotateItemNames fills ProductName on every item from the current
// catalog, using label for products that no longer exist.
func annotateItemNames(ctx context.Context, products repository.ProductRepository, orders []*entity.Order, label string) error {
	var ids []string
	for _, o := range orders {
		for _, item := range o.Items {
			ids = append(ids, item.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve product names: %w", err)
	}
	for _, o := range orders {
		for i := range o.Items {
			if p, ok := found[o.Items[i].ProductID]; ok {
				o.Items[i].ProductName = p.Name
			} else {
				o.Items[i].ProductName = label
			}
		}
	}
	return nil
}
