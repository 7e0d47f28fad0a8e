package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/idempotency"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/metrics"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// OutcomeRecorder counts checkout attempts by outcome.
type OutcomeRecorder interface {
	CheckoutOutcome(outcome string)
}

// keyUpdateTimeout bounds completing or releasing an idempotency key once
// the checkout itself has finished.
const keyUpdateTimeout = 5 * time.Second

// CheckoutService turns a user's cart into an order.
type CheckoutService struct {
	store    repository.Store
	keys     idempotency.Store
	recorder OutcomeRecorder
}

// NewCheckoutService builds a CheckoutService. keys and recorder may be nil.
func NewCheckoutService(store repository.Store, keys idempotency.Store, recorder OutcomeRecorder) *CheckoutService {
	return &CheckoutService{store: store, keys: keys, recorder: recorder}
}

// Checkout converts the user's cart into an order in one transaction:
// stock is decremented, the order and an orders.placed outbox record are
// written and the cart is cleared, or nothing happens at all.
//
// The user's cart rows are locked first, then the referenced products in id
// order, so concurrent checkouts touching the same product serialize on its
// row and two checkouts of the same cart cannot both succeed.
func (s *CheckoutService) Checkout(ctx context.Context, userID, paymentMethod string) (*entity.Order, error) {
	order, err := s.checkout(ctx, userID, paymentMethod)
	s.record(outcomeOf(err))
	return order, err
}

// CheckoutOnce is Checkout guarded by a client idempotency key. Replaying a
// completed key returns the order it produced. An empty key, or a service
// built without a key store, falls through to Checkout.
func (s *CheckoutService) CheckoutOnce(ctx context.Context, userID, paymentMethod, clientKey string) (*entity.Order, error) {
	if clientKey == "" || s.keys == nil {
		return s.Checkout(ctx, userID, paymentMethod)
	}

	key := idempotency.Key(userID, clientKey)
	orderID, err := s.keys.Reserve(ctx, key)
	if errors.Is(err, idempotency.ErrInProgress) {
		s.record(metrics.OutcomeConflict)
		return nil, ErrCheckoutInProgress
	}
	if err != nil {
		s.record(metrics.OutcomeError)
		return nil, err
	}

	if orderID != "" {
		slog.Info("Service: Replaying checkout", "user_id", userID, "order_id", orderID)
		order, err := s.store.Orders().FindByID(ctx, orderID, userID)
		if err != nil {
			s.record(metrics.OutcomeError)
			return nil, fmt.Errorf("failed to load replayed order: %w", err)
		}
		if err := annotateItemNames(ctx, s.store.Products(), []*entity.Order{order}, RemovedProductLabel); err != nil {
			s.record(metrics.OutcomeError)
			return nil, err
		}
		s.record(metrics.OutcomeReplay)
		return order, nil
	}

	order, err := s.Checkout(ctx, userID, paymentMethod)

	// The request may be cancelled by now; the key must still leave pending.
	keyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyUpdateTimeout)
	defer cancel()
	if err != nil {
		if relErr := s.keys.Release(keyCtx, key); relErr != nil {
			slog.Error("Failed to release idempotency key", "user_id", userID, "err", relErr)
		}
		return nil, err
	}
	if err := s.keys.Complete(keyCtx, key, order.ID); err != nil {
		// The order exists; a replay will now report in-progress until the key expires.
		slog.Error("Failed to complete idempotency key", "user_id", userID, "order_id", order.ID, "err", err)
	}
	return order, nil
}

func (s *CheckoutService) checkout(ctx context.Context, userID, paymentMethod string) (*entity.Order, error) {
	method, err := entity.ParsePaymentMethod(paymentMethod)
	if err != nil {
		return nil, ErrInvalidPaymentMethod
	}

	var (
		order    *entity.Order
		products map[string]entity.Product
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		lines, err := tx.Carts().LockByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]string, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ProductID)
		}
		products, err = tx.Products().LockByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to lock products: %w", err)
		}

		// Every line is validated before anything is written.
		for _, line := range lines {
			p, ok := products[line.ProductID]
			if !ok {
				return ErrProductUnavailable
			}
			if p.Stock < line.Quantity {
				return &StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: line.Quantity}
			}
		}

		order = &entity.Order{
			UserID:        userID,
			Status:        method.InitialStatus(),
			PaymentMethod: method,
			Items:         make([]entity.OrderItem, 0, len(lines)),
		}
		for _, line := range lines {
			p := products[line.ProductID]
			if err := tx.Products().DecrementStock(ctx, p.ID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return &StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: line.Quantity}
				}
				if errors.Is(err, repository.ErrNotFound) {
					return ErrProductUnavailable
				}
				return fmt.Errorf("failed to decrement stock for %s: %w", p.ID, err)
			}
			order.Items = append(order.Items, entity.OrderItem{
				ProductID:       p.ID,
				Quantity:        line.Quantity,
				PriceAtPurchase: p.Price,
			})
		}
		order.TotalAmount = order.ItemsTotal()

		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		rec, err := entity.NewOutboxRecord(entity.TopicOrdersPlaced, order.ID, entity.OrderPlaced{
			OrderID:       order.ID,
			UserID:        order.UserID,
			TotalAmount:   order.TotalAmount,
			Status:        order.Status,
			PaymentMethod: order.PaymentMethod,
			Items:         order.Items,
			PlacedAt:      order.CreatedAt,
		})
		if err != nil {
			return err
		}
		if err := tx.Outbox().Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to write outbox record: %w", err)
		}

		if err := tx.Carts().Clear(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, conflictAsRetryable(err)
	}

	for i := range order.Items {
		order.Items[i].ProductName = products[order.Items[i].ProductID].Name
	}
	slog.Info("Service: Order placed",
		"order_id", order.ID,
		"user_id", userID,
		"status", order.Status,
		"total_amount", order.TotalAmount.StringFixed(2),
		"items", len(order.Items),
	)
	return order, nil
}

func (s *CheckoutService) record(outcome string) {
	if s.recorder != nil {
		s.recorder.CheckoutOutcome(outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrEmptyCart):
		return metrics.OutcomeEmptyCart
	case errors.Is(err, ErrProductUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, ErrInsufficientStock):
		return metrics.OutcomeInsufficient
	case errors.Is(err, ErrInvalidPaymentMethod):
		return metrics.OutcomeInvalidMethod
	case errors.Is(err, ErrRetryable):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
