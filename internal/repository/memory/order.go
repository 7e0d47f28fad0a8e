package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type orderRepository struct {
	with accessor
	now  func() time.Time
}

func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	return r.with(ctx, func(s *state) error {
		o.ID = uuid.NewString()
		o.CreatedAt = r.now()
		s.nextOrder++
		s.orders[o.ID] = storedOrder{order: copyOrder(*o), seq: s.nextOrder}
		return nil
	})
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	var stored []storedOrder
	err := r.with(ctx, func(s *state) error {
		for _, so := range s.orders {
			if so.order.UserID == userID {
				stored = append(stored, so)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(stored, func(i, j int) bool {
		a, b := stored[i], stored[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.After(b.order.CreatedAt)
		}
		return a.seq > b.seq
	})

	orders := make([]entity.Order, 0, len(stored))
	for _, so := range stored {
		orders = append(orders, copyOrder(so.order))
	}
	return orders, nil
}

func (r *orderRepository) FindByID(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	var found entity.Order
	err := r.with(ctx, func(s *state) error {
		so, ok := s.orders[orderID]
		if !ok || so.order.UserID != userID {
			return repository.ErrNotFound
		}
		found = copyOrder(so.order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID string, from, to entity.OrderStatus) error {
	return r.with(ctx, func(s *state) error {
		so, ok := s.orders[orderID]
		if !ok {
			return repository.ErrNotFound
		}
		if so.order.Status != from {
			return fmt.Errorf("%w: order %s is not %s", repository.ErrConflict, orderID, from)
		}
		so.order.Status = to
		s.orders[orderID] = so
		return nil
	})
}

// copyOrder detaches the items slice so callers cannot alter stored orders.
func copyOrder(o entity.Order) entity.Order {
	items := make([]entity.OrderItem, len(o.Items))
	copy(items, o.Items)
	for i := range items {
		items[i].ProductName = ""
	}
	o.Items = items
	return o
}
