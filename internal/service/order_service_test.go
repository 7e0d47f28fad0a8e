package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return clock }))
	addProduct(t, store, "A", "Alpha", "10", 10)
	checkout := NewCheckoutService(store, nil, nil)
	svc := NewOrderService(store)

	putLine(t, store, "u1", "A", 1)
	first, err := checkout.Checkout(ctx, "u1", "COD")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	putLine(t, store, "u1", "A", 2)
	second, err := checkout.Checkout(ctx, "u1", "Online")
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.Equal(t, "Alpha", orders[0].Items[0].ProductName)

	none, err := svc.ListOrders(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetOrderOfAnotherUser(t *testing.T) {
	ctx := context.Background()
	store := exampleStore(t)
	order, err := NewCheckoutService(store, nil, nil).Checkout(ctx, "u1", "COD")
	require.NoError(t, err)

	_, err = NewOrderService(store).GetOrder(ctx, "u2", order.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestHandlePaymentEvent(t *testing.T) {
	ctx := context.Background()
	store := exampleStore(t)
	order, err := NewCheckoutService(store, nil, nil).Checkout(ctx, "u1", "COD")
	require.NoError(t, err)
	svc := NewOrderService(store)

	tests := []struct {
		name    string
		payload string
		wantErr error
		anyErr  bool
	}{
		{name: "garbage", payload: `{`, anyErr: true},
		{name: "unknown outcome", payload: `{"order_id":"` + order.ID + `","outcome":"maybe"}`, wantErr: ErrInvalidInput},
		{name: "missing order id", payload: `{"outcome":"settled"}`, wantErr: ErrInvalidInput},
		{name: "unknown order", payload: `{"order_id":"nope","outcome":"settled"}`, wantErr: ErrOrderNotFound},
		{name: "settled", payload: `{"order_id":"` + order.ID + `","outcome":"settled"}`},
		{name: "redelivered", payload: `{"order_id":"` + order.ID + `","outcome":"failed"}`, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.HandlePaymentEvent(ctx, []byte(tt.payload))
			switch {
			case tt.anyErr:
				require.ErrorIs(t, err, messaging.ErrPermanent)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, messaging.ErrPermanent)
			default:
				require.NoError(t, err)
			}
		})
	}

	got, err := svc.GetOrder(ctx, "u1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPaid, got.Status)
}

type brokenOrders struct {
	repository.OrderRepository
}

func (brokenOrders) UpdateStatus(context.Context, string, entity.OrderStatus, entity.OrderStatus) error {
	return errors.New("connection reset")
}

type brokenOrdersStore struct {
	*memory.Store
}

func (s brokenOrdersStore) Orders() repository.OrderRepository {
	return brokenOrders{s.Store.Orders()}
}

func TestHandlePaymentEventStoreFailureIsRetryable(t *testing.T) {
	svc := NewOrderService(brokenOrdersStore{memory.NewStore()})
	err := svc.HandlePaymentEvent(context.Background(), []byte(`{"order_id":"o1","outcome":"settled"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, messaging.ErrPermanent)
}

func TestTransitionRejectsNonPendingTargets(t *testing.T) {
	svc := NewOrderService(memory.NewStore())
	err := svc.Transition(context.Background(), "any", entity.OrderStatusPending)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
