package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func addProduct(t *testing.T, store repository.Store, id, name, price string, stock int) {
	t.Helper()
	p := entity.Product{
		ID: id, Name: name, Category: "General",
		Price: decimal.RequireFromString(price), Stock: stock,
	}
	require.NoError(t, store.Products().Create(context.Background(), &p))
}

func putLine(t *testing.T, store repository.Store, userID, productID string, qty int) {
	t.Helper()
	line := entity.CartLine{UserID: userID, ProductID: productID, Quantity: qty}
	require.NoError(t, store.Carts().Upsert(context.Background(), &line))
}

func stockOf(t *testing.T, store repository.Store, id string) int {
	t.Helper()
	p, err := store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func cartOf(t *testing.T, store repository.Store, userID string) []entity.CartLine {
	t.Helper()
	lines, err := store.Carts().List(context.Background(), userID)
	require.NoError(t, err)
	return lines
}

func ordersOf(t *testing.T, store repository.Store, userID string) []entity.Order {
	t.Helper()
	orders, err := store.Orders().ListByUser(context.Background(), userID)
	require.NoError(t, err)
	return orders
}

// exampleStore holds product A (price 10, stock 5), product B (price 5,
// stock 5) and a cart of 2 A and 1 B for user u1.
func exampleStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	addProduct(t, store, "A", "Alpha", "10", 5)
	addProduct(t, store, "B", "Beta", "5", 5)
	putLine(t, store, "u1", "A", 2)
	putLine(t, store, "u1", "B", 1)
	return store
}

type outcomeCounter map[string]int

func (c outcomeCounter) CheckoutOutcome(outcome string) { c[outcome]++ }
