package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

func newProduct(id, name string, price string, stock int) entity.Product {
	return entity.Product{
		ID: id, Name: name, Category: "General",
		Price: decimal.RequireFromString(price), Stock: stock,
	}
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("p1", "Mug", "10", 5)
	require.NoError(t, s.Products().Create(ctx, &p))

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		return tx.Products().DecrementStock(ctx, "p1", 2)
	})
	require.NoError(t, err)

	got, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestWithinTxDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("p1", "Mug", "10", 5)
	require.NoError(t, s.Products().Create(ctx, &p))
	require.NoError(t, s.Carts().Upsert(ctx, &entity.CartLine{UserID: "u1", ProductID: "p1", Quantity: 1}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		require.NoError(t, tx.Products().DecrementStock(ctx, "p1", 5))
		require.NoError(t, tx.Carts().Upsert(ctx, &entity.CartLine{UserID: "u1", ProductID: "p1", Quantity: 4}))
		require.NoError(t, tx.Orders().Create(ctx, &entity.Order{UserID: "u1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	line, err := s.Carts().Get(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	orders, err := s.Orders().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestWithinTxDiscardsOnPanic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("p1", "Mug", "10", 5)
	require.NoError(t, s.Products().Create(ctx, &p))

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			_ = tx.Products().DecrementStock(ctx, "p1", 5)
			panic("mid-transaction")
		})
	})

	got, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("p1", "Mug", "10", 2)
	require.NoError(t, s.Products().Create(ctx, &p))

	require.ErrorIs(t, s.Products().DecrementStock(ctx, "p1", 3), repository.ErrInsufficientStock)
	require.ErrorIs(t, s.Products().DecrementStock(ctx, "missing", 1), repository.ErrNotFound)
	require.NoError(t, s.Products().DecrementStock(ctx, "p1", 2))

	got, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
}

func TestProductListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Products().Seed(ctx, []entity.Product{
		newProduct("a", "Zebra toy", "5", 1),
		newProduct("b", "Apple", "30", 1),
		newProduct("c", "Mango", "15", 1),
	}))

	filter := entity.ProductFilter{SortBy: entity.SortByPrice, Page: 1, PageSize: 2}
	require.NoError(t, filter.Normalize())
	page, err := s.Products().List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	filter.Page = 2
	page, err = s.Products().List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	found, err := s.Products().Search(ctx, "AN")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Mango", found[0].Name)
}

func TestSeedSkipsWhenCatalogExists(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Products().Seed(ctx, []entity.Product{newProduct("a", "A", "1", 1)}))
	require.NoError(t, s.Products().Seed(ctx, []entity.Product{newProduct("b", "B", "1", 1)}))

	all, err := s.Products().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)
}

func TestCartUpsertKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	carts := s.Carts()
	require.NoError(t, carts.Upsert(ctx, &entity.CartLine{UserID: "u1", ProductID: "b", Quantity: 1}))
	require.NoError(t, carts.Upsert(ctx, &entity.CartLine{UserID: "u1", ProductID: "a", Quantity: 2}))
	require.NoError(t, carts.Upsert(ctx, &entity.CartLine{UserID: "u1", ProductID: "b", Quantity: 7}))

	lines, err := carts.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "b", lines[0].ProductID)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.Equal(t, "a", lines[1].ProductID)

	require.ErrorIs(t, carts.Delete(ctx, "u1", "zzz"), repository.ErrNotFound)
	require.NoError(t, carts.DeleteByProduct(ctx, "b"))
	lines, err = carts.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "a", lines[0].ProductID)

	require.NoError(t, carts.Clear(ctx, "u1"))
	lines, err = carts.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return clock }))

	first := &entity.Order{UserID: "u1", Status: entity.OrderStatusPending}
	second := &entity.Order{UserID: "u1", Status: entity.OrderStatusPending}
	other := &entity.Order{UserID: "u2", Status: entity.OrderStatusPending}
	require.NoError(t, s.Orders().Create(ctx, first))
	// Same timestamp: insertion order breaks the tie.
	require.NoError(t, s.Orders().Create(ctx, second))
	require.NoError(t, s.Orders().Create(ctx, other))

	orders, err := s.Orders().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	_, err = s.Orders().FindByID(ctx, other.ID, "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderUpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	o := &entity.Order{UserID: "u1", Status: entity.OrderStatusPending}
	require.NoError(t, s.Orders().Create(ctx, o))

	require.NoError(t, s.Orders().UpdateStatus(ctx, o.ID, entity.OrderStatusPending, entity.OrderStatusPaid))
	err := s.Orders().UpdateStatus(ctx, o.ID, entity.OrderStatusPending, entity.OrderStatusCancelled)
	require.ErrorIs(t, err, repository.ErrConflict)
	require.ErrorIs(t, s.Orders().UpdateStatus(ctx, "nope", entity.OrderStatusPending, entity.OrderStatusPaid), repository.ErrNotFound)

	got, err := s.Orders().FindByID(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPaid, got.Status)
}

func TestUsersAndResetTokens(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := &entity.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "h", Role: entity.RoleUser}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NotEmpty(t, u.ID)

	dup := &entity.User{Name: "Ann 2", Email: "ann@example.com"}
	require.ErrorIs(t, s.Users().Create(ctx, dup), repository.ErrDuplicate)

	byEmail, err := s.Users().FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	require.NoError(t, s.Users().UpdatePassword(ctx, u.ID, "h2"))
	byID, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", byID.PasswordHash)

	tok := &entity.PasswordResetToken{Token: "t1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, s.Users().CreateResetToken(ctx, tok))
	require.NoError(t, s.Users().MarkResetTokenUsed(ctx, "t1"))
	got, err := s.Users().FindResetToken(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Used)
}

func TestOutboxPendingAndSent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, key := range []string{"a", "b", "c"} {
		rec := &entity.OutboxRecord{Topic: entity.TopicOrdersPlaced, Key: key}
		require.NoError(t, s.Outbox().Insert(ctx, rec))
	}

	pending, err := s.Outbox().FetchPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].Key)

	require.NoError(t, s.Outbox().MarkSent(ctx, pending[0].ID))
	pending, err = s.Outbox().FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].Key)
	assert.Equal(t, "c", pending[1].Key)
}
