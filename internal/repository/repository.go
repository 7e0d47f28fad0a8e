package repository

import (
	"context"
	"errors"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate")
	// ErrInsufficientStock is returned by DecrementStock when stock would go negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict marks a transient failure (lock timeout, deadlock, serialization
	// failure, state changed underneath a conditional update). The whole unit of
	// work may be retried.
	ErrConflict = errors.New("concurrent modification")
)

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	// FindByIDs returns the products that exist, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error)
	// LockByIDs is FindByIDs holding a row lock on each product until the
	// surrounding transaction ends. Rows are locked in ascending id order.
	LockByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error)
	List(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error)
	ListAll(ctx context.Context) ([]entity.Product, error)
	Search(ctx context.Context, keyword string) ([]entity.Product, error)
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
	// DecrementStock subtracts amount from stock. It fails with
	// ErrInsufficientStock rather than letting stock go negative.
	DecrementStock(ctx context.Context, id string, amount int) error
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// CartRepository handles persistence for cart lines.
type CartRepository interface {
	// List returns the user's lines in the order they were added.
	List(ctx context.Context, userID string) ([]entity.CartLine, error)
	// LockByUser is List holding row locks on the returned lines.
	LockByUser(ctx context.Context, userID string) ([]entity.CartLine, error)
	Get(ctx context.Context, userID, productID string) (*entity.CartLine, error)
	// Upsert inserts the line or replaces the quantity of an existing one.
	Upsert(ctx context.Context, line *entity.CartLine) error
	Delete(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
	DeleteByProduct(ctx context.Context, productID string) error
}

// OrderRepository handles persistence for Orders and their items.
type OrderRepository interface {
	// Create stores the order with its items, assigning ID and CreatedAt.
	Create(ctx context.Context, o *entity.Order) error
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]entity.Order, error)
	FindByID(ctx context.Context, orderID, userID string) (*entity.Order, error)
	// UpdateStatus moves an order from status from to status to. It returns
	// ErrNotFound for an unknown order and ErrConflict when the current
	// status is not from.
	UpdateStatus(ctx context.Context, orderID string, from, to entity.OrderStatus) error
}

// UserRepository handles persistence for users and password reset tokens.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	CreateResetToken(ctx context.Context, t *entity.PasswordResetToken) error
	FindResetToken(ctx context.Context, token string) (*entity.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, token string) error
}

// OutboxRepository stores events until they are relayed to the broker.
type OutboxRepository interface {
	Insert(ctx context.Context, rec *entity.OutboxRecord) error
	// FetchPending returns unsent records in insertion order.
	FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository
	Outbox() OutboxRepository
}

// Store is the backing store. Repositories used directly run each call in
// its own implicit transaction.
type Store interface {
	Repositories
	// WithinTx runs fn inside one transaction. The transaction commits when
	// fn returns nil and rolls back on any error or panic. Repositories
	// obtained from tx must not be used after fn returns.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
