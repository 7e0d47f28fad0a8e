// Package memory is an in-process repository.Store for local runs and tests.
//
// A transaction holds the store mutex for its whole duration and works on a
// copy of the state that replaces the live state only on commit, so
// transactions are fully serialized and a failed one leaves no trace.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type storedOrder struct {
	order entity.Order
	seq   int64
}

type state struct {
	products   map[string]entity.Product
	carts      map[string][]entity.CartLine
	orders     map[string]storedOrder
	users      map[string]entity.User
	emails     map[string]string
	resets     map[string]entity.PasswordResetToken
	outbox     []entity.OutboxRecord
	nextOutbox int64
	nextOrder  int64
}

func newState() *state {
	return &state{
		products: make(map[string]entity.Product),
		carts:    make(map[string][]entity.CartLine),
		orders:   make(map[string]storedOrder),
		users:    make(map[string]entity.User),
		emails:   make(map[string]string),
		resets:   make(map[string]entity.PasswordResetToken),
	}
}

// clone copies everything a transaction may modify. Order items are never
// modified in place, so their slices are shared.
func (s *state) clone() *state {
	c := &state{
		products:   make(map[string]entity.Product, len(s.products)),
		carts:      make(map[string][]entity.CartLine, len(s.carts)),
		orders:     make(map[string]storedOrder, len(s.orders)),
		users:      make(map[string]entity.User, len(s.users)),
		emails:     make(map[string]string, len(s.emails)),
		resets:     make(map[string]entity.PasswordResetToken, len(s.resets)),
		outbox:     make([]entity.OutboxRecord, len(s.outbox)),
		nextOutbox: s.nextOutbox,
		nextOrder:  s.nextOrder,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]entity.CartLine(nil), v...)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}
	copy(c.outbox, s.outbox)
	return c
}

// accessor runs fn against the state a repository is bound to.
type accessor func(ctx context.Context, fn func(*state) error) error

type repositories struct {
	products *productRepository
	carts    *cartRepository
	orders   *orderRepository
	users    *userRepository
	outbox   *outboxRepository
}

func newRepositories(with accessor, now func() time.Time) *repositories {
	return &repositories{
		products: &productRepository{with: with},
		carts:    &cartRepository{with: with},
		orders:   &orderRepository{with: with, now: now},
		users:    &userRepository{with: with, now: now},
		outbox:   &outboxRepository{with: with, now: now},
	}
}

func (r *repositories) Products() repository.ProductRepository { return r.products }
func (r *repositories) Carts() repository.CartRepository       { return r.carts }
func (r *repositories) Orders() repository.OrderRepository     { return r.orders }
func (r *repositories) Users() repository.UserRepository       { return r.users }
func (r *repositories) Outbox() repository.OutboxRepository    { return r.outbox }

// Store is a repository.Store held in memory. Inside WithinTx only the
// transaction's repositories may be used; the Store's own would deadlock.
type Store struct {
	*repositories
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.repositories = newRepositories(s.locked, func() time.Time { return s.now() })
	return s
}

func (s *Store) locked(ctx context.Context, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	bound := func(ctx context.Context, f func(*state) error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return f(draft)
	}
	if err := fn(ctx, newRepositories(bound, s.now)); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
