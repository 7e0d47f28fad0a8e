package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type repositories struct {
	products *productRepository
	carts    *cartRepository
	orders   *orderRepository
	users    *userRepository
	outbox   *outboxRepository
}

func newRepositories(q querier) *repositories {
	return &repositories{
		products: &productRepository{q: q},
		carts:    &cartRepository{q: q},
		orders:   &orderRepository{q: q},
		users:    &userRepository{q: q},
		outbox:   &outboxRepository{q: q},
	}
}

func (r *repositories) Products() repository.ProductRepository { return r.products }
func (r *repositories) Carts() repository.CartRepository       { return r.carts }
func (r *repositories) Orders() repository.OrderRepository     { return r.orders }
func (r *repositories) Users() repository.UserRepository       { return r.users }
func (r *repositories) Outbox() repository.OutboxRepository    { return r.outbox }

// Store is a repository.Store backed by Postgres.
type Store struct {
	*repositories
	db          *sql.DB
	lockTimeout time.Duration
}

// NewStore wraps db. A positive lockTimeout bounds how long a transaction
// waits for a row lock before failing with repository.ErrConflict.
func NewStore(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{
		repositories: newRepositories(db),
		db:           db,
		lockTimeout:  lockTimeout,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return translateError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	// After a successful Commit this is a no-op.
	defer tx.Rollback()

	if s.lockTimeout > 0 {
		// SET does not take bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return translateError(fmt.Errorf("failed to set lock timeout: %w", err))
		}
	}

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return translateError(err)
	}

	if err := tx.Commit(); err != nil {
		return translateError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn in a transaction of its own unless q already is one.
func inTx(ctx context.Context, q querier, fn func(q querier) error) error {
	db, ok := q.(*sql.DB)
	if !ok {
		return fn(q)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

// translateError maps Postgres error codes onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %w", repository.ErrConflict, err)
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
	default:
		return err
	}
}

func checkAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
