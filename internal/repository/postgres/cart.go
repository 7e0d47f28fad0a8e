package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type cartRepository struct {
	q querier
}

func (r *cartRepository) List(ctx context.Context, userID string) ([]entity.CartLine, error) {
	return r.list(ctx, "SELECT user_id, product_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY id", userID)
}

func (r *cartRepository) LockByUser(ctx context.Context, userID string) ([]entity.CartLine, error) {
	return r.list(ctx, "SELECT user_id, product_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY id FOR UPDATE", userID)
}

func (r *cartRepository) list(ctx context.Context, query, userID string) ([]entity.CartLine, error) {
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to query cart for user %s: %w", userID, err))
	}
	defer rows.Close()

	lines := []entity.CartLine{}
	for rows.Next() {
		var line entity.CartLine
		if err := rows.Scan(&line.UserID, &line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(fmt.Errorf("error iterating cart rows: %w", err))
	}
	return lines, nil
}

func (r *cartRepository) Get(ctx context.Context, userID, productID string) (*entity.CartLine, error) {
	var line entity.CartLine
	err := r.q.QueryRowContext(ctx,
		"SELECT user_id, product_id, quantity FROM cart_items WHERE user_id = $1 AND product_id = $2",
		userID, productID,
	).Scan(&line.UserID, &line.ProductID, &line.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}
	return &line, nil
}

func (r *cartRepository) Upsert(ctx context.Context, line *entity.CartLine) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		line.UserID, line.ProductID, line.Quantity,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to upsert cart line: %w", err))
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, userID, productID string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return translateError(fmt.Errorf("failed to delete cart line: %w", err))
	}
	return checkAffected(res)
}

func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
		return translateError(fmt.Errorf("failed to clear cart for user %s: %w", userID, err))
	}
	return nil
}

func (r *cartRepository) DeleteByProduct(ctx context.Context, productID string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM cart_items WHERE product_id = $1", productID); err != nil {
		return translateError(fmt.Errorf("failed to remove product %s from carts: %w", productID, err))
	}
	return nil
}
