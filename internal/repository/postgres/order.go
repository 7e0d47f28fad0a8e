package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const orderColumns = "id, user_id, total_amount, status, payment_method, created_at"

type orderRepository struct {
	q querier
}

func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	o.ID = uuid.NewString()
	// Postgres keeps microseconds; truncate so the caller holds what a read returns.
	o.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	return inTx(ctx, r.q, func(q querier) error {
		_, err := q.ExecContext(ctx,
			"INSERT INTO orders ("+orderColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
			o.ID, o.UserID, o.TotalAmount, o.Status, o.PaymentMethod, o.CreatedAt,
		)
		if err != nil {
			return translateError(fmt.Errorf("failed to insert order: %w", err))
		}

		stmt, err := q.PrepareContext(ctx,
			"INSERT INTO order_items (order_id, position, product_id, quantity, price_at_purchase) VALUES ($1, $2, $3, $4, $5)",
		)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i, item := range o.Items {
			if _, err := stmt.ExecContext(ctx, o.ID, i, item.ProductID, item.Quantity, item.PriceAtPurchase); err != nil {
				return translateError(fmt.Errorf("failed to insert order item: %w", err))
			}
		}
		return nil
	})
}

func scanOrder(row rowScanner) (entity.Order, error) {
	var o entity.Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentMethod, &o.CreatedAt)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, err
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) FindByID(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 AND user_id = $2",
		orderID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}

	orders := []entity.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachItems loads the items of all orders with one query.
func (r *orderRepository) attachItems(ctx context.Context, orders []entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []entity.OrderItem{}
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT order_id, product_id, quantity, price_at_purchase FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    entity.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order item rows: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID string, from, to entity.OrderStatus) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE orders SET status = $3 WHERE id = $1 AND status = $2",
		orderID, from, to,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to update order %s status: %w", orderID, err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check order %s: %w", orderID, err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return fmt.Errorf("%w: order %s is not %s", repository.ErrConflict, orderID, from)
}
