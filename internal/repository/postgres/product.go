package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const productColumns = "id, name, description, price, image_url, category, stock"

type productRepository struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category, &p.Stock)
	return p, err
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Category, p.Stock,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert product: %w", err))
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product %s: %w", id, err)
	}
	return &p, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error) {
	return r.findByIDs(ctx, "SELECT "+productColumns+" FROM products WHERE id = ANY($1)", ids)
}

func (r *productRepository) LockByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error) {
	return r.findByIDs(ctx, "SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
}

func (r *productRepository) findByIDs(ctx context.Context, query string, ids []string) (map[string]entity.Product, error) {
	products := make(map[string]entity.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to query products: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(fmt.Errorf("error iterating product rows: %w", err))
	}
	return products, nil
}

func (r *productRepository) List(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= "+arg(*filter.MaxPrice))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.SortBy == entity.SortByName {
		query += " ORDER BY name, id"
	} else {
		query += " ORDER BY price, id"
	}
	query += " LIMIT " + arg(filter.PageSize) + " OFFSET " + arg(filter.Offset())

	return r.query(ctx, query, args...)
}

func (r *productRepository) ListAll(ctx context.Context) ([]entity.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products ORDER BY name, id")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *productRepository) Search(ctx context.Context, keyword string) ([]entity.Product, error) {
	pattern := "%" + likeEscaper.Replace(keyword) + "%"
	return r.query(ctx, "SELECT "+productColumns+" FROM products WHERE name ILIKE $1 ORDER BY name, id", pattern)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]entity.Product, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE products SET name = $2, description = $3, price = $4, image_url = $5, category = $6, stock = $7 WHERE id = $1",
		p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Category, p.Stock,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to update product %s: %w", p.ID, err))
	}
	return checkAffected(res)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return translateError(fmt.Errorf("failed to delete product %s: %w", id, err))
	}
	return checkAffected(res)
}

func (r *productRepository) DecrementStock(ctx context.Context, id string, amount int) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
		amount, id,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to update product stock: %w", err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists); err != nil {
		return translateError(fmt.Errorf("failed to check product %s: %w", id, err))
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrInsufficientStock
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil // already seeded
	}

	for i := range products {
		if err := r.Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
	}
	return nil
}
