package memory

import (
	"context"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type cartRepository struct {
	with accessor
}

func (r *cartRepository) List(ctx context.Context, userID string) ([]entity.CartLine, error) {
	lines := []entity.CartLine{}
	err := r.with(ctx, func(s *state) error {
		lines = append(lines, s.carts[userID]...)
		return nil
	})
	return lines, err
}

func (r *cartRepository) LockByUser(ctx context.Context, userID string) ([]entity.CartLine, error) {
	return r.List(ctx, userID)
}

func (r *cartRepository) Get(ctx context.Context, userID, productID string) (*entity.CartLine, error) {
	var found entity.CartLine
	err := r.with(ctx, func(s *state) error {
		for _, line := range s.carts[userID] {
			if line.ProductID == productID {
				found = line
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *cartRepository) Upsert(ctx context.Context, line *entity.CartLine) error {
	return r.with(ctx, func(s *state) error {
		lines := s.carts[line.UserID]
		for i := range lines {
			if lines[i].ProductID == line.ProductID {
				lines[i].Quantity = line.Quantity
				return nil
			}
		}
		s.carts[line.UserID] = append(lines, *line)
		return nil
	})
}

func (r *cartRepository) Delete(ctx context.Context, userID, productID string) error {
	return r.with(ctx, func(s *state) error {
		lines := s.carts[userID]
		for i := range lines {
			if lines[i].ProductID == productID {
				s.carts[userID] = append(lines[:i:i], lines[i+1:]...)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	return r.with(ctx, func(s *state) error {
		delete(s.carts, userID)
		return nil
	})
}

func (r *cartRepository) DeleteByProduct(ctx context.Context, productID string) error {
	return r.with(ctx, func(s *state) error {
		for userID, lines := range s.carts {
			kept := lines[:0:0]
			for _, line := range lines {
				if line.ProductID != productID {
					kept = append(kept, line)
				}
			}
			s.carts[userID] = kept
		}
		return nil
	})
}
