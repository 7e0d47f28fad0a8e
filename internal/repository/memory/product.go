package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type productRepository struct {
	with accessor
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	return r.with(ctx, func(s *state) error {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, exists := s.products[p.ID]; exists {
			return repository.ErrDuplicate
		}
		s.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var found entity.Product
	err := r.with(ctx, func(s *state) error {
		p, ok := s.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error) {
	found := make(map[string]entity.Product, len(ids))
	err := r.with(ctx, func(s *state) error {
		for _, id := range ids {
			if p, ok := s.products[id]; ok {
				found[id] = p
			}
		}
		return nil
	})
	return found, err
}

// LockByIDs needs no row locks: a transaction already owns the whole store.
func (r *productRepository) LockByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error) {
	return r.FindByIDs(ctx, ids)
}

func (r *productRepository) List(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	var matched []entity.Product
	err := r.with(ctx, func(s *state) error {
		for _, p := range s.products {
			if filter.Matches(p) {
				matched = append(matched, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.SortBy == entity.SortByName {
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		} else if !a.Price.Equal(b.Price) {
			return a.Price.LessThan(b.Price)
		}
		return a.ID < b.ID
	})

	page := []entity.Product{}
	for i := filter.Offset(); i < len(matched) && len(page) < filter.PageSize; i++ {
		page = append(page, matched[i])
	}
	return page, nil
}

func (r *productRepository) ListAll(ctx context.Context) ([]entity.Product, error) {
	return r.collect(ctx, func(entity.Product) bool { return true })
}

func (r *productRepository) Search(ctx context.Context, keyword string) ([]entity.Product, error) {
	needle := strings.ToLower(keyword)
	return r.collect(ctx, func(p entity.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

// collect returns the products accepted by keep, ordered by name.
func (r *productRepository) collect(ctx context.Context, keep func(entity.Product) bool) ([]entity.Product, error) {
	products := []entity.Product{}
	err := r.with(ctx, func(s *state) error {
		for _, p := range s.products {
			if keep(p) {
				products = append(products, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	return r.with(ctx, func(s *state) error {
		if _, ok := s.products[p.ID]; !ok {
			return repository.ErrNotFound
		}
		s.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	return r.with(ctx, func(s *state) error {
		if _, ok := s.products[id]; !ok {
			return repository.ErrNotFound
		}
		delete(s.products, id)
		return nil
	})
}

func (r *productRepository) DecrementStock(ctx context.Context, id string, amount int) error {
	return r.with(ctx, func(s *state) error {
		p, ok := s.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		if p.Stock < amount {
			return repository.ErrInsufficientStock
		}
		p.Stock -= amount
		s.products[id] = p
		return nil
	})
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	return r.with(ctx, func(s *state) error {
		if len(s.products) > 0 {
			return nil
		}
		for i := range products {
			if products[i].ID == "" {
				products[i].ID = uuid.NewString()
			}
			s.products[products[i].ID] = products[i]
		}
		return nil
	})
}
