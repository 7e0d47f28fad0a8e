package entity

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds of the products table columns: price NUMERIC(12,2), stock INT.
const (
	PriceDecimals = 2
	MaxStock      = math.MaxInt32
)

var maxPrice = decimal.New(1, 10)

// Validate checks the invariants every stored product must satisfy.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidProduct)
	}
	if !p.Price.Equal(p.Price.Round(PriceDecimals)) {
		return fmt.Errorf("%w: price must have at most %d decimal places", ErrInvalidProduct, PriceDecimals)
	}
	if p.Price.GreaterThanOrEqual(maxPrice) {
		return fmt.Errorf("%w: price must be below %s", ErrInvalidProduct, maxPrice)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must be >= 0", ErrInvalidProduct)
	}
	if p.Stock > MaxStock {
		return fmt.Errorf("%w: stock must be <= %d", ErrInvalidProduct, MaxStock)
	}
	return nil
}

// ProductPatch lists the fields an admin may change on a product.
// Nil fields are left untouched.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"`
	Category    *string          `json:"category"`
	Stock       *int             `json:"stock"`
}

// Apply returns p with the patch applied. p itself is not modified,
// and no field is applied if any of them is invalid.
func (patch ProductPatch) Apply(p Product) (Product, error) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Empty reports whether the patch changes nothing.
func (patch ProductPatch) Empty() bool {
	return patch.Name == nil && patch.Description == nil && patch.Price == nil &&
		patch.ImageURL == nil && patch.Category == nil && patch.Stock == nil
}

// ProductSort is the ordering of a public product listing.
type ProductSort string

const (
	SortByPrice ProductSort = "price"
	SortByName  ProductSort = "name"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ProductFilter narrows and pages a product listing.
type ProductFilter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   ProductSort
	Page     int
	PageSize int
}

// Normalize fills defaults and rejects out-of-range values.
func (f *ProductFilter) Normalize() error {
	switch f.SortBy {
	case "":
		f.SortBy = SortByPrice
	case SortByPrice, SortByName:
	default:
		return fmt.Errorf("%w: sort_by must be price or name", ErrInvalidFilter)
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidFilter)
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidFilter, MaxPageSize)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return fmt.Errorf("%w: min_price must not exceed max_price", ErrInvalidFilter)
	}
	return nil
}

// Offset is the number of rows skipped before the current page.
func (f *ProductFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Matches reports whether p passes the category and price bounds.
func (f *ProductFilter) Matches(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}
