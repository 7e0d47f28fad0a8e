package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func TestDefaultCatalog(t *testing.T) {
	products, err := Load("")
	require.NoError(t, err)
	require.Len(t, products, 6)
	assert.Equal(t, "prod-001", products[0].ID)
	assert.True(t, decimal.RequireFromString("349.99").Equal(products[0].Price))
	assert.Equal(t, `Ultrawide Curved Monitor 34"`, products[2].Name)
}

func TestParseRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "price",
			doc:  "products:\n  - {name: A, category: C, price: cheap, stock: 1}\n",
			want: "invalid price",
		},
		{
			name: "negative stock",
			doc:  "products:\n  - {name: A, category: C, price: \"1\", stock: -1}\n",
			want: "stock",
		},
		{
			name: "unknown field",
			doc:  "products:\n  - {name: A, category: C, price: \"1\", colour: red}\n",
			want: "colour",
		},
		{
			name: "duplicate id",
			doc:  "products:\n  - {id: x, name: A, category: C, price: \"1\"}\n  - {id: x, name: B, category: C, price: \"2\"}\n",
			want: "duplicate id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProductsSeedsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "products:\n  - {id: p1, name: Mug, category: Kitchen, price: \"12.5\", stock: 4}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, Products(ctx, store.Products(), path))

	got, err := store.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", got.Name)
	assert.Equal(t, "Kitchen", got.Category)
	assert.True(t, decimal.RequireFromString("12.50").Equal(got.Price))
	assert.Equal(t, 4, got.Stock)
}
