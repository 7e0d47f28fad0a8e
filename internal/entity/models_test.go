package entity

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		status  OrderStatus
		wantErr bool
	}{
		{in: "COD", want: PaymentCashOnDelivery, status: OrderStatusPending},
		{in: "Online", want: PaymentOnline, status: OrderStatusPaid},
		{in: "online", wantErr: true},
		{in: "", wantErr: true},
		{in: "card", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParsePaymentMethod(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownPaymentMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
			assert.Equal(t, tt.status, m.InitialStatus())
		})
	}
}

func TestOrderStatusCanTransition(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusPaid))
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusPending.CanTransition(OrderStatusPending))
	assert.False(t, OrderStatusPaid.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransition(OrderStatusPaid))
}

func TestOrderItemsTotal(t *testing.T) {
	order := Order{Items: []OrderItem{
		{ProductID: "a", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10")},
		{ProductID: "b", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("5")},
		{ProductID: "c", Quantity: 3, PriceAtPurchase: decimal.RequireFromString("0.10")},
	}}

	assert.True(t, decimal.RequireFromString("25.30").Equal(order.ItemsTotal()), order.ItemsTotal().String())
}

func TestProductValidate(t *testing.T) {
	valid := Product{ID: "p1", Name: "Lamp", Category: "Home", Price: decimal.RequireFromString("19.99"), Stock: 3}

	tests := []struct {
		name    string
		mutate  func(p *Product)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Product) {}},
		{name: "free", mutate: func(p *Product) { p.Price = decimal.Zero }},
		{name: "trailing zeros", mutate: func(p *Product) { p.Price = decimal.RequireFromString("10.500") }},
		{name: "largest price", mutate: func(p *Product) { p.Price = decimal.RequireFromString("9999999999.99") }},
		{name: "largest stock", mutate: func(p *Product) { p.Stock = MaxStock }},
		{name: "three decimals", mutate: func(p *Product) { p.Price = decimal.RequireFromString("10.005") }, wantErr: true},
		{name: "price overflow", mutate: func(p *Product) { p.Price = decimal.RequireFromString("10000000000") }, wantErr: true},
		{name: "price far overflow", mutate: func(p *Product) { p.Price = decimal.RequireFromString("99999999999.99") }, wantErr: true},
		{name: "negative price", mutate: func(p *Product) { p.Price = decimal.RequireFromString("-0.01") }, wantErr: true},
		{name: "stock overflow", mutate: func(p *Product) { p.Stock = MaxStock + 1 }, wantErr: true},
		{name: "negative stock", mutate: func(p *Product) { p.Stock = -1 }, wantErr: true},
		{name: "blank category", mutate: func(p *Product) { p.Category = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidProduct)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProductPatchApply(t *testing.T) {
	base := Product{ID: "p1", Name: "Lamp", Category: "Home", Price: decimal.NewFromInt(20), Stock: 3}

	t.Run("applies only set fields", func(t *testing.T) {
		name := "Desk Lamp"
		stock := 9
		got, err := ProductPatch{Name: &name, Stock: &stock}.Apply(base)
		require.NoError(t, err)
		assert.Equal(t, "Desk Lamp", got.Name)
		assert.Equal(t, 9, got.Stock)
		assert.Equal(t, "Home", got.Category)
		assert.True(t, base.Price.Equal(got.Price))
		assert.Equal(t, "Lamp", base.Name, "source product must not change")
	})

	t.Run("rejects negative stock", func(t *testing.T) {
		stock := -1
		_, err := ProductPatch{Stock: &stock}.Apply(base)
		require.ErrorIs(t, err, ErrInvalidProduct)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		price := decimal.NewFromInt(-1)
		_, err := ProductPatch{Price: &price}.Apply(base)
		require.ErrorIs(t, err, ErrInvalidProduct)
	})

	t.Run("rejects sub-cent price", func(t *testing.T) {
		price := decimal.RequireFromString("10.005")
		_, err := ProductPatch{Price: &price}.Apply(base)
		require.ErrorIs(t, err, ErrInvalidProduct)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		name := "  "
		_, err := ProductPatch{Name: &name}.Apply(base)
		require.ErrorIs(t, err, ErrInvalidProduct)
	})

	t.Run("decodes from json", func(t *testing.T) {
		var patch ProductPatch
		require.NoError(t, json.Unmarshal([]byte(`{"price": 12.5}`), &patch))
		require.NotNil(t, patch.Price)
		assert.Nil(t, patch.Name)
		assert.False(t, patch.Empty())
		assert.True(t, ProductPatch{}.Empty())
	})
}

func TestProductFilterNormalize(t *testing.T) {
	f := ProductFilter{}
	require.NoError(t, f.Normalize())
	assert.Equal(t, SortByPrice, f.SortBy)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = ProductFilter{Page: 3, PageSize: 20, SortBy: SortByName}
	require.NoError(t, f.Normalize())
	assert.Equal(t, 40, f.Offset())

	for name, bad := range map[string]ProductFilter{
		"sort":      {SortBy: "stock"},
		"page":      {Page: -1},
		"page size": {PageSize: MaxPageSize + 1},
		"bounds":    {MinPrice: decPtr("10"), MaxPrice: decPtr("5")},
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, bad.Normalize(), ErrInvalidFilter)
		})
	}
}

func TestProductFilterMatches(t *testing.T) {
	p := Product{Category: "Home", Price: decimal.NewFromInt(50)}

	assert.True(t, (&ProductFilter{}).Matches(p))
	assert.True(t, (&ProductFilter{Category: "Home", MinPrice: decPtr("50"), MaxPrice: decPtr("50")}).Matches(p))
	assert.False(t, (&ProductFilter{Category: "Toys"}).Matches(p))
	assert.False(t, (&ProductFilter{MinPrice: decPtr("50.01")}).Matches(p))
	assert.False(t, (&ProductFilter{MaxPrice: decPtr("49.99")}).Matches(p))
}

func TestPaymentEventTargetStatus(t *testing.T) {
	status, err := PaymentEvent{Outcome: PaymentSettled}.TargetStatus()
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPaid, status)

	status, err = PaymentEvent{Outcome: PaymentFailed}.TargetStatus()
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, status)

	_, err = PaymentEvent{Outcome: "refunded"}.TargetStatus()
	require.Error(t, err)
}

func TestNewOutboxRecord(t *testing.T) {
	rec, err := NewOutboxRecord(TopicOrdersPlaced, "o1", OrderPlaced{OrderID: "o1", TotalAmount: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.EventID)
	assert.Equal(t, "OrderPlaced", rec.EventType)
	assert.Equal(t, "o1", rec.Key)

	var decoded OrderPlaced
	require.NoError(t, json.Unmarshal(rec.Payload, &decoded))
	assert.Equal(t, "o1", decoded.OrderID)
	assert.True(t, decimal.NewFromInt(3).Equal(decoded.TotalAmount))
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
