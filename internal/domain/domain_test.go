package domain

import (
	"math"
	"testing"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderFromCart(t *testing.T) {
	cart := []CartItem{
		{ProductID: 1, Quantity: 2, Product: &Product{ID: 1, Price: 1250}},
		{ProductID: 2, Quantity: 1, Product: &Product{ID: 2, Price: 99}},
		{ProductID: 3, Quantity: 4}, // товар удалён, строка пропускается
	}

	order, err := NewOrderFromCart(7, cart)
	require.NoError(t, err)

	assert.Equal(t, int64(7), order.UserID)
	assert.Equal(t, int64(2*1250+99), order.TotalAmount)
	assert.Equal(t, []OrderItem{
		{ProductID: 1, Quantity: 2, Price: 1250},
		{ProductID: 2, Quantity: 1, Price: 99},
	}, order.Items)
}

func TestNewOrderFromCart_Overflow(t *testing.T) {
	tests := []struct {
		name string
		cart []CartItem
	}{
		{
			name: "line total",
			cart: []CartItem{{ProductID: 1, Quantity: 100_000_000, Product: &Product{Price: 100_000_000_000}}},
		},
		{
			name: "sum of lines",
			cart: []CartItem{
				{ProductID: 1, Quantity: 1, Product: &Product{Price: math.MaxInt64 - 10}},
				{ProductID: 2, Quantity: 1, Product: &Product{Price: 11}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrderFromCart(1, tt.cart)
			require.ErrorIs(t, err, e.ErrOrderTotalOverflow)
			assert.Nil(t, order)
		})
	}

	order, err := NewOrderFromCart(1, []CartItem{
		{ProductID: 1, Quantity: 1, Product: &Product{Price: math.MaxInt64 - 10}},
		{ProductID: 2, Quantity: 1, Product: &Product{Price: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), order.TotalAmount)
}

func TestProductPage_Pages(t *testing.T) {
	tests := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProductPage{Total: tt.total, PerPage: tt.perPage}.Pages(), "total=%d per_page=%d", tt.total, tt.perPage)
	}
}

func TestProductFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, ProductFilter{Page: 1, PerPage: 20}.Offset())
	assert.Equal(t, 40, ProductFilter{Page: 3, PerPage: 20}.Offset())
}

func TestNewProduct_DefaultImage(t *testing.T) {
	assert.Equal(t, DefaultImageURL, NewProduct(1, 2, "Lamp", "", 100, "").ImageURL)
	assert.Equal(t, "https://cdn/x.png", NewProduct(1, 2, "Lamp", "", 100, "https://cdn/x.png").ImageURL)
}
