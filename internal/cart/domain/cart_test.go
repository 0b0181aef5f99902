// Package domain содержит unit тесты для доменных сущностей корзины.
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/pku-shop/pkg/money"
)

// TestCart_Totals тестирует инвариант корзины:
// TotalAmount и TotalItems считаются из позиций, а не хранятся.
func TestCart_Totals(t *testing.T) {
	cart := &Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items: []CartItem{
			{ProductID: "product-1", ProductPrice: money.New(15000), Quantity: 2},
			{ProductID: "product-2", ProductPrice: money.New(45000), Quantity: 1},
		},
	}

	assert.Equal(t, int32(3), cart.TotalItems())

	total := cart.TotalAmount()
	assert.Equal(t, int64(75000), total.Amount) // 2*150.00 + 450.00
	assert.Equal(t, money.DefaultCurrency, total.Currency)
	assert.False(t, cart.IsEmpty())
}

// TestCart_EmptyTotals тестирует пустую корзину.
func TestCart_EmptyTotals(t *testing.T) {
	cart := &Cart{ID: "cart-1", UserID: "user-1"}

	assert.True(t, cart.IsEmpty())
	assert.Equal(t, int32(0), cart.TotalItems())

	total := cart.TotalAmount()
	assert.Equal(t, int64(0), total.Amount)
	assert.Equal(t, money.DefaultCurrency, total.Currency)
}

// TestCart_FindItem тестирует поиск позиции по товару.
func TestCart_FindItem(t *testing.T) {
	cart := &Cart{
		Items: []CartItem{
			{ProductID: "product-1", Quantity: 2},
		},
	}

	item := cart.FindItem("product-1")
	assert.NotNil(t, item)
	assert.Equal(t, int32(2), item.Quantity)

	assert.Nil(t, cart.FindItem("product-404"))
}

// TestCartItem_Validate тестирует валидацию позиции корзины.
func TestCartItem_Validate(t *testing.T) {
	tests := []struct {
		name        string
		item        CartItem
		expectedErr error
	}{
		{
			name:        "валидная позиция",
			item:        CartItem{ProductID: "product-1", Quantity: 1},
			expectedErr: nil,
		},
		{
			name:        "пустой ProductID",
			item:        CartItem{Quantity: 1},
			expectedErr: ErrInvalidProductID,
		},
		{
			name:        "нулевое количество",
			item:        CartItem{ProductID: "product-1", Quantity: 0},
			expectedErr: ErrInvalidQuantity,
		},
		{
			name:        "отрицательное количество",
			item:        CartItem{ProductID: "product-1", Quantity: -2},
			expectedErr: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

// TestCartItem_Subtotal тестирует стоимость позиции.
func TestCartItem_Subtotal(t *testing.T) {
	item := CartItem{ProductPrice: money.New(15000), Quantity: 3}
	assert.Equal(t, int64(45000), item.Subtotal().Amount)
}
