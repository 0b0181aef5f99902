// Package domain содержит unit тесты для доменных сущностей заказа.
package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pku-shop/pkg/money"
)

// validOrder возвращает валидный заказ в статусе pending.
func validOrder() *Order {
	return &Order{
		ID:              "order-uuid-123",
		OrderNumber:     "ORD-1A2B3C4D",
		UserID:          "user-uuid-123",
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
		ShippingAddress: "Москва, ул. Пушкина, д. 1",
		Items: []OrderItem{
			{
				ID:          "item-1",
				OrderID:     "order-uuid-123",
				ProductID:   "product-1",
				ProductName: "Мука низкобелковая",
				Quantity:    2,
				Price:       money.New(15000),
			},
		},
	}
}

// =====================================
// Тесты Order.Validate
// =====================================

// TestOrder_Validate тестирует валидацию заказа.
func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(o *Order)
		expectedErr error
	}{
		{
			name:        "валидные данные",
			mutate:      func(o *Order) {},
			expectedErr: nil,
		},
		{
			name:        "пустой UserID",
			mutate:      func(o *Order) { o.UserID = "  " },
			expectedErr: ErrInvalidUserID,
		},
		{
			name:        "пустой адрес доставки",
			mutate:      func(o *Order) { o.ShippingAddress = "" },
			expectedErr: ErrEmptyShippingAddress,
		},
		{
			name:        "пустой список позиций",
			mutate:      func(o *Order) { o.Items = nil },
			expectedErr: ErrEmptyOrder,
		},
		{
			name:        "позиция с нулевым количеством",
			mutate:      func(o *Order) { o.Items[0].Quantity = 0 },
			expectedErr: ErrInvalidQuantity,
		},
		{
			name:        "позиция с нулевой ценой",
			mutate:      func(o *Order) { o.Items[0].Price = money.New(0) },
			expectedErr: ErrInvalidPrice,
		},
		{
			name:        "позиция без названия",
			mutate:      func(o *Order) { o.Items[0].ProductName = "" },
			expectedErr: ErrInvalidProductName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := validOrder()
			tt.mutate(order)

			err := order.Validate()

			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

// TestOrder_CalculateTotal тестирует расчёт итоговой суммы.
func TestOrder_CalculateTotal(t *testing.T) {
	order := validOrder()
	order.Items = append(order.Items, OrderItem{
		ProductID:   "product-2",
		ProductName: "Хлебная смесь",
		Quantity:    1,
		Price:       money.New(45000),
	})

	order.CalculateTotal()

	// 2 * 150.00 + 1 * 450.00 = 750.00
	assert.Equal(t, int64(75000), order.TotalAmount.Amount)
	assert.Equal(t, money.DefaultCurrency, order.TotalAmount.Currency)
}

// =====================================
// Тесты переходов статусов
// =====================================

// TestOrder_MarkPaid тестирует подтверждение оплаты.
func TestOrder_MarkPaid(t *testing.T) {
	order := validOrder()

	require.True(t, order.CanMarkPaid())
	require.NoError(t, order.MarkPaid())

	assert.Equal(t, OrderStatusPaid, order.Status)
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)

	// Повторная оплата невозможна
	assert.False(t, order.CanMarkPaid())
	assert.ErrorIs(t, order.MarkPaid(), ErrOrderCannotPay)
}

// TestOrder_MarkPaymentFailed тестирует неудачную оплату.
// Статус заказа остаётся pending — покупатель может повторить оплату.
func TestOrder_MarkPaymentFailed(t *testing.T) {
	order := validOrder()

	order.MarkPaymentFailed()

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, PaymentStatusFailed, order.PaymentStatus)
	assert.True(t, order.CanMarkPaid(), "после неудачи оплату можно повторить")
}

// TestOrder_Lifecycle тестирует полный жизненный цикл заказа:
// pending → paid → processing → shipped → delivered.
func TestOrder_Lifecycle(t *testing.T) {
	order := validOrder()

	require.NoError(t, order.MarkPaid())

	require.True(t, order.CanStartProcessing())
	require.NoError(t, order.StartProcessing("CDEK-123"))
	assert.Equal(t, OrderStatusProcessing, order.Status)
	assert.Equal(t, "CDEK-123", order.DeliveryTracking)

	require.True(t, order.CanShip())
	require.NoError(t, order.MarkShipped())
	assert.Equal(t, OrderStatusShipped, order.Status)

	require.True(t, order.CanDeliver())
	require.NoError(t, order.MarkDelivered())
	assert.Equal(t, OrderStatusDelivered, order.Status)
}

// TestOrder_InvalidTransitions тестирует запрещённые переходы статусов.
func TestOrder_InvalidTransitions(t *testing.T) {
	t.Run("доставка неоплаченного заказа", func(t *testing.T) {
		order := validOrder()
		assert.ErrorIs(t, order.StartProcessing("X"), ErrOrderNotPaid)
		assert.ErrorIs(t, order.MarkShipped(), ErrInvalidStatusTransition)
		assert.ErrorIs(t, order.MarkDelivered(), ErrInvalidStatusTransition)
	})

	t.Run("отмена оплаченного заказа", func(t *testing.T) {
		order := validOrder()
		require.NoError(t, order.MarkPaid())
		assert.ErrorIs(t, order.Cancel(), ErrOrderCannotCancel)
	})

	t.Run("отмена заказа в pending", func(t *testing.T) {
		order := validOrder()
		require.NoError(t, order.Cancel())
		assert.Equal(t, OrderStatusCancelled, order.Status)
	})

	t.Run("shipped минуя processing допустим для оплаченного", func(t *testing.T) {
		order := validOrder()
		require.NoError(t, order.MarkPaid())
		assert.NoError(t, order.MarkShipped())
	})
}

// =====================================
// Тесты GenerateOrderNumber
// =====================================

// TestGenerateOrderNumber тестирует формат номера заказа.
func TestGenerateOrderNumber(t *testing.T) {
	number := GenerateOrderNumber()

	assert.True(t, strings.HasPrefix(number, "ORD-"), "номер должен начинаться с ORD-")
	assert.Len(t, number, 12, "ORD- плюс 8 hex символов")

	suffix := strings.TrimPrefix(number, "ORD-")
	assert.Equal(t, strings.ToUpper(suffix), suffix, "hex в верхнем регистре")
	for _, c := range suffix {
		assert.Contains(t, "0123456789ABCDEF", string(c))
	}
}

// TestGenerateOrderNumber_Unique тестирует практическую уникальность номеров.
func TestGenerateOrderNumber_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		number := GenerateOrderNumber()
		assert.False(t, seen[number], "повтор номера %s", number)
		seen[number] = true
	}
}

// TestOrderItem_Subtotal тестирует стоимость позиции.
func TestOrderItem_Subtotal(t *testing.T) {
	item := OrderItem{Quantity: 3, Price: money.New(15000)}
	assert.Equal(t, int64(45000), item.Subtotal().Amount)
}
