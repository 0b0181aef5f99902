// Package service содержит unit тесты для OrderService.
package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	cartdomain "example.com/pku-shop/internal/cart/domain"
	catalogdomain "example.com/pku-shop/internal/catalog/domain"
	"example.com/pku-shop/internal/order/domain"
	"example.com/pku-shop/internal/testutil"
	"example.com/pku-shop/pkg/money"
	"example.com/pku-shop/pkg/outbox"
)

// Общие моки репозиториев из testutil (DRY)
type (
	MockOrderRepository   = testutil.MockOrderRepository
	MockCartRepository    = testutil.MockCartRepository
	MockProductRepository = testutil.MockProductRepository
	MockOutboxRepository  = testutil.MockOutboxRepository
)

// =====================================
// Вспомогательные функции
// =====================================

// setupMockDB создаёт мок базы данных с GORM.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Ошибка создания sqlmock")

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Ошибка инициализации GORM")

	return gormDB, mock, func() { _ = db.Close() }
}

// userCart возвращает корзину пользователя user-uuid-1.
func userCart() *cartdomain.Cart {
	return &cartdomain.Cart{ID: "cart-uuid-1", UserID: "user-uuid-1"}
}

// checkoutRequest возвращает валидный запрос оформления.
func checkoutRequest() CheckoutRequest {
	return CheckoutRequest{
		UserID:          "user-uuid-1",
		ShippingAddress: "Москва, ул. Пушкина, д. 1",
		DeliveryMethod:  "cdek",
	}
}

// flourProduct возвращает активный товар с остатком 10.
func flourProduct() *catalogdomain.Product {
	return &catalogdomain.Product{
		ID:            "product-1",
		Name:          "Мука низкобелковая",
		Slug:          "muka-nizkobelkovaya",
		Price:         money.New(15000),
		StockQuantity: 10,
		IsActive:      true,
	}
}

// =====================================
// Тесты Checkout
// =====================================

// TestOrderService_Checkout тестирует оформление заказа из корзины:
// снимок цен, списание остатков, очистка корзины и событие order.created
// в одной транзакции.
func TestOrderService_Checkout(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockOrders := new(MockOrderRepository)
	mockCarts := new(MockCartRepository)
	mockProducts := new(MockProductRepository)
	mockOutbox := new(MockOutboxRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockCarts.On("ListItemsForUpdate", mock.Anything, "cart-uuid-1").Return([]cartdomain.CartItem{
		{ID: "item-1", CartID: "cart-uuid-1", ProductID: "product-1", Quantity: 2},
	}, nil)
	mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(flourProduct(), nil)
	mockOrders.On("CreateInTx", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.UserID == "user-uuid-1" &&
			o.Status == domain.OrderStatusPending &&
			len(o.Items) == 1 &&
			o.Items[0].ProductName == "Мука низкобелковая" &&
			o.Items[0].Price.Amount == 15000 &&
			o.TotalAmount.Amount == 30000
	})).Return(nil)
	mockProducts.On("DecrementStock", mock.Anything, "product-1", int32(2)).Return(nil)
	mockCarts.On("ClearItems", mock.Anything, "cart-uuid-1").Return(nil)
	mockOutbox.On("CreateInTx", mock.Anything, mock.MatchedBy(func(record *outbox.Outbox) bool {
		return record.EventType == outbox.EventOrderCreated
	})).Return(nil)
	sqlMock.ExpectCommit()

	svc := NewOrderService(gormDB, mockOrders, mockCarts, mockProducts, mockOutbox)

	order, err := svc.Checkout(context.Background(), checkoutRequest())

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEmpty(t, order.ID)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, int64(30000), order.TotalAmount.Amount) // 2 * 150.00
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	mockOrders.AssertExpectations(t)
	mockCarts.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
	mockOutbox.AssertExpectations(t)
}

// TestOrderService_Checkout_EmptyCart тестирует оформление пустой корзины.
func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)
	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockCarts.On("ListItemsForUpdate", mock.Anything, "cart-uuid-1").Return([]cartdomain.CartItem{}, nil)
	sqlMock.ExpectRollback()

	svc := NewOrderService(gormDB, new(MockOrderRepository), mockCarts,
		new(MockProductRepository), new(MockOutboxRepository))

	_, err := svc.Checkout(context.Background(), checkoutRequest())

	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

// TestOrderService_Checkout_NoAddress тестирует оформление без адреса доставки.
func TestOrderService_Checkout_NoAddress(t *testing.T) {
	gormDB, _, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)

	svc := NewOrderService(gormDB, new(MockOrderRepository), mockCarts,
		new(MockProductRepository), new(MockOutboxRepository))

	req := checkoutRequest()
	req.ShippingAddress = ""
	_, err := svc.Checkout(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrEmptyShippingAddress)
	mockCarts.AssertNotCalled(t, "GetOrCreateByUserID")
}

// TestOrderService_Checkout_StockProblems тестирует проблемы с товарами:
// заказ не создаётся, транзакция откатывается.
func TestOrderService_Checkout_StockProblems(t *testing.T) {
	tests := []struct {
		name        string
		product     *catalogdomain.Product
		expectedErr error
	}{
		{
			name: "недостаточный остаток",
			product: func() *catalogdomain.Product {
				p := flourProduct()
				p.StockQuantity = 1 // в корзине 2
				return p
			}(),
			expectedErr: catalogdomain.ErrInsufficientStock,
		},
		{
			name: "товар снят с продажи",
			product: func() *catalogdomain.Product {
				p := flourProduct()
				p.IsActive = false
				return p
			}(),
			expectedErr: catalogdomain.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, sqlMock, cleanup := setupMockDB(t)
			defer cleanup()

			mockOrders := new(MockOrderRepository)
			mockCarts := new(MockCartRepository)
			mockProducts := new(MockProductRepository)

			mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

			sqlMock.ExpectBegin()
			mockCarts.On("ListItemsForUpdate", mock.Anything, "cart-uuid-1").Return([]cartdomain.CartItem{
				{ID: "item-1", CartID: "cart-uuid-1", ProductID: "product-1", Quantity: 2},
			}, nil)
			mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(tt.product, nil)
			sqlMock.ExpectRollback()

			svc := NewOrderService(gormDB, mockOrders, mockCarts, mockProducts, new(MockOutboxRepository))

			_, err := svc.Checkout(context.Background(), checkoutRequest())

			assert.ErrorIs(t, err, tt.expectedErr)
			mockOrders.AssertNotCalled(t, "CreateInTx")
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

// TestOrderService_Checkout_NumberRetry тестирует повтор генерации номера
// заказа при коллизии уникального индекса.
func TestOrderService_Checkout_NumberRetry(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockOrders := new(MockOrderRepository)
	mockCarts := new(MockCartRepository)
	mockProducts := new(MockProductRepository)
	mockOutbox := new(MockOutboxRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockCarts.On("ListItemsForUpdate", mock.Anything, "cart-uuid-1").Return([]cartdomain.CartItem{
		{ID: "item-1", CartID: "cart-uuid-1", ProductID: "product-1", Quantity: 1},
	}, nil)
	mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(flourProduct(), nil)

	// Первая вставка ловит коллизию номера, вторая проходит
	mockOrders.On("CreateInTx", mock.Anything, mock.Anything).
		Return(domain.ErrDuplicateOrderNumber).Once()
	mockOrders.On("CreateInTx", mock.Anything, mock.Anything).
		Return(nil).Once()

	mockProducts.On("DecrementStock", mock.Anything, "product-1", int32(1)).Return(nil)
	mockCarts.On("ClearItems", mock.Anything, "cart-uuid-1").Return(nil)
	mockOutbox.On("CreateInTx", mock.Anything, mock.Anything).Return(nil)
	sqlMock.ExpectCommit()

	svc := NewOrderService(gormDB, mockOrders, mockCarts, mockProducts, mockOutbox)

	order, err := svc.Checkout(context.Background(), checkoutRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderNumber)
	mockOrders.AssertNumberOfCalls(t, "CreateInTx", 2)
}

// =====================================
// Тесты GetOrder / ListOrders
// =====================================

// TestOrderService_GetOrder тестирует получение заказа с проверкой владельца.
func TestOrderService_GetOrder(t *testing.T) {
	gormDB, _, cleanup := setupMockDB(t)
	defer cleanup()

	order := &domain.Order{ID: "order-uuid-1", UserID: "user-uuid-1"}

	mockOrders := new(MockOrderRepository)
	mockOrders.On("GetByID", mock.Anything, "order-uuid-1").Return(order, nil)

	svc := NewOrderService(gormDB, mockOrders, new(MockCartRepository),
		new(MockProductRepository), new(MockOutboxRepository))

	t.Run("владелец", func(t *testing.T) {
		got, err := svc.GetOrder(context.Background(), "order-uuid-1", "user-uuid-1")
		require.NoError(t, err)
		assert.Equal(t, "order-uuid-1", got.ID)
	})

	t.Run("чужой заказ", func(t *testing.T) {
		_, err := svc.GetOrder(context.Background(), "order-uuid-1", "user-uuid-999")
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("админка без userID", func(t *testing.T) {
		got, err := svc.GetOrder(context.Background(), "order-uuid-1", "")
		require.NoError(t, err)
		assert.Equal(t, "order-uuid-1", got.ID)
	})
}

// TestOrderService_ListOrders тестирует нормализацию пагинации.
func TestOrderService_ListOrders(t *testing.T) {
	gormDB, _, cleanup := setupMockDB(t)
	defer cleanup()

	mockOrders := new(MockOrderRepository)
	// page=0 и pageSize=1000 нормализуются в offset=0, limit=20
	mockOrders.On("ListByUserID", mock.Anything, "user-uuid-1", 0, 20).
		Return([]*domain.Order{}, int64(0), nil)

	svc := NewOrderService(gormDB, mockOrders, new(MockCartRepository),
		new(MockProductRepository), new(MockOutboxRepository))

	_, total, err := svc.ListOrders(context.Background(), "user-uuid-1", 0, 1000)

	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	mockOrders.AssertExpectations(t)
}

// =====================================
// Тесты UpdateStatus
// =====================================

// paidOrder возвращает оплаченный заказ.
func paidOrder() *domain.Order {
	return &domain.Order{
		ID:            "order-uuid-1",
		OrderNumber:   "ORD-1A2B3C4D",
		UserID:        "user-uuid-1",
		Status:        domain.OrderStatusPaid,
		PaymentStatus: domain.PaymentStatusPaid,
		TotalAmount:   money.New(30000),
	}
}

// TestOrderService_UpdateStatus_Shipped тестирует отправку заказа:
// статус shipped публикует событие order.shipped.
func TestOrderService_UpdateStatus_Shipped(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockOrders := new(MockOrderRepository)
	mockOutbox := new(MockOutboxRepository)

	sqlMock.ExpectBegin()
	mockOrders.On("GetByIDForUpdate", mock.Anything, "order-uuid-1").Return(paidOrder(), nil)
	mockOrders.On("UpdateStatusInTx", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.OrderStatusShipped
	})).Return(nil)
	mockOutbox.On("CreateInTx", mock.Anything, mock.MatchedBy(func(record *outbox.Outbox) bool {
		return record.EventType == outbox.EventOrderShipped
	})).Return(nil)
	sqlMock.ExpectCommit()

	svc := NewOrderService(gormDB, mockOrders, new(MockCartRepository),
		new(MockProductRepository), mockOutbox)

	updated, err := svc.UpdateStatus(context.Background(), "order-uuid-1", domain.OrderStatusShipped)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
	mockOutbox.AssertExpectations(t)
}

// TestOrderService_UpdateStatus_Cancel тестирует отмену заказа:
// событие не публикуется, отмена возможна только из pending,
// списанные при оформлении остатки возвращаются в той же транзакции.
func TestOrderService_UpdateStatus_Cancel(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	pending := paidOrder()
	pending.Status = domain.OrderStatusPending
	pending.PaymentStatus = domain.PaymentStatusPending

	mockOrders := new(MockOrderRepository)
	mockProducts := new(MockProductRepository)
	mockOutbox := new(MockOutboxRepository)

	sqlMock.ExpectBegin()
	mockOrders.On("GetByIDForUpdate", mock.Anything, "order-uuid-1").Return(pending, nil)
	mockOrders.On("ListItemsInTx", mock.Anything, "order-uuid-1").Return([]domain.OrderItem{
		{ID: "item-1", OrderID: "order-uuid-1", ProductID: "product-1", Quantity: 2},
		{ID: "item-2", OrderID: "order-uuid-1", ProductID: "product-2", Quantity: 1},
	}, nil)
	mockProducts.On("IncrementStock", mock.Anything, "product-1", int32(2)).Return(nil)
	mockProducts.On("IncrementStock", mock.Anything, "product-2", int32(1)).Return(nil)
	mockOrders.On("UpdateStatusInTx", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.OrderStatusCancelled
	})).Return(nil)
	sqlMock.ExpectCommit()

	svc := NewOrderService(gormDB, mockOrders, new(MockCartRepository),
		mockProducts, mockOutbox)

	updated, err := svc.UpdateStatus(context.Background(), "order-uuid-1", domain.OrderStatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
	mockOutbox.AssertNotCalled(t, "CreateInTx")
	mockProducts.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

// TestOrderService_UpdateStatus_Rejected тестирует запрещённые переводы статуса.
func TestOrderService_UpdateStatus_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		order       *domain.Order
		target      domain.OrderStatus
		expectedErr error
		noTx        bool
	}{
		{
			name:        "paid управляется платёжным контуром",
			order:       paidOrder(),
			target:      domain.OrderStatusPaid,
			expectedErr: domain.ErrInvalidStatusTransition,
		},
		{
			name:        "несуществующий статус",
			order:       paidOrder(),
			target:      domain.OrderStatus("teleported"),
			expectedErr: domain.ErrInvalidStatusTransition,
			noTx:        true,
		},
		{
			name: "отмена оплаченного заказа",
			order: func() *domain.Order {
				return paidOrder()
			}(),
			target:      domain.OrderStatusCancelled,
			expectedErr: domain.ErrOrderCannotCancel,
		},
		{
			name: "отправка неоплаченного заказа",
			order: func() *domain.Order {
				o := paidOrder()
				o.Status = domain.OrderStatusPending
				o.PaymentStatus = domain.PaymentStatusPending
				return o
			}(),
			target:      domain.OrderStatusShipped,
			expectedErr: domain.ErrInvalidStatusTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, sqlMock, cleanup := setupMockDB(t)
			defer cleanup()

			mockOrders := new(MockOrderRepository)
			if !tt.noTx {
				sqlMock.ExpectBegin()
				mockOrders.On("GetByIDForUpdate", mock.Anything, "order-uuid-1").Return(tt.order, nil)
				sqlMock.ExpectRollback()
			}

			svc := NewOrderService(gormDB, mockOrders, new(MockCartRepository),
				new(MockProductRepository), new(MockOutboxRepository))

			_, err := svc.UpdateStatus(context.Background(), "order-uuid-1", tt.target)

			assert.ErrorIs(t, err, tt.expectedErr)
			mockOrders.AssertNotCalled(t, "UpdateStatusInTx")
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}
