// Package service содержит unit тесты для CartService.
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
	"example.com/pku-shop/internal/testutil"
	"example.com/pku-shop/pkg/money"
)

// Общие моки репозиториев из testutil (DRY)
type (
	MockCartRepository    = testutil.MockCartRepository
	MockProductRepository = testutil.MockProductRepository
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

func userCart() *cartdomain.Cart {
	return &cartdomain.Cart{ID: "cart-uuid-1", UserID: "user-uuid-1"}
}

// flourProduct возвращает активный товар с остатком 5.
func flourProduct() *catalogdomain.Product {
	return &catalogdomain.Product{
		ID:            "product-1",
		Name:          "Мука низкобелковая",
		Price:         money.New(15000),
		StockQuantity: 5,
		IsActive:      true,
	}
}

// =====================================
// Тесты AddItem
// =====================================

// TestCartService_AddItem тестирует добавление нового товара в корзину.
func TestCartService_AddItem(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)
	mockProducts := new(MockProductRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(flourProduct(), nil)
	mockCarts.On("GetItemForUpdate", mock.Anything, "cart-uuid-1", "product-1").
		Return(nil, cartdomain.ErrCartItemNotFound)
	mockCarts.On("CreateItem", mock.Anything, mock.MatchedBy(func(item *cartdomain.CartItem) bool {
		return item.CartID == "cart-uuid-1" && item.ProductID == "product-1" && item.Quantity == 2
	})).Return(nil)
	sqlMock.ExpectCommit()

	mockCarts.On("GetByUserID", mock.Anything, "user-uuid-1").Return(&cartdomain.Cart{
		ID:     "cart-uuid-1",
		UserID: "user-uuid-1",
		Items: []cartdomain.CartItem{
			{ProductID: "product-1", ProductPrice: money.New(15000), Quantity: 2},
		},
	}, nil)

	svc := NewCartService(gormDB, mockCarts, mockProducts)

	cart, err := svc.AddItem(context.Background(), "user-uuid-1", "product-1", 2)

	require.NoError(t, err)
	assert.Equal(t, int32(2), cart.TotalItems())
	assert.Equal(t, int64(30000), cart.TotalAmount().Amount)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	mockCarts.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

// TestCartService_AddItem_ClampedToStock тестирует ограничение количества
// остатком на складе: запрошено больше, чем есть.
func TestCartService_AddItem_ClampedToStock(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)
	mockProducts := new(MockProductRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(flourProduct(), nil)
	mockCarts.On("GetItemForUpdate", mock.Anything, "cart-uuid-1", "product-1").
		Return(nil, cartdomain.ErrCartItemNotFound)
	// Запрошено 100, остаток 5 — в корзину попадает 5
	mockCarts.On("CreateItem", mock.Anything, mock.MatchedBy(func(item *cartdomain.CartItem) bool {
		return item.Quantity == 5
	})).Return(nil)
	sqlMock.ExpectCommit()

	mockCarts.On("GetByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	svc := NewCartService(gormDB, mockCarts, mockProducts)

	_, err := svc.AddItem(context.Background(), "user-uuid-1", "product-1", 100)

	require.NoError(t, err)
	mockCarts.AssertExpectations(t)
}

// TestCartService_AddItem_ExistingItem тестирует увеличение количества
// существующей позиции с ограничением остатком.
func TestCartService_AddItem_ExistingItem(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)
	mockProducts := new(MockProductRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(flourProduct(), nil)
	mockCarts.On("GetItemForUpdate", mock.Anything, "cart-uuid-1", "product-1").
		Return(&cartdomain.CartItem{ID: "item-1", CartID: "cart-uuid-1", ProductID: "product-1", Quantity: 3}, nil)
	// 3 + 4 = 7 > остаток 5 — итог 5
	mockCarts.On("UpdateItemQuantity", mock.Anything, "item-1", int32(5)).Return(nil)
	sqlMock.ExpectCommit()

	mockCarts.On("GetByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	svc := NewCartService(gormDB, mockCarts, mockProducts)

	_, err := svc.AddItem(context.Background(), "user-uuid-1", "product-1", 4)

	require.NoError(t, err)
	mockCarts.AssertExpectations(t)
}

// TestCartService_AddItem_Rejected тестирует отказы при добавлении.
func TestCartService_AddItem_Rejected(t *testing.T) {
	t.Run("нулевое количество", func(t *testing.T) {
		gormDB, _, cleanup := setupMockDB(t)
		defer cleanup()

		svc := NewCartService(gormDB, new(MockCartRepository), new(MockProductRepository))

		_, err := svc.AddItem(context.Background(), "user-uuid-1", "product-1", 0)
		assert.ErrorIs(t, err, cartdomain.ErrInvalidQuantity)
	})

	t.Run("товар снят с продажи", func(t *testing.T) {
		gormDB, sqlMock, cleanup := setupMockDB(t)
		defer cleanup()

		inactive := flourProduct()
		inactive.IsActive = false

		mockCarts := new(MockCartRepository)
		mockProducts := new(MockProductRepository)
		mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

		sqlMock.ExpectBegin()
		mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(inactive, nil)
		sqlMock.ExpectRollback()

		svc := NewCartService(gormDB, mockCarts, mockProducts)

		_, err := svc.AddItem(context.Background(), "user-uuid-1", "product-1", 1)
		assert.ErrorIs(t, err, catalogdomain.ErrProductNotFound)
		mockCarts.AssertNotCalled(t, "CreateItem")
	})

	t.Run("нулевой остаток", func(t *testing.T) {
		gormDB, sqlMock, cleanup := setupMockDB(t)
		defer cleanup()

		outOfStock := flourProduct()
		outOfStock.StockQuantity = 0

		mockCarts := new(MockCartRepository)
		mockProducts := new(MockProductRepository)
		mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

		sqlMock.ExpectBegin()
		mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(outOfStock, nil)
		sqlMock.ExpectRollback()

		svc := NewCartService(gormDB, mockCarts, mockProducts)

		_, err := svc.AddItem(context.Background(), "user-uuid-1", "product-1", 1)
		assert.ErrorIs(t, err, cartdomain.ErrProductOutOfStock)
	})
}

// =====================================
// Тесты UpdateQuantity
// =====================================

// TestCartService_UpdateQuantity тестирует установку количества позиции.
func TestCartService_UpdateQuantity(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)
	mockProducts := new(MockProductRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockCarts.On("GetItemForUpdate", mock.Anything, "cart-uuid-1", "product-1").
		Return(&cartdomain.CartItem{ID: "item-1", CartID: "cart-uuid-1", ProductID: "product-1", Quantity: 1}, nil)
	mockProducts.On("GetByIDForUpdate", mock.Anything, "product-1").Return(flourProduct(), nil)
	mockCarts.On("UpdateItemQuantity", mock.Anything, "item-1", int32(3)).Return(nil)
	sqlMock.ExpectCommit()

	mockCarts.On("GetByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	svc := NewCartService(gormDB, mockCarts, mockProducts)

	_, err := svc.UpdateQuantity(context.Background(), "user-uuid-1", "product-1", 3)

	require.NoError(t, err)
	mockCarts.AssertExpectations(t)
}

// TestCartService_UpdateQuantity_ZeroDeletes тестирует удаление позиции
// нулевым количеством.
func TestCartService_UpdateQuantity_ZeroDeletes(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)
	mockProducts := new(MockProductRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockCarts.On("GetItemForUpdate", mock.Anything, "cart-uuid-1", "product-1").
		Return(&cartdomain.CartItem{ID: "item-1", CartID: "cart-uuid-1", ProductID: "product-1", Quantity: 2}, nil)
	mockCarts.On("DeleteItem", mock.Anything, "cart-uuid-1", "product-1").Return(nil)
	sqlMock.ExpectCommit()

	mockCarts.On("GetByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	svc := NewCartService(gormDB, mockCarts, mockProducts)

	_, err := svc.UpdateQuantity(context.Background(), "user-uuid-1", "product-1", 0)

	require.NoError(t, err)
	mockProducts.AssertNotCalled(t, "GetByIDForUpdate")
	mockCarts.AssertExpectations(t)
}

// TestCartService_UpdateQuantity_NotFound тестирует изменение отсутствующей позиции.
func TestCartService_UpdateQuantity_NotFound(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockCarts.On("GetItemForUpdate", mock.Anything, "cart-uuid-1", "product-404").
		Return(nil, cartdomain.ErrCartItemNotFound)
	sqlMock.ExpectRollback()

	svc := NewCartService(gormDB, mockCarts, new(MockProductRepository))

	_, err := svc.UpdateQuantity(context.Background(), "user-uuid-1", "product-404", 3)

	assert.ErrorIs(t, err, cartdomain.ErrCartItemNotFound)
}

// =====================================
// Тесты RemoveItem
// =====================================

// TestCartService_RemoveItem тестирует удаление позиции.
// Повторное удаление той же позиции не является ошибкой.
func TestCartService_RemoveItem(t *testing.T) {
	gormDB, sqlMock, cleanup := setupMockDB(t)
	defer cleanup()

	mockCarts := new(MockCartRepository)

	mockCarts.On("GetOrCreateByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	sqlMock.ExpectBegin()
	mockCarts.On("DeleteItem", mock.Anything, "cart-uuid-1", "product-1").Return(nil)
	sqlMock.ExpectCommit()

	mockCarts.On("GetByUserID", mock.Anything, "user-uuid-1").Return(userCart(), nil)

	svc := NewCartService(gormDB, mockCarts, new(MockProductRepository))

	cart, err := svc.RemoveItem(context.Background(), "user-uuid-1", "product-1")

	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	mockCarts.AssertExpectations(t)
}
