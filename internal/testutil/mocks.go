// Package testutil содержит общие моки репозиториев для unit-тестов.
// Моки вынесены сюда для избежания дублирования (DRY): одни и те же
// репозитории нужны тестам сервисов заказов, платежей и доставки.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	cartdomain "example.com/pku-shop/internal/cart/domain"
	catalogdomain "example.com/pku-shop/internal/catalog/domain"
	catalogrepo "example.com/pku-shop/internal/catalog/repository"
	deliverydomain "example.com/pku-shop/internal/delivery/domain"
	orderdomain "example.com/pku-shop/internal/order/domain"
	orderrepo "example.com/pku-shop/internal/order/repository"
	paymentdomain "example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/pkg/outbox"
)

// =============================================================================
// MockOrderRepository — мок для repository.OrderRepository
// =============================================================================

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateInTx(tx *gorm.DB, order *orderdomain.Order) error {
	return m.Called(tx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*orderdomain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderdomain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*orderdomain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderdomain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIDForUpdate(tx *gorm.DB, orderID string) (*orderdomain.Order, error) {
	args := m.Called(tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderdomain.Order), args.Error(1)
}

func (m *MockOrderRepository) ListItemsInTx(tx *gorm.DB, orderID string) ([]orderdomain.OrderItem, error) {
	args := m.Called(tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orderdomain.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) ListByUserID(ctx context.Context, userID string, offset, limit int) ([]*orderdomain.Order, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*orderdomain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) List(ctx context.Context, filter orderrepo.OrderFilter) ([]*orderdomain.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*orderdomain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatusInTx(tx *gorm.DB, order *orderdomain.Order) error {
	return m.Called(tx, order).Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *orderdomain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetStatistics(ctx context.Context) (*orderrepo.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderrepo.Statistics), args.Error(1)
}

// =============================================================================
// MockPaymentRepository — мок для repository.PaymentRepository
// =============================================================================

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, transaction *paymentdomain.PaymentTransaction) error {
	return m.Called(ctx, transaction).Error(0)
}

func (m *MockPaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*paymentdomain.PaymentTransaction, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentdomain.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentRepository) GetByPaymentIDForUpdate(tx *gorm.DB, paymentID string) (*paymentdomain.PaymentTransaction, error) {
	args := m.Called(tx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentdomain.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]*paymentdomain.PaymentTransaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*paymentdomain.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatusInTx(tx *gorm.DB, transaction *paymentdomain.PaymentTransaction) error {
	return m.Called(tx, transaction).Error(0)
}

// =============================================================================
// MockCartRepository — мок для repository.CartRepository
// =============================================================================

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetOrCreateByUserID(ctx context.Context, userID string) (*cartdomain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartdomain.Cart), args.Error(1)
}

func (m *MockCartRepository) GetByUserID(ctx context.Context, userID string) (*cartdomain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartdomain.Cart), args.Error(1)
}

func (m *MockCartRepository) GetItemForUpdate(tx *gorm.DB, cartID, productID string) (*cartdomain.CartItem, error) {
	args := m.Called(tx, cartID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartdomain.CartItem), args.Error(1)
}

func (m *MockCartRepository) ListItemsForUpdate(tx *gorm.DB, cartID string) ([]cartdomain.CartItem, error) {
	args := m.Called(tx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cartdomain.CartItem), args.Error(1)
}

func (m *MockCartRepository) CreateItem(tx *gorm.DB, item *cartdomain.CartItem) error {
	return m.Called(tx, item).Error(0)
}

func (m *MockCartRepository) UpdateItemQuantity(tx *gorm.DB, itemID string, quantity int32) error {
	return m.Called(tx, itemID, quantity).Error(0)
}

func (m *MockCartRepository) DeleteItem(tx *gorm.DB, cartID, productID string) error {
	return m.Called(tx, cartID, productID).Error(0)
}

func (m *MockCartRepository) ClearItems(tx *gorm.DB, cartID string) error {
	return m.Called(tx, cartID).Error(0)
}

// =============================================================================
// MockProductRepository — мок для repository.ProductRepository
// =============================================================================

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, productID string) (*catalogdomain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySlug(ctx context.Context, slug string) (*catalogdomain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDForUpdate(tx *gorm.DB, productID string) (*catalogdomain.Product, error) {
	args := m.Called(tx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogdomain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter catalogrepo.ProductFilter) ([]*catalogdomain.Product, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*catalogdomain.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Create(ctx context.Context, product *catalogdomain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *catalogdomain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) DecrementStock(tx *gorm.DB, productID string, quantity int32) error {
	return m.Called(tx, productID, quantity).Error(0)
}

func (m *MockProductRepository) IncrementStock(tx *gorm.DB, productID string, quantity int32) error {
	return m.Called(tx, productID, quantity).Error(0)
}

// =============================================================================
// MockDeliveryRepository — мок для repository.DeliveryRepository
// =============================================================================

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) CreateInTx(tx *gorm.DB, request *deliverydomain.DeliveryRequest) error {
	return m.Called(tx, request).Error(0)
}

func (m *MockDeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*deliverydomain.DeliveryRequest, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deliverydomain.DeliveryRequest), args.Error(1)
}

func (m *MockDeliveryRepository) GetByCdekOrderID(ctx context.Context, cdekOrderID string) (*deliverydomain.DeliveryRequest, error) {
	args := m.Called(ctx, cdekOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deliverydomain.DeliveryRequest), args.Error(1)
}

func (m *MockDeliveryRepository) GetByCdekOrderIDForUpdate(tx *gorm.DB, cdekOrderID string) (*deliverydomain.DeliveryRequest, error) {
	args := m.Called(tx, cdekOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deliverydomain.DeliveryRequest), args.Error(1)
}

func (m *MockDeliveryRepository) UpdateInTx(tx *gorm.DB, request *deliverydomain.DeliveryRequest) error {
	return m.Called(tx, request).Error(0)
}

// =============================================================================
// MockOutboxRepository — мок для outbox.OutboxRepository
// =============================================================================

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, record *outbox.Outbox) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockOutboxRepository) CreateInTx(tx *gorm.DB, record *outbox.Outbox) error {
	return m.Called(tx, record).Error(0)
}

func (m *MockOutboxRepository) GetUnprocessed(ctx context.Context, limit int) ([]*outbox.Outbox, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Outbox), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id string, err error) error {
	return m.Called(ctx, id, err).Error(0)
}

func (m *MockOutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
