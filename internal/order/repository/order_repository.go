// Package repository содержит реализацию доступа к данным заказов.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/pku-shop/internal/order/domain"
	"example.com/pku-shop/pkg/money"
)

// OrderFilter — фильтры списка заказов (админка).
type OrderFilter struct {
	UserID        string                // Фильтр по пользователю (пусто — все)
	Status        *domain.OrderStatus   // Фильтр по статусу заказа
	PaymentStatus *domain.PaymentStatus // Фильтр по статусу оплаты
	Search        string                // Поиск по номеру заказа и адресу
	Offset        int
	Limit         int
}

// Statistics — сводные показатели по заказам.
type Statistics struct {
	TotalOrders    int64                        // Всего заказов
	OrdersByStatus map[domain.OrderStatus]int64 // Количество заказов по статусам
	Revenue        money.Money                  // Выручка по оплаченным заказам
}

// OrderRepository определяет интерфейс для работы с заказами в БД.
type OrderRepository interface {
	// CreateInTx создаёт заказ с позициями внутри переданной транзакции.
	// Возвращает ErrDuplicateOrderNumber при коллизии номера заказа.
	CreateInTx(tx *gorm.DB, order *domain.Order) error

	// GetByID возвращает заказ по ID с загруженными позициями.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// GetByOrderNumber возвращает заказ по номеру с загруженными позициями.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// GetByIDForUpdate возвращает заказ по ID с блокировкой строки.
	// Позиции не загружаются. Вызывается только внутри транзакции.
	GetByIDForUpdate(tx *gorm.DB, orderID string) (*domain.Order, error)

	// ListItemsInTx возвращает позиции заказа внутри переданной транзакции.
	// Дополняет GetByIDForUpdate, когда нужны позиции под блокировкой заказа.
	ListItemsInTx(tx *gorm.DB, orderID string) ([]domain.OrderItem, error)

	// ListByUserID возвращает заказы пользователя с пагинацией.
	ListByUserID(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error)

	// List возвращает заказы по фильтру с пагинацией (админка).
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int64, error)

	// UpdateStatusInTx обновляет статусы заказа внутри транзакции.
	UpdateStatusInTx(tx *gorm.DB, order *domain.Order) error

	// UpdateStatus обновляет статусы заказа вне транзакции.
	UpdateStatus(ctx context.Context, order *domain.Order) error

	// GetStatistics возвращает сводные показатели по заказам.
	GetStatistics(ctx context.Context) (*Statistics, error)
}

// OrderModel — GORM модель для таблицы orders.
// Отделена от доменной сущности для гибкости.
type OrderModel struct {
	ID               string           `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderNumber      string           `gorm:"column:order_number;type:varchar(20);not null;uniqueIndex"`
	UserID           string           `gorm:"column:user_id;type:varchar(36);not null;index"`
	Status           string           `gorm:"column:status;type:varchar(20);not null;index"`
	PaymentStatus    string           `gorm:"column:payment_status;type:varchar(20);not null;index"`
	TotalAmount      int64            `gorm:"column:total_amount;not null"`
	Currency         string           `gorm:"column:currency;type:varchar(3);not null"`
	ShippingAddress  string           `gorm:"column:shipping_address;type:text;not null"`
	DeliveryMethod   string           `gorm:"column:delivery_method;type:varchar(50)"`
	Notes            string           `gorm:"column:notes;type:text"`
	DeliveryTracking string           `gorm:"column:delivery_tracking;type:varchar(100)"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	Items            []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName возвращает имя таблицы в БД.
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel — GORM модель для таблицы order_items.
type OrderItemModel struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderID     string    `gorm:"column:order_id;type:varchar(36);not null;index"`
	ProductID   string    `gorm:"column:product_id;type:varchar(36);not null"`
	ProductName string    `gorm:"column:product_name;type:varchar(255);not null"`
	Quantity    int32     `gorm:"column:quantity;not null"`
	Price       int64     `gorm:"column:price;not null"`
	Currency    string    `gorm:"column:currency;type:varchar(3);not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName возвращает имя таблицы в БД.
func (OrderItemModel) TableName() string {
	return "order_items"
}

// toDomain конвертирует GORM модель заказа в доменную сущность.
func (m *OrderModel) toDomain() *domain.Order {
	order := &domain.Order{
		ID:            m.ID,
		OrderNumber:   m.OrderNumber,
		UserID:        m.UserID,
		Status:        domain.OrderStatus(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		TotalAmount: money.Money{
			Amount:   m.TotalAmount,
			Currency: m.Currency,
		},
		ShippingAddress:  m.ShippingAddress,
		DeliveryMethod:   m.DeliveryMethod,
		Notes:            m.Notes,
		DeliveryTracking: m.DeliveryTracking,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		Items:            make([]domain.OrderItem, len(m.Items)),
	}

	for i, item := range m.Items {
		order.Items[i] = domain.OrderItem{
			ID:          item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price: money.Money{
				Amount:   item.Price,
				Currency: item.Currency,
			},
		}
	}

	return order
}

// orderModelFromDomain конвертирует доменную сущность заказа в GORM модель.
func orderModelFromDomain(o *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		TotalAmount:      o.TotalAmount.Amount,
		Currency:         o.TotalAmount.Currency,
		ShippingAddress:  o.ShippingAddress,
		DeliveryMethod:   o.DeliveryMethod,
		Notes:            o.Notes,
		DeliveryTracking: o.DeliveryTracking,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Items:            make([]OrderItemModel, len(o.Items)),
	}

	for i, item := range o.Items {
		model.Items[i] = OrderItemModel{
			ID:          item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.Amount,
			Currency:    item.Price.Currency,
		}
	}

	return model
}

// orderRepository — GORM реализация OrderRepository.
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateInTx создаёт заказ с позициями внутри переданной транзакции.
func (r *orderRepository) CreateInTx(tx *gorm.DB, order *domain.Order) error {
	model := orderModelFromDomain(order)

	if err := tx.Create(model).Error; err != nil {
		// Коллизия номера заказа (MySQL error 1062) — вызывающий код
		// перегенерирует номер и повторит вставку
		if isDuplicateKeyError(err) {
			return domain.ErrDuplicateOrderNumber
		}
		return err
	}

	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID возвращает заказ по ID с загруженными позициями.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel

	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByOrderNumber возвращает заказ по номеру с загруженными позициями.
func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var model OrderModel

	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByIDForUpdate возвращает заказ с блокировкой строки (без позиций).
func (r *orderRepository) GetByIDForUpdate(tx *gorm.DB, id string) (*domain.Order, error) {
	var model OrderModel

	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// ListItemsInTx возвращает позиции заказа внутри переданной транзакции.
func (r *orderRepository) ListItemsInTx(tx *gorm.DB, orderID string) ([]domain.OrderItem, error) {
	var models []OrderItemModel

	if err := tx.
		Where("order_id = ?", orderID).
		Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(models))
	for i, m := range models {
		items[i] = domain.OrderItem{
			ID:          m.ID,
			OrderID:     m.OrderID,
			ProductID:   m.ProductID,
			ProductName: m.ProductName,
			Quantity:    m.Quantity,
			Price: money.Money{
				Amount:   m.Price,
				Currency: m.Currency,
			},
		}
	}

	return items, nil
}

// ListByUserID возвращает список заказов пользователя с пагинацией.
func (r *orderRepository) ListByUserID(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error) {
	return r.List(ctx, OrderFilter{
		UserID: userID,
		Offset: offset,
		Limit:  limit,
	})
}

// List возвращает заказы по фильтру с пагинацией.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int64, error) {
	var models []OrderModel
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&OrderModel{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", string(*filter.PaymentStatus))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("order_number LIKE ? OR shipping_address LIKE ?", pattern, pattern)
	}

	// Подсчёт общего количества записей (до пагинации)
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	// Новые заказы первыми
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = models[i].toDomain()
	}

	return orders, totalCount, nil
}

// UpdateStatusInTx обновляет статусы заказа внутри транзакции.
func (r *orderRepository) UpdateStatusInTx(tx *gorm.DB, order *domain.Order) error {
	result := tx.Model(&OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":            string(order.Status),
			"payment_status":    string(order.PaymentStatus),
			"delivery_tracking": order.DeliveryTracking,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// UpdateStatus обновляет статусы заказа вне транзакции.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	return r.UpdateStatusInTx(r.db.WithContext(ctx), order)
}

// statusCountRow — строка агрегации количества заказов по статусам.
type statusCountRow struct {
	Status string `gorm:"column:status"`
	Count  int64  `gorm:"column:count"`
}

// GetStatistics возвращает сводные показатели по заказам.
func (r *orderRepository) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		OrdersByStatus: make(map[domain.OrderStatus]int64),
		Revenue:        money.Money{Currency: money.DefaultCurrency},
	}

	var rows []statusCountRow
	if err := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		stats.OrdersByStatus[domain.OrderStatus(row.Status)] = row.Count
		stats.TotalOrders += row.Count
	}

	// Выручка считается по факту оплаты, независимо от статуса доставки
	var revenue int64
	if err := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("payment_status = ?", string(domain.PaymentStatusPaid)).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	stats.Revenue.Amount = revenue

	return stats, nil
}

// isDuplicateKeyError проверяет, является ли ошибка дубликатом ключа.
// MySQL возвращает ошибку с кодом 1062 при попытке вставить дубликат.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "1062")
}
