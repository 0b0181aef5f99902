// Package repository содержит реализацию доступа к данным доставки.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/pku-shop/internal/delivery/domain"
)

// DeliveryRepository определяет интерфейс для работы с заявками на доставку.
type DeliveryRepository interface {
	// CreateInTx создаёт заявку внутри транзакции.
	// Возвращает ErrDeliveryAlreadyExists при существующей заявке заказа.
	CreateInTx(tx *gorm.DB, request *domain.DeliveryRequest) error

	// GetByOrderID возвращает заявку по ID заказа.
	GetByOrderID(ctx context.Context, orderID string) (*domain.DeliveryRequest, error)

	// GetByCdekOrderID возвращает заявку по идентификатору СДЭК.
	GetByCdekOrderID(ctx context.Context, cdekOrderID string) (*domain.DeliveryRequest, error)

	// GetByCdekOrderIDForUpdate возвращает заявку с блокировкой строки.
	// Вызывается только внутри транзакции.
	GetByCdekOrderIDForUpdate(tx *gorm.DB, cdekOrderID string) (*domain.DeliveryRequest, error)

	// UpdateInTx обновляет статус и трек-номер заявки внутри транзакции.
	UpdateInTx(tx *gorm.DB, request *domain.DeliveryRequest) error
}

// DeliveryRequestModel — GORM модель для таблицы delivery_requests.
type DeliveryRequestModel struct {
	ID             string    `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderID        string    `gorm:"column:order_id;type:varchar(36);not null;uniqueIndex"`
	CdekOrderID    string    `gorm:"column:cdek_order_id;type:varchar(36);not null;uniqueIndex"`
	TrackingNumber string    `gorm:"column:tracking_number;type:varchar(100)"`
	Status         string    `gorm:"column:status;type:varchar(20);not null;index"`
	PickupPoint    string    `gorm:"column:pickup_point;type:varchar(50)"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (DeliveryRequestModel) TableName() string {
	return "delivery_requests"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *DeliveryRequestModel) toDomain() *domain.DeliveryRequest {
	return &domain.DeliveryRequest{
		ID:             m.ID,
		OrderID:        m.OrderID,
		CdekOrderID:    m.CdekOrderID,
		TrackingNumber: m.TrackingNumber,
		Status:         domain.DeliveryStatus(m.Status),
		PickupPoint:    m.PickupPoint,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// modelFromDomain конвертирует доменную сущность в GORM модель.
func modelFromDomain(d *domain.DeliveryRequest) *DeliveryRequestModel {
	return &DeliveryRequestModel{
		ID:             d.ID,
		OrderID:        d.OrderID,
		CdekOrderID:    d.CdekOrderID,
		TrackingNumber: d.TrackingNumber,
		Status:         string(d.Status),
		PickupPoint:    d.PickupPoint,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// deliveryRepository — GORM реализация DeliveryRepository.
type deliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository создаёт новый репозиторий доставки.
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

// CreateInTx создаёт заявку внутри транзакции.
// Гонка двух параллельных созданий ловится уникальным индексом order_id.
func (r *deliveryRepository) CreateInTx(tx *gorm.DB, request *domain.DeliveryRequest) error {
	model := modelFromDomain(request)

	if err := tx.Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrDeliveryAlreadyExists
		}
		return err
	}

	request.CreatedAt = model.CreatedAt
	request.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByOrderID возвращает заявку по ID заказа.
func (r *deliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.DeliveryRequest, error) {
	var model DeliveryRequestModel

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByCdekOrderID возвращает заявку по идентификатору СДЭК.
func (r *deliveryRepository) GetByCdekOrderID(ctx context.Context, cdekOrderID string) (*domain.DeliveryRequest, error) {
	var model DeliveryRequestModel

	if err := r.db.WithContext(ctx).
		Where("cdek_order_id = ?", cdekOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByCdekOrderIDForUpdate возвращает заявку с блокировкой строки.
func (r *deliveryRepository) GetByCdekOrderIDForUpdate(tx *gorm.DB, cdekOrderID string) (*domain.DeliveryRequest, error) {
	var model DeliveryRequestModel

	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cdek_order_id = ?", cdekOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// UpdateInTx обновляет статус и трек-номер заявки внутри транзакции.
func (r *deliveryRepository) UpdateInTx(tx *gorm.DB, request *domain.DeliveryRequest) error {
	result := tx.Model(&DeliveryRequestModel{}).
		Where("id = ?", request.ID).
		Updates(map[string]interface{}{
			"status":          string(request.Status),
			"tracking_number": request.TrackingNumber,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDeliveryNotFound
	}
	return nil
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
