// Package repository содержит реализацию доступа к данным платежей.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/pkg/money"
)

// PaymentRepository определяет интерфейс для работы с платёжными транзакциями.
type PaymentRepository interface {
	// Create создаёт новую платёжную транзакцию.
	// Возвращает ErrDuplicatePaymentID при коллизии payment_id.
	Create(ctx context.Context, transaction *domain.PaymentTransaction) error

	// GetByPaymentID возвращает транзакцию по идентификатору платежа.
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentTransaction, error)

	// GetByPaymentIDForUpdate возвращает транзакцию с блокировкой строки.
	// Вызывается только внутри транзакции БД.
	GetByPaymentIDForUpdate(tx *gorm.DB, paymentID string) (*domain.PaymentTransaction, error)

	// ListByOrderID возвращает транзакции заказа (новые первыми).
	ListByOrderID(ctx context.Context, orderID string) ([]*domain.PaymentTransaction, error)

	// UpdateStatusInTx обновляет статус транзакции внутри транзакции БД.
	UpdateStatusInTx(tx *gorm.DB, transaction *domain.PaymentTransaction) error
}

// PaymentTransactionModel — GORM модель для таблицы payment_transactions.
type PaymentTransactionModel struct {
	ID            string    `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderID       string    `gorm:"column:order_id;type:varchar(36);not null;index"`
	PaymentID     string    `gorm:"column:payment_id;type:varchar(100);not null;uniqueIndex"`
	Amount        int64     `gorm:"column:amount;not null"`
	Currency      string    `gorm:"column:currency;type:varchar(3);not null"`
	Status        string    `gorm:"column:status;type:varchar(30);not null;index"`
	PaymentSystem string    `gorm:"column:payment_system;type:varchar(20);not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *PaymentTransactionModel) toDomain() *domain.PaymentTransaction {
	return &domain.PaymentTransaction{
		ID:        m.ID,
		OrderID:   m.OrderID,
		PaymentID: m.PaymentID,
		Amount: money.Money{
			Amount:   m.Amount,
			Currency: m.Currency,
		},
		Status:        domain.TransactionStatus(m.Status),
		PaymentSystem: domain.PaymentSystem(m.PaymentSystem),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// modelFromDomain конвертирует доменную сущность в GORM модель.
func modelFromDomain(t *domain.PaymentTransaction) *PaymentTransactionModel {
	return &PaymentTransactionModel{
		ID:            t.ID,
		OrderID:       t.OrderID,
		PaymentID:     t.PaymentID,
		Amount:        t.Amount.Amount,
		Currency:      t.Amount.Currency,
		Status:        string(t.Status),
		PaymentSystem: string(t.PaymentSystem),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// paymentRepository — GORM реализация PaymentRepository.
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository создаёт новый репозиторий платежей.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create создаёт новую платёжную транзакцию.
func (r *paymentRepository) Create(ctx context.Context, transaction *domain.PaymentTransaction) error {
	model := modelFromDomain(transaction)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrDuplicatePaymentID
		}
		return err
	}

	transaction.CreatedAt = model.CreatedAt
	transaction.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByPaymentID возвращает транзакцию по идентификатору платежа.
func (r *paymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentTransaction, error) {
	var model PaymentTransactionModel

	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByPaymentIDForUpdate возвращает транзакцию с блокировкой строки.
// Параллельные уведомления по одному платежу встают в очередь на блокировке
// и видят конечный статус, выставленный первым из них.
func (r *paymentRepository) GetByPaymentIDForUpdate(tx *gorm.DB, paymentID string) (*domain.PaymentTransaction, error) {
	var model PaymentTransactionModel

	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_id = ?", paymentID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// ListByOrderID возвращает транзакции заказа (новые первыми).
func (r *paymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]*domain.PaymentTransaction, error) {
	var models []PaymentTransactionModel

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	transactions := make([]*domain.PaymentTransaction, len(models))
	for i := range models {
		transactions[i] = models[i].toDomain()
	}
	return transactions, nil
}

// UpdateStatusInTx обновляет статус транзакции внутри транзакции БД.
func (r *paymentRepository) UpdateStatusInTx(tx *gorm.DB, transaction *domain.PaymentTransaction) error {
	result := tx.Model(&PaymentTransactionModel{}).
		Where("id = ?", transaction.ID).
		Updates(map[string]interface{}{
			"status":     string(transaction.Status),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTransactionNotFound
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
