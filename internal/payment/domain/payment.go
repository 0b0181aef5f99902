// Package domain содержит бизнес-сущности и доменные ошибки платежей.
package domain

import (
	"time"

	"example.com/pku-shop/pkg/money"
)

// PaymentSystem — платёжная система.
type PaymentSystem string

const (
	// PaymentSystemRobokassa — Робокасса (MD5-подпись, form-encoded callback).
	PaymentSystemRobokassa PaymentSystem = "robokassa"

	// PaymentSystemYooKassa — ЮKassa (HMAC-SHA256, JSON callback).
	PaymentSystemYooKassa PaymentSystem = "yookassa"
)

// IsValid проверяет, что платёжная система поддерживается.
func (ps PaymentSystem) IsValid() bool {
	return ps == PaymentSystemRobokassa || ps == PaymentSystemYooKassa
}

// TransactionStatus — статус платёжной транзакции.
type TransactionStatus string

const (
	// TransactionStatusPending — платёж создан, ожидает оплаты.
	TransactionStatusPending TransactionStatus = "pending"

	// TransactionStatusWaitingForCapture — средства захолдированы,
	// ожидается подтверждение списания (только ЮKassa).
	TransactionStatusWaitingForCapture TransactionStatus = "waiting_for_capture"

	// TransactionStatusSucceeded — платёж успешно завершён.
	TransactionStatusSucceeded TransactionStatus = "succeeded"

	// TransactionStatusCanceled — платёж отменён или отклонён.
	TransactionStatusCanceled TransactionStatus = "canceled"
)

// IsTerminal возвращает true для конечных статусов.
// Уведомления по транзакции в конечном статусе игнорируются (идемпотентность).
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSucceeded || s == TransactionStatusCanceled
}

// PaymentTransaction — платёжная транзакция.
// Одна транзакция соответствует одной попытке оплаты заказа.
type PaymentTransaction struct {
	ID            string            // Уникальный идентификатор (UUID)
	OrderID       string            // ID оплачиваемого заказа
	PaymentID     string            // Идентификатор платежа в платёжной системе (уникальный)
	Amount        money.Money       // Сумма платежа (равна сумме заказа)
	Status        TransactionStatus // Текущий статус транзакции
	PaymentSystem PaymentSystem     // Платёжная система
	CreatedAt     time.Time         // Дата создания
	UpdatedAt     time.Time         // Дата последнего обновления
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Из конечного статуса переходы запрещены; waiting_for_capture
// допускается только из pending.
func (t *PaymentTransaction) CanTransitionTo(status TransactionStatus) bool {
	if t.Status.IsTerminal() {
		return false
	}
	if status == TransactionStatusWaitingForCapture {
		return t.Status == TransactionStatusPending
	}
	return status == TransactionStatusSucceeded || status == TransactionStatusCanceled
}

// MarkSucceeded помечает транзакцию успешной.
func (t *PaymentTransaction) MarkSucceeded() error {
	if !t.CanTransitionTo(TransactionStatusSucceeded) {
		return ErrTransactionFinalized
	}
	t.Status = TransactionStatusSucceeded
	t.UpdatedAt = time.Now()
	return nil
}

// MarkCanceled помечает транзакцию отменённой.
func (t *PaymentTransaction) MarkCanceled() error {
	if !t.CanTransitionTo(TransactionStatusCanceled) {
		return ErrTransactionFinalized
	}
	t.Status = TransactionStatusCanceled
	t.UpdatedAt = time.Now()
	return nil
}

// MarkWaitingForCapture помечает транзакцию ожидающей подтверждения.
func (t *PaymentTransaction) MarkWaitingForCapture() error {
	if !t.CanTransitionTo(TransactionStatusWaitingForCapture) {
		return ErrTransactionFinalized
	}
	t.Status = TransactionStatusWaitingForCapture
	t.UpdatedAt = time.Now()
	return nil
}
