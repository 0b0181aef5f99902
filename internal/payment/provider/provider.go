// Package provider содержит адаптеры платёжных систем за единым интерфейсом.
// Каждый адаптер отвечает за формирование платежа и криптографическую
// проверку входящих уведомлений; бизнес-логика обработки живёт в service.
package provider

import (
	"context"
	"net/http"

	"example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/pkg/money"
)

// CallbackEvent — событие уведомления платёжной системы.
type CallbackEvent string

const (
	// EventSucceeded — платёж успешно завершён.
	EventSucceeded CallbackEvent = "succeeded"

	// EventCanceled — платёж отменён или отклонён.
	EventCanceled CallbackEvent = "canceled"

	// EventWaitingForCapture — средства захолдированы (только ЮKassa).
	EventWaitingForCapture CallbackEvent = "waiting_for_capture"
)

// CreatePaymentRequest — данные для создания платежа.
type CreatePaymentRequest struct {
	OrderID     string      // ID заказа
	OrderNumber string      // Номер заказа (попадает в описание платежа)
	Amount      money.Money // Сумма к оплате
	Description string      // Описание платежа для покупателя
}

// CreatePaymentResult — результат создания платежа.
type CreatePaymentResult struct {
	PaymentID  string // Идентификатор платежа в платёжной системе
	PaymentURL string // URL для редиректа покупателя на оплату
}

// Callback — разобранное и проверенное уведомление платёжной системы.
// Провайдер возвращает его только после успешной проверки подписи.
type Callback struct {
	PaymentID string        // Идентификатор платежа
	Amount    money.Money   // Сумма из уведомления
	Event     CallbackEvent // Событие
}

// Provider — единый интерфейс платёжной системы.
type Provider interface {
	// Name возвращает имя платёжной системы.
	Name() domain.PaymentSystem

	// CreatePayment регистрирует платёж и возвращает URL для редиректа.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)

	// ParseCallback проверяет подпись и разбирает уведомление.
	// Неверная подпись — domain.ErrSignatureMismatch, нечитаемое
	// уведомление — domain.ErrMalformedCallback. Тело запроса
	// читается целиком; состояние системы не меняется.
	ParseCallback(r *http.Request) (*Callback, error)
}
