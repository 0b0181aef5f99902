package domain

import "errors"

// Доменные ошибки платежей.
// Используются для передачи бизнес-ошибок между слоями приложения.
var (
	// ErrTransactionNotFound возвращается, когда транзакция не найдена.
	ErrTransactionNotFound = errors.New("платёжная транзакция не найдена")

	// ErrTransactionFinalized возвращается при попытке изменить транзакцию
	// в конечном статусе.
	ErrTransactionFinalized = errors.New("транзакция уже завершена")

	// ErrOrderNotPayable возвращается при попытке оплатить заказ,
	// который уже оплачен или не подлежит оплате.
	ErrOrderNotPayable = errors.New("заказ не подлежит оплате")

	// ErrUnknownProvider возвращается при неизвестной платёжной системе.
	ErrUnknownProvider = errors.New("неизвестная платёжная система")

	// ErrSignatureMismatch возвращается при неверной подписи уведомления.
	// Состояние системы при этом не меняется.
	ErrSignatureMismatch = errors.New("неверная подпись уведомления")

	// ErrAmountMismatch возвращается, когда сумма уведомления
	// не совпадает с суммой заказа.
	ErrAmountMismatch = errors.New("сумма платежа не совпадает с суммой заказа")

	// ErrMalformedCallback возвращается при нечитаемом уведомлении.
	ErrMalformedCallback = errors.New("некорректный формат уведомления")

	// ErrCallbackInProgress возвращается, когда параллельное уведомление
	// по тому же платежу уже обрабатывается.
	ErrCallbackInProgress = errors.New("уведомление уже обрабатывается")

	// ErrProviderUnavailable возвращается при недоступности платёжной системы.
	ErrProviderUnavailable = errors.New("платёжная система недоступна")

	// ErrDuplicatePaymentID возвращается при коллизии идентификатора платежа.
	ErrDuplicatePaymentID = errors.New("платёж с таким идентификатором уже существует")
)
