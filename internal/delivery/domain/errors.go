package domain

import "errors"

// Доменные ошибки доставки.
var (
	// ErrDeliveryNotFound возвращается, когда заявка на доставку не найдена.
	ErrDeliveryNotFound = errors.New("заявка на доставку не найдена")

	// ErrDeliveryAlreadyExists возвращается при повторном создании
	// заявки для одного заказа.
	ErrDeliveryAlreadyExists = errors.New("заявка на доставку уже создана")

	// ErrInvalidPickupPoint возвращается при пустом коде пункта выдачи.
	ErrInvalidPickupPoint = errors.New("не указан пункт выдачи")

	// ErrUnknownCdekStatus возвращается при неизвестном статусе СДЭК.
	ErrUnknownCdekStatus = errors.New("неизвестный статус СДЭК")

	// ErrProviderUnavailable возвращается при недоступности API СДЭК.
	ErrProviderUnavailable = errors.New("служба доставки недоступна")
)
