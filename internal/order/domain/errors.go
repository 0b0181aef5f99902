package domain

import "errors"

// Доменные ошибки заказов.
// Используются для передачи бизнес-ошибок между слоями приложения.
var (
	// ErrOrderNotFound возвращается, когда заказ не найден в базе данных.
	ErrOrderNotFound = errors.New("заказ не найден")

	// ErrEmptyOrder возвращается при попытке оформить заказ из пустой корзины.
	ErrEmptyOrder = errors.New("корзина пуста")

	// ErrEmptyShippingAddress возвращается при пустом адресе доставки.
	ErrEmptyShippingAddress = errors.New("адрес доставки не может быть пустым")

	// ErrInvalidUserID возвращается при пустом идентификаторе пользователя.
	ErrInvalidUserID = errors.New("некорректный идентификатор пользователя")

	// ErrInvalidProductID возвращается при пустом идентификаторе товара.
	ErrInvalidProductID = errors.New("некорректный идентификатор товара")

	// ErrInvalidProductName возвращается при пустом названии товара.
	ErrInvalidProductName = errors.New("название товара не может быть пустым")

	// ErrInvalidQuantity возвращается, когда количество товара меньше или равно нулю.
	ErrInvalidQuantity = errors.New("количество должно быть больше нуля")

	// ErrInvalidPrice возвращается, когда цена товара меньше или равна нулю.
	ErrInvalidPrice = errors.New("цена должна быть больше нуля")

	// ErrOrderCannotPay возвращается при попытке оплатить заказ в неподходящем статусе.
	ErrOrderCannotPay = errors.New("заказ нельзя оплатить в текущем статусе")

	// ErrOrderNotPaid возвращается, когда операция требует оплаченный заказ.
	ErrOrderNotPaid = errors.New("заказ не оплачен")

	// ErrOrderCannotCancel возвращается при попытке отменить заказ в неподходящем статусе.
	ErrOrderCannotCancel = errors.New("заказ нельзя отменить в текущем статусе")

	// ErrInvalidStatusTransition возвращается при недопустимом переходе статуса.
	ErrInvalidStatusTransition = errors.New("недопустимый переход статуса заказа")

	// ErrAccessDenied возвращается при обращении к чужому заказу.
	ErrAccessDenied = errors.New("доступ к заказу запрещён")

	// ErrDuplicateOrderNumber возвращается при коллизии номера заказа.
	ErrDuplicateOrderNumber = errors.New("номер заказа уже существует")
)
