package domain

import "errors"

// Доменные ошибки каталога.
// Используются для передачи бизнес-ошибок между слоями приложения.
var (
	// ErrProductNotFound возвращается, когда товар не найден или неактивен.
	ErrProductNotFound = errors.New("товар не найден")

	// ErrInvalidProductName возвращается при пустом названии товара.
	ErrInvalidProductName = errors.New("название товара не может быть пустым")

	// ErrInvalidProductSlug возвращается при пустом slug товара.
	ErrInvalidProductSlug = errors.New("slug товара не может быть пустым")

	// ErrInvalidPrice возвращается, когда цена товара меньше или равна нулю.
	ErrInvalidPrice = errors.New("цена должна быть больше нуля")

	// ErrInvalidStock возвращается при отрицательном остатке на складе.
	ErrInvalidStock = errors.New("остаток на складе не может быть отрицательным")

	// ErrInsufficientStock возвращается, когда на складе недостаточно товара.
	ErrInsufficientStock = errors.New("недостаточно товара на складе")
)
