package domain

import "errors"

// Доменные ошибки корзины.
var (
	// ErrCartNotFound возвращается, когда корзина не найдена.
	ErrCartNotFound = errors.New("корзина не найдена")

	// ErrCartItemNotFound возвращается, когда позиция корзины не найдена.
	ErrCartItemNotFound = errors.New("позиция корзины не найдена")

	// ErrInvalidProductID возвращается при пустом идентификаторе товара.
	ErrInvalidProductID = errors.New("некорректный идентификатор товара")

	// ErrInvalidQuantity возвращается при количестве меньше единицы.
	ErrInvalidQuantity = errors.New("количество должно быть больше нуля")

	// ErrProductOutOfStock возвращается, когда товар полностью разобран.
	ErrProductOutOfStock = errors.New("товар закончился на складе")
)
