// Package domain содержит бизнес-сущности и доменные ошибки корзины.
package domain

import (
	"time"

	"example.com/pku-shop/pkg/money"
)

// Cart — корзина пользователя. Создаётся лениво при первом обращении,
// связь с пользователем один к одному.
type Cart struct {
	ID        string     // Уникальный идентификатор корзины (UUID)
	UserID    string     // ID владельца корзины (уникальный)
	Items     []CartItem // Позиции корзины
	CreatedAt time.Time  // Дата создания
	UpdatedAt time.Time  // Дата последнего обновления
}

// CartItem — позиция корзины.
// Цена не хранится: берётся из каталога на момент чтения,
// фиксация цены происходит только при оформлении заказа.
type CartItem struct {
	ID           string      // Уникальный идентификатор позиции (UUID)
	CartID       string      // ID корзины
	ProductID    string      // ID товара (уникален в рамках корзины)
	ProductName  string      // Название товара (из каталога, для отображения)
	ProductPrice money.Money // Актуальная цена товара (из каталога)
	Quantity     int32       // Количество единиц товара (>= 1)
	CreatedAt    time.Time   // Дата добавления
	UpdatedAt    time.Time   // Дата последнего изменения
}

// Validate проверяет корректность позиции корзины.
func (ci *CartItem) Validate() error {
	if ci.ProductID == "" {
		return ErrInvalidProductID
	}
	if ci.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// Subtotal возвращает стоимость позиции (цена * количество).
func (ci *CartItem) Subtotal() money.Money {
	return ci.ProductPrice.Multiply(ci.Quantity)
}

// TotalItems возвращает суммарное количество единиц товара в корзине.
func (c *Cart) TotalItems() int32 {
	var total int32
	for i := range c.Items {
		total += c.Items[i].Quantity
	}
	return total
}

// TotalAmount возвращает общую стоимость корзины.
// Валюта берётся из первой позиции; пустая корзина имеет нулевую сумму.
func (c *Cart) TotalAmount() money.Money {
	if len(c.Items) == 0 {
		return money.Money{Currency: money.DefaultCurrency}
	}

	total := money.Money{Currency: c.Items[0].ProductPrice.Currency}
	for i := range c.Items {
		total.Amount += c.Items[i].Subtotal().Amount
	}
	return total
}

// IsEmpty возвращает true, если корзина пуста.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindItem возвращает позицию по ID товара или nil.
func (c *Cart) FindItem(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
