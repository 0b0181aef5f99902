// Package domain содержит бизнес-сущности и доменные ошибки заказов.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"example.com/pku-shop/pkg/money"
)

// OrderStatus — статус заказа в системе.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, ожидает оплаты.
	OrderStatusPending OrderStatus = "pending"

	// OrderStatusPaid — оплата подтверждена платёжной системой.
	OrderStatusPaid OrderStatus = "paid"

	// OrderStatusProcessing — заказ передан в доставку.
	OrderStatusProcessing OrderStatus = "processing"

	// OrderStatusShipped — заказ отгружен перевозчику.
	OrderStatusShipped OrderStatus = "shipped"

	// OrderStatusDelivered — заказ доставлен получателю.
	OrderStatusDelivered OrderStatus = "delivered"

	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid проверяет, что статус входит в словарь статусов заказа.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus — статус оплаты заказа.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата не проведена.
	PaymentStatusPending PaymentStatus = "pending"

	// PaymentStatusPaid — оплата получена.
	PaymentStatusPaid PaymentStatus = "paid"

	// PaymentStatusFailed — последняя попытка оплаты не удалась.
	PaymentStatusFailed PaymentStatus = "failed"

	// PaymentStatusRefunded — оплата возвращена.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order — заказ в системе.
// Это доменная сущность без зависимостей от инфраструктуры (GORM, HTTP).
type Order struct {
	ID               string        // Уникальный идентификатор заказа (UUID)
	OrderNumber      string        // Человекочитаемый номер вида ORD-1A2B3C4D (уникальный)
	UserID           string        // ID пользователя, оформившего заказ
	Items            []OrderItem   // Позиции заказа
	Status           OrderStatus   // Текущий статус заказа
	PaymentStatus    PaymentStatus // Статус оплаты
	TotalAmount      money.Money   // Итоговая сумма (зафиксирована при оформлении)
	ShippingAddress  string        // Адрес доставки
	DeliveryMethod   string        // Способ доставки (courier, pickup)
	Notes            string        // Комментарий покупателя
	DeliveryTracking string        // Трек-номер доставки (пусто до отгрузки)
	CreatedAt        time.Time     // Дата создания
	UpdatedAt        time.Time     // Дата последнего обновления
}

// OrderItem — позиция заказа.
// Название и цена денормализованы: заказ хранит снимок каталога
// на момент оформления.
type OrderItem struct {
	ID          string      // Уникальный идентификатор позиции (UUID)
	OrderID     string      // ID заказа
	ProductID   string      // ID товара
	ProductName string      // Название товара на момент оформления
	Quantity    int32       // Количество единиц товара
	Price       money.Money // Цена за единицу на момент оформления
}

// Validate проверяет корректность полей позиции заказа.
func (oi *OrderItem) Validate() error {
	if strings.TrimSpace(oi.ProductID) == "" {
		return ErrInvalidProductID
	}
	if strings.TrimSpace(oi.ProductName) == "" {
		return ErrInvalidProductName
	}
	if oi.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if oi.Price.Amount <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Subtotal возвращает стоимость позиции (цена * количество).
func (oi *OrderItem) Subtotal() money.Money {
	return oi.Price.Multiply(oi.Quantity)
}

// Validate проверяет корректность полей заказа перед созданием.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return ErrInvalidUserID
	}
	if strings.TrimSpace(o.ShippingAddress) == "" {
		return ErrEmptyShippingAddress
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CalculateTotal пересчитывает итоговую сумму заказа из позиций.
// Валюта берётся из первой позиции.
func (o *Order) CalculateTotal() {
	if len(o.Items) == 0 {
		o.TotalAmount = money.Money{Currency: money.DefaultCurrency}
		return
	}

	total := money.Money{Currency: o.Items[0].Price.Currency}
	for i := range o.Items {
		total.Amount += o.Items[i].Subtotal().Amount
	}
	o.TotalAmount = total
}

// CanMarkPaid проверяет, можно ли подтвердить оплату заказа.
// Оплатить можно только неоплаченный заказ в статусе pending.
func (o *Order) CanMarkPaid() bool {
	return o.Status == OrderStatusPending && o.PaymentStatus != PaymentStatusPaid
}

// MarkPaid подтверждает оплату заказа.
func (o *Order) MarkPaid() error {
	if !o.CanMarkPaid() {
		return ErrOrderCannotPay
	}
	o.Status = OrderStatusPaid
	o.PaymentStatus = PaymentStatusPaid
	o.UpdatedAt = time.Now()
	return nil
}

// MarkPaymentFailed фиксирует неудачную попытку оплаты.
// Статус заказа остаётся pending — покупатель может повторить оплату.
func (o *Order) MarkPaymentFailed() {
	o.PaymentStatus = PaymentStatusFailed
	o.UpdatedAt = time.Now()
}

// CanStartProcessing проверяет, можно ли передать заказ в доставку.
func (o *Order) CanStartProcessing() bool {
	return o.Status == OrderStatusPaid
}

// StartProcessing переводит оплаченный заказ в обработку (создана доставка).
func (o *Order) StartProcessing(tracking string) error {
	if !o.CanStartProcessing() {
		return ErrOrderNotPaid
	}
	o.Status = OrderStatusProcessing
	o.DeliveryTracking = tracking
	o.UpdatedAt = time.Now()
	return nil
}

// CanShip проверяет, можно ли пометить заказ отгруженным.
func (o *Order) CanShip() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusProcessing
}

// MarkShipped помечает заказ отгруженным перевозчику.
func (o *Order) MarkShipped() error {
	if !o.CanShip() {
		return ErrInvalidStatusTransition
	}
	o.Status = OrderStatusShipped
	o.UpdatedAt = time.Now()
	return nil
}

// CanDeliver проверяет, можно ли пометить заказ доставленным.
func (o *Order) CanDeliver() bool {
	return o.Status == OrderStatusShipped
}

// MarkDelivered помечает заказ доставленным.
func (o *Order) MarkDelivered() error {
	if !o.CanDeliver() {
		return ErrInvalidStatusTransition
	}
	o.Status = OrderStatusDelivered
	o.UpdatedAt = time.Now()
	return nil
}

// CanCancel проверяет, можно ли отменить заказ.
// Отменить можно только неоплаченный заказ.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending
}

// Cancel отменяет заказ.
func (o *Order) Cancel() error {
	if !o.CanCancel() {
		return ErrOrderCannotCancel
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = time.Now()
	return nil
}

// GenerateOrderNumber создаёт номер заказа вида ORD-1A2B3C4D.
// 8 hex-символов дают 4 млрд комбинаций; коллизия ловится уникальным
// индексом БД и разрешается повторной генерацией.
func GenerateOrderNumber() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return "ORD-" + strings.ToUpper(hex.EncodeToString(buf))
}
