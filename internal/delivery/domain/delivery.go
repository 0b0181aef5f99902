// Package domain содержит бизнес-сущности и доменные ошибки доставки.
package domain

import "time"

// DeliveryStatus — статус заявки на доставку.
type DeliveryStatus string

const (
	// DeliveryStatusCreated — заявка создана в СДЭК.
	DeliveryStatusCreated DeliveryStatus = "created"

	// DeliveryStatusAccepted — отправление принято на склад СДЭК.
	DeliveryStatusAccepted DeliveryStatus = "accepted"

	// DeliveryStatusInTransit — отправление в пути.
	DeliveryStatusInTransit DeliveryStatus = "in_transit"

	// DeliveryStatusDelivered — отправление вручено получателю.
	DeliveryStatusDelivered DeliveryStatus = "delivered"

	// DeliveryStatusCancelled — доставка отменена.
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

// rank — порядок статусов для защиты от отката.
// Вебхуки СДЭК могут приходить с нарушением порядка и повторами.
var rank = map[DeliveryStatus]int{
	DeliveryStatusCreated:   0,
	DeliveryStatusAccepted:  1,
	DeliveryStatusInTransit: 2,
	DeliveryStatusDelivered: 3,
	DeliveryStatusCancelled: 3,
}

// IsValid проверяет, что статус входит в словарь статусов доставки.
func (s DeliveryStatus) IsValid() bool {
	_, ok := rank[s]
	return ok
}

// DeliveryRequest — заявка на доставку заказа.
// На заказ допускается не более одной заявки.
type DeliveryRequest struct {
	ID             string         // Уникальный идентификатор (UUID)
	OrderID        string         // ID заказа (уникальный)
	CdekOrderID    string         // Идентификатор заказа в СДЭК (уникальный)
	TrackingNumber string         // Трек-номер отправления
	Status         DeliveryStatus // Текущий статус заявки
	PickupPoint    string         // Код пункта выдачи
	CreatedAt      time.Time      // Дата создания
	UpdatedAt      time.Time      // Дата последнего обновления
}

// ApplyStatus применяет новый статус заявки.
// Возвращает false, если статус не изменился (повторный вебхук)
// или откатывает заявку назад по жизненному циклу.
func (d *DeliveryRequest) ApplyStatus(status DeliveryStatus) bool {
	if status == d.Status {
		return false
	}
	if rank[status] < rank[d.Status] {
		return false
	}
	// Из конечных статусов не выходим
	if d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusCancelled {
		return false
	}

	d.Status = status
	d.UpdatedAt = time.Now()
	return true
}
