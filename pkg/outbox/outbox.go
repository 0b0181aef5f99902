// Package outbox реализует Outbox Pattern для гарантированной доставки
// событий жизненного цикла заказа в Kafka. В одной транзакции пишем
// бизнес-данные + запись в outbox; отдельный Worker читает outbox и
// отправляет события в Kafka (at-least-once).
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"example.com/pku-shop/pkg/kafka"
)

// Типы событий жизненного цикла заказа.
const (
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderShipped       = "order.shipped"
	EventOrderDelivered     = "order.delivered"
)

// Outbox — запись в таблице outbox для гарантированной доставки в Kafka.
type Outbox struct {
	ID            string            // UUID записи
	AggregateType string            // Тип агрегата (order)
	AggregateID   string            // ID агрегата (order_id)
	EventType     string            // Тип события (order.created и т.д.)
	Topic         string            // Kafka топик
	MessageKey    string            // Ключ сообщения (для партиционирования)
	Payload       []byte            // JSON payload
	Headers       map[string]string // Headers для Kafka (trace_id, correlation_id)
	CreatedAt     time.Time         // Время создания
	ProcessedAt   *time.Time        // Время обработки (nil = не обработана)
	RetryCount    int               // Количество попыток отправки
	LastError     *string           // Последняя ошибка
}

// NewOrderEvent создаёт запись outbox для события заказа.
// payload сериализуется в JSON; ключом сообщения служит order_id,
// чтобы события одного заказа сохраняли порядок в партиции.
func NewOrderEvent(orderID, eventType string, payload any) (*Outbox, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Outbox{
		ID:            uuid.New().String(),
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Topic:         kafka.TopicOrderEvents,
		MessageKey:    orderID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}, nil
}

// HeadersJSON возвращает headers в формате JSON для БД.
func (o *Outbox) HeadersJSON() ([]byte, error) {
	if o.Headers == nil {
		return nil, nil
	}
	return json.Marshal(o.Headers)
}

// SetHeadersFromJSON устанавливает headers из JSON.
func (o *Outbox) SetHeadersFromJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &o.Headers)
}
