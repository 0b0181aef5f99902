// Package kafka предоставляет обёртку над kafka-go для публикации
// событий жизненного цикла заказа. Потребители (аналитика) живут вне
// этого репозитория.
package kafka

import (
	"context"
	"time"

	"example.com/pku-shop/pkg/logger"
)

// Топики событий магазина.
const (
	// TopicOrderEvents — события жизненного цикла заказа
	// (order.created, order.paid, order.payment_failed, order.shipped, order.delivered).
	TopicOrderEvents = "shop.order.events"
)

// Ключи для headers сообщений Kafka.
const (
	// HeaderTraceID — идентификатор трассировки для distributed tracing.
	HeaderTraceID = "trace_id"

	// HeaderCorrelationID — идентификатор корреляции (обычно order_id).
	HeaderCorrelationID = "correlation_id"

	// HeaderTimestamp — временная метка создания сообщения.
	HeaderTimestamp = "timestamp"
)

// Config содержит настройки для подключения к Kafka.
type Config struct {
	// Brokers — список адресов брокеров Kafka.
	Brokers []string
}

// Message представляет сообщение Kafka с метаданными.
type Message struct {
	// Key — ключ сообщения для партиционирования (order_id:
	// события одного заказа попадают в одну партицию и сохраняют порядок).
	Key []byte

	// Value — тело сообщения (JSON payload).
	Value []byte

	// Topic — топик сообщения.
	Topic string

	// Headers — заголовки сообщения (trace_id, correlation_id и т.д.).
	Headers map[string]string

	// Time — временная метка сообщения.
	Time time.Time
}

// TraceIDFromContext извлекает trace_id из context.
// Делегирует в pkg/logger для единообразной работы с контекстом.
func TraceIDFromContext(ctx context.Context) string {
	return logger.TraceIDFromContext(ctx)
}

// CorrelationIDFromContext извлекает correlation_id из context.
func CorrelationIDFromContext(ctx context.Context) string {
	return logger.CorrelationIDFromContext(ctx)
}
