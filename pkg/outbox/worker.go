package outbox

import (
	"context"
	"time"

	"example.com/pku-shop/pkg/kafka"
	"example.com/pku-shop/pkg/logger"
)

// KafkaProducer — интерфейс для отправки сообщений в Kafka.
// Позволяет замокать kafka.Producer в unit-тестах (Dependency Inversion).
type KafkaProducer interface {
	SendMessage(ctx context.Context, msg *kafka.Message) error
}

// WorkerConfig — настройки Outbox Worker.
type WorkerConfig struct {
	// PollInterval — интервал между опросами таблицы outbox.
	PollInterval time.Duration

	// BatchSize — количество записей за один запрос.
	BatchSize int

	// MaxRetries — максимальное количество попыток отправки.
	// После превышения запись остаётся в таблице с заполненным last_error
	// и исключается из обработки.
	MaxRetries int
}

// DefaultWorkerConfig возвращает конфигурацию по умолчанию.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 1 * time.Second,
		BatchSize:    100,
		MaxRetries:   5,
	}
}

// cleanupInterval — интервал очистки обработанных записей outbox.
const cleanupInterval = 1 * time.Hour

// cleanupRetention — срок хранения обработанных записей outbox.
const cleanupRetention = 7 * 24 * time.Hour

// Worker читает записи из outbox и отправляет их в Kafka.
// Реализует гарантию "at-least-once" доставки.
type Worker struct {
	repo     OutboxRepository
	producer KafkaProducer
	cfg      WorkerConfig
}

// NewWorker создаёт новый Outbox Worker.
func NewWorker(repo OutboxRepository, producer KafkaProducer, cfg WorkerConfig) *Worker {
	return &Worker{
		repo:     repo,
		producer: producer,
		cfg:      cfg,
	}
}

// Run запускает Worker. Блокирует выполнение до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().
		Dur("poll_interval", w.cfg.PollInterval).
		Int("batch_size", w.cfg.BatchSize).
		Msg("Запуск Outbox Worker")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Остановка Outbox Worker")
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanupProcessed(ctx)
		}
	}
}

// processOutbox обрабатывает пачку необработанных записей.
func (w *Worker) processOutbox(ctx context.Context) {
	log := logger.FromContext(ctx)

	records, err := w.repo.GetUnprocessed(ctx, w.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка чтения outbox")
		return
	}

	for _, record := range records {
		// Записи с исчерпанными попытками пропускаем — они требуют
		// ручного разбора по last_error.
		if record.RetryCount >= w.cfg.MaxRetries {
			continue
		}

		msg := &kafka.Message{
			Topic:   record.Topic,
			Key:     []byte(record.MessageKey),
			Value:   record.Payload,
			Headers: record.Headers,
			Time:    record.CreatedAt,
		}

		if err := w.producer.SendMessage(ctx, msg); err != nil {
			log.Error().
				Err(err).
				Str("outbox_id", record.ID).
				Str("event_type", record.EventType).
				Int("retry_count", record.RetryCount).
				Msg("Ошибка отправки события в Kafka")

			if markErr := w.repo.MarkFailed(ctx, record.ID, err); markErr != nil {
				log.Error().Err(markErr).Str("outbox_id", record.ID).Msg("Ошибка обновления outbox")
			}
			continue
		}

		if err := w.repo.MarkProcessed(ctx, record.ID); err != nil {
			// Событие уже отправлено; при падении здесь возможен повтор —
			// потребители обязаны быть идемпотентными (at-least-once).
			log.Error().Err(err).Str("outbox_id", record.ID).Msg("Ошибка пометки outbox записи")
			continue
		}

		log.Debug().
			Str("outbox_id", record.ID).
			Str("event_type", record.EventType).
			Str("order_id", record.AggregateID).
			Msg("Событие заказа отправлено в Kafka")
	}
}

// cleanupProcessed удаляет обработанные записи outbox старше срока хранения.
func (w *Worker) cleanupProcessed(ctx context.Context) {
	log := logger.FromContext(ctx)

	before := time.Now().Add(-cleanupRetention)
	deleted, err := w.repo.DeleteProcessedBefore(ctx, before)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка очистки outbox")
		return
	}

	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Очищены обработанные записи outbox")
	}
}
