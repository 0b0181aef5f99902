// Package service содержит бизнес-логику платежей.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	orderdomain "example.com/pku-shop/internal/order/domain"
	orderrepo "example.com/pku-shop/internal/order/repository"
	"example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/internal/payment/provider"
	"example.com/pku-shop/internal/payment/repository"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/metrics"
	"example.com/pku-shop/pkg/outbox"
)

// callbackLockTTL — время жизни Redis-блокировки обработки уведомления.
const callbackLockTTL = 30 * time.Second

// Количество попыток регистрации платежа при коллизии payment_id.
const paymentIDAttempts = 3

// CreatePaymentResult — результат создания платежа.
type CreatePaymentResult struct {
	PaymentID  string // Идентификатор платежа в платёжной системе
	PaymentURL string // URL для редиректа покупателя
	Amount     string // Сумма в десятичном формате ("300.00")
	Currency   string // Валюта
}

// PaymentService определяет интерфейс бизнес-логики платежей.
type PaymentService interface {
	// CreatePayment создаёт платёж по заказу в указанной платёжной системе.
	// Заказ должен принадлежать пользователю и быть неоплаченным.
	CreatePayment(ctx context.Context, userID, orderID string, system domain.PaymentSystem) (*CreatePaymentResult, error)

	// ProcessCallback обрабатывает проверенное уведомление платёжной системы.
	// Переход транзакции, статус заказа и событие outbox записываются
	// одной транзакцией БД; повторное уведомление по завершённой
	// транзакции — no-op.
	ProcessCallback(ctx context.Context, system domain.PaymentSystem, cb *provider.Callback) error

	// GetPayment возвращает транзакцию по идентификатору платежа
	// с проверкой владельца заказа.
	GetPayment(ctx context.Context, userID, paymentID string) (*domain.PaymentTransaction, error)

	// Provider возвращает адаптер платёжной системы.
	Provider(system domain.PaymentSystem) (provider.Provider, error)
}

// paymentService — реализация PaymentService.
type paymentService struct {
	db          *gorm.DB
	redis       *redis.Client
	paymentRepo repository.PaymentRepository
	orderRepo   orderrepo.OrderRepository
	outboxRepo  outbox.OutboxRepository
	providers   map[domain.PaymentSystem]provider.Provider
}

// NewPaymentService создаёт новый сервис платежей.
// redisClient может быть nil — тогда сериализация уведомлений опирается
// только на блокировки строк БД.
func NewPaymentService(
	db *gorm.DB,
	redisClient *redis.Client,
	paymentRepo repository.PaymentRepository,
	orderRepo orderrepo.OrderRepository,
	outboxRepo outbox.OutboxRepository,
	providers ...provider.Provider,
) PaymentService {
	registry := make(map[domain.PaymentSystem]provider.Provider, len(providers))
	for _, p := range providers {
		registry[p.Name()] = p
	}

	return &paymentService{
		db:          db,
		redis:       redisClient,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		outboxRepo:  outboxRepo,
		providers:   registry,
	}
}

// Provider возвращает адаптер платёжной системы.
func (s *paymentService) Provider(system domain.PaymentSystem) (provider.Provider, error) {
	p, ok := s.providers[system]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return p, nil
}

// CreatePayment создаёт платёж по заказу.
func (s *paymentService) CreatePayment(ctx context.Context, userID, orderID string, system domain.PaymentSystem) (*CreatePaymentResult, error) {
	log := logger.FromContext(ctx)

	p, err := s.Provider(system)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && order.UserID != userID {
		return nil, orderdomain.ErrAccessDenied
	}

	// Оплатить можно только неоплаченный заказ в статусе pending
	if !order.CanMarkPaid() {
		return nil, domain.ErrOrderNotPayable
	}

	result, err := s.createWithPaymentIDRetry(ctx, p, order, system)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		log.Error().Err(err).
			Str("order_id", order.ID).
			Str("payment_system", string(system)).
			Msg("Ошибка сохранения платёжной транзакции")
		return nil, fmt.Errorf("ошибка создания платежа: %w", err)
	}

	log.Info().
		Str("order_id", order.ID).
		Str("payment_id", result.PaymentID).
		Str("payment_system", string(system)).
		Str("amount", order.TotalAmount.Decimal()).
		Msg("Создан платёж")

	return &CreatePaymentResult{
		PaymentID:  result.PaymentID,
		PaymentURL: result.PaymentURL,
		Amount:     order.TotalAmount.Decimal(),
		Currency:   order.TotalAmount.Currency,
	}, nil
}

// createWithPaymentIDRetry регистрирует платёж у провайдера и сохраняет
// транзакцию, повторяя при коллизии payment_id: случайный InvId Робокассы
// может совпасть с уже выданным, повторная регистрация выдаёт новый.
func (s *paymentService) createWithPaymentIDRetry(
	ctx context.Context,
	p provider.Provider,
	order *orderdomain.Order,
	system domain.PaymentSystem,
) (*provider.CreatePaymentResult, error) {
	req := provider.CreatePaymentRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Description: fmt.Sprintf("Оплата заказа %s", order.OrderNumber),
	}

	for attempt := 0; attempt < paymentIDAttempts; attempt++ {
		result, err := p.CreatePayment(ctx, req)
		if err != nil {
			return nil, err
		}

		transaction := &domain.PaymentTransaction{
			ID:            uuid.New().String(),
			OrderID:       order.ID,
			PaymentID:     result.PaymentID,
			Amount:        order.TotalAmount,
			Status:        domain.TransactionStatusPending,
			PaymentSystem: system,
		}

		err = s.paymentRepo.Create(ctx, transaction)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrDuplicatePaymentID) {
			return nil, err
		}
	}
	return nil, domain.ErrDuplicatePaymentID
}

// ProcessCallback обрабатывает уведомление платёжной системы.
func (s *paymentService) ProcessCallback(ctx context.Context, system domain.PaymentSystem, cb *provider.Callback) error {
	log := logger.FromContext(ctx)

	// Redis-блокировка сериализует параллельные уведомления по одному
	// платежу. При недоступности Redis продолжаем: источником истины
	// остаётся блокировка строки транзакции в БД (fail-open).
	release, acquired := s.acquireCallbackLock(ctx, cb.PaymentID)
	if !acquired {
		return domain.ErrCallbackInProgress
	}
	defer release()

	var result string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transaction, err := s.paymentRepo.GetByPaymentIDForUpdate(tx, cb.PaymentID)
		if err != nil {
			return err
		}

		// Повторное уведомление по завершённой транзакции — no-op
		if transaction.Status.IsTerminal() {
			result = "duplicate"
			return nil
		}

		// Сумма уведомления обязана совпадать с суммой транзакции копейка
		// в копейку; несовпадение — попытка подмены или ошибка интеграции
		if !cb.Amount.Equal(transaction.Amount) {
			return domain.ErrAmountMismatch
		}

		order, err := s.orderRepo.GetByIDForUpdate(tx, transaction.OrderID)
		if err != nil {
			return err
		}

		switch cb.Event {
		case provider.EventSucceeded:
			if err := transaction.MarkSucceeded(); err != nil {
				return err
			}
			if err := order.MarkPaid(); err != nil {
				return err
			}
			if err := s.orderRepo.UpdateStatusInTx(tx, order); err != nil {
				return err
			}
			event, err := outbox.NewOrderEvent(order.ID, outbox.EventOrderPaid, orderEventPayload(order))
			if err != nil {
				return err
			}
			if err := s.outboxRepo.CreateInTx(tx, event); err != nil {
				return err
			}
			result = "succeeded"

		case provider.EventCanceled:
			if err := transaction.MarkCanceled(); err != nil {
				return err
			}
			// Заказ остаётся pending: покупатель может повторить оплату
			order.MarkPaymentFailed()
			if err := s.orderRepo.UpdateStatusInTx(tx, order); err != nil {
				return err
			}
			event, err := outbox.NewOrderEvent(order.ID, outbox.EventOrderPaymentFailed, orderEventPayload(order))
			if err != nil {
				return err
			}
			if err := s.outboxRepo.CreateInTx(tx, event); err != nil {
				return err
			}
			result = "canceled"

		case provider.EventWaitingForCapture:
			if err := transaction.MarkWaitingForCapture(); err != nil {
				return err
			}
			result = "waiting_for_capture"

		default:
			return domain.ErrMalformedCallback
		}

		return s.paymentRepo.UpdateStatusInTx(tx, transaction)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			metrics.WebhookRejectedTotal.WithLabelValues(string(system), "not_found").Inc()
		case errors.Is(err, domain.ErrAmountMismatch):
			metrics.WebhookRejectedTotal.WithLabelValues(string(system), "amount_mismatch").Inc()
			log.Warn().
				Str("payment_id", cb.PaymentID).
				Str("amount", cb.Amount.Decimal()).
				Msg("Отклонено уведомление: сумма не совпадает")
		}
		return err
	}

	metrics.PaymentCallbacksTotal.WithLabelValues(string(system), result).Inc()

	log.Info().
		Str("payment_id", cb.PaymentID).
		Str("payment_system", string(system)).
		Str("result", result).
		Msg("Уведомление платёжной системы обработано")

	return nil
}

// GetPayment возвращает транзакцию с проверкой владельца заказа.
func (s *paymentService) GetPayment(ctx context.Context, userID, paymentID string) (*domain.PaymentTransaction, error) {
	transaction, err := s.paymentRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if userID != "" {
		order, err := s.orderRepo.GetByID(ctx, transaction.OrderID)
		if err != nil {
			return nil, err
		}
		if order.UserID != userID {
			return nil, orderdomain.ErrAccessDenied
		}
	}

	return transaction, nil
}

// acquireCallbackLock берёт Redis-блокировку обработки уведомления.
// Возвращает функцию освобождения и признак успеха.
func (s *paymentService) acquireCallbackLock(ctx context.Context, paymentID string) (func(), bool) {
	if s.redis == nil {
		return func() {}, true
	}

	key := "payment:callback:" + paymentID

	ok, err := s.redis.SetNX(ctx, key, "1", callbackLockTTL).Result()
	if err != nil {
		// Redis недоступен — блокировку строк БД никто не отменял
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Redis недоступен, уведомление обрабатывается без блокировки")
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}

	return func() {
		_ = s.redis.Del(context.WithoutCancel(ctx), key).Err()
	}, true
}

// orderEventPayload — payload событий жизненного цикла заказа.
func orderEventPayload(o *orderdomain.Order) map[string]any {
	return map[string]any{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"status":       string(o.Status),
		"total_amount": o.TotalAmount.Amount,
		"currency":     o.TotalAmount.Currency,
		"occurred_at":  time.Now().UTC().Format(time.RFC3339),
	}
}
