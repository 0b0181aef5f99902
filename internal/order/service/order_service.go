// Package service содержит бизнес-логику заказов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartrepo "example.com/pku-shop/internal/cart/repository"
	catalogdomain "example.com/pku-shop/internal/catalog/domain"
	catalogrepo "example.com/pku-shop/internal/catalog/repository"
	"example.com/pku-shop/internal/order/domain"
	"example.com/pku-shop/internal/order/repository"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/metrics"
	"example.com/pku-shop/pkg/outbox"
)

// Константы для валидации пагинации.
const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// Количество попыток вставки заказа при коллизии номера.
const orderNumberAttempts = 3

// CheckoutRequest — данные оформления заказа.
type CheckoutRequest struct {
	UserID          string
	ShippingAddress string
	DeliveryMethod  string
	Notes           string
}

// OrderService определяет интерфейс бизнес-логики заказов.
type OrderService interface {
	// Checkout оформляет заказ из корзины пользователя.
	// Заказ, позиции, списание остатков, очистка корзины и событие
	// order.created записываются в одной транзакции.
	Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error)

	// GetOrder возвращает заказ по ID с проверкой владельца.
	// Пустой userID пропускает проверку (админка).
	GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error)

	// ListOrders возвращает заказы пользователя с пагинацией.
	ListOrders(ctx context.Context, userID string, page, pageSize int) ([]*domain.Order, int64, error)

	// ListAllOrders возвращает заказы по фильтру (админка).
	ListAllOrders(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int64, error)

	// UpdateStatus переводит заказ в новый статус (админка).
	// Переходы shipped/delivered публикуют события жизненного цикла.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)

	// GetStatistics возвращает сводные показатели по заказам (админка).
	GetStatistics(ctx context.Context) (*repository.Statistics, error)
}

// orderService — реализация OrderService.
type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	cartRepo    cartrepo.CartRepository
	productRepo catalogrepo.ProductRepository
	outboxRepo  outbox.OutboxRepository
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo cartrepo.CartRepository,
	productRepo catalogrepo.ProductRepository,
	outboxRepo outbox.OutboxRepository,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
	}
}

// orderEventPayload — payload событий жизненного цикла заказа.
type orderEventPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
	OccurredAt  string `json:"occurred_at"`
}

func newOrderEventPayload(o *domain.Order) orderEventPayload {
	return orderEventPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.Amount,
		Currency:    o.TotalAmount.Currency,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Checkout оформляет заказ из корзины пользователя.
func (s *orderService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	if req.ShippingAddress == "" {
		return nil, domain.ErrEmptyShippingAddress
	}

	cart, err := s.cartRepo.GetOrCreateByUserID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}

	var order *domain.Order

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Блокируем позиции корзины: параллельное оформление или
		// изменение корзины тем же пользователем сериализуется
		items, err := s.cartRepo.ListItemsForUpdate(tx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyOrder
		}

		orderID := uuid.New().String()
		orderItems := make([]domain.OrderItem, 0, len(items))

		for _, item := range items {
			// Блокируем товар и проверяем остаток на момент оформления
			product, err := s.productRepo.GetByIDForUpdate(tx, item.ProductID)
			if err != nil {
				return err
			}
			if !product.IsActive {
				return catalogdomain.ErrProductNotFound
			}
			if product.StockQuantity < item.Quantity {
				return catalogdomain.ErrInsufficientStock
			}

			// Снимок названия и цены: изменения каталога не влияют
			// на уже оформленный заказ
			orderItems = append(orderItems, domain.OrderItem{
				ID:          uuid.New().String(),
				OrderID:     orderID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				Price:       product.Price,
			})
		}

		now := time.Now()
		order = &domain.Order{
			ID:              orderID,
			UserID:          req.UserID,
			Items:           orderItems,
			Status:          domain.OrderStatusPending,
			PaymentStatus:   domain.PaymentStatusPending,
			ShippingAddress: req.ShippingAddress,
			DeliveryMethod:  req.DeliveryMethod,
			Notes:           req.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		order.CalculateTotal()

		if err := order.Validate(); err != nil {
			return err
		}

		// Номер заказа генерируется с повтором: коллизия ловится
		// уникальным индексом order_number
		if err := s.createWithNumberRetry(tx, order); err != nil {
			return err
		}

		// Списываем остатки
		for _, item := range orderItems {
			if err := s.productRepo.DecrementStock(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		// Очищаем корзину
		if err := s.cartRepo.ClearItems(tx, cart.ID); err != nil {
			return err
		}

		// Событие order.created пишется в outbox той же транзакцией
		event, err := outbox.NewOrderEvent(order.ID, outbox.EventOrderCreated, newOrderEventPayload(order))
		if err != nil {
			return err
		}
		return s.outboxRepo.CreateInTx(tx, event)
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyOrder) ||
			errors.Is(err, catalogdomain.ErrProductNotFound) ||
			errors.Is(err, catalogdomain.ErrInsufficientStock) {
			return nil, err
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Ошибка оформления заказа")
		return nil, fmt.Errorf("ошибка оформления заказа: %w", err)
	}

	metrics.OrdersCreatedTotal.Inc()

	log.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("user_id", req.UserID).
		Str("total", order.TotalAmount.Decimal()).
		Msg("Заказ оформлен")

	return order, nil
}

// createWithNumberRetry вставляет заказ, перегенерируя номер при коллизии.
func (s *orderService) createWithNumberRetry(tx *gorm.DB, order *domain.Order) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = domain.GenerateOrderNumber()

		err := s.orderRepo.CreateInTx(tx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
			return err
		}
	}
	return domain.ErrDuplicateOrderNumber
}

// GetOrder возвращает заказ с проверкой владельца.
func (s *orderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if userID != "" && order.UserID != userID {
		return nil, domain.ErrAccessDenied
	}

	return order, nil
}

// ListOrders возвращает заказы пользователя с пагинацией.
func (s *orderService) ListOrders(ctx context.Context, userID string, page, pageSize int) ([]*domain.Order, int64, error) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	offset := (page - 1) * pageSize
	return s.orderRepo.ListByUserID(ctx, userID, offset, pageSize)
}

// ListAllOrders возвращает заказы по фильтру (админка).
func (s *orderService) ListAllOrders(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int64, error) {
	if filter.Limit < 1 || filter.Limit > maxPageSize {
		filter.Limit = defaultPageSize
	}
	return s.orderRepo.List(ctx, filter)
}

// UpdateStatus переводит заказ в новый статус (админка).
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	if !status.IsValid() {
		return nil, domain.ErrInvalidStatusTransition
	}

	var updated *domain.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByIDForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		var eventType string
		switch status {
		case domain.OrderStatusShipped:
			if err := order.MarkShipped(); err != nil {
				return err
			}
			eventType = outbox.EventOrderShipped
		case domain.OrderStatusDelivered:
			if err := order.MarkDelivered(); err != nil {
				return err
			}
			eventType = outbox.EventOrderDelivered
		case domain.OrderStatusCancelled:
			if err := order.Cancel(); err != nil {
				return err
			}
			// Остатки списаны при оформлении: отмена неоплаченного
			// заказа возвращает резерв той же транзакцией
			items, err := s.orderRepo.ListItemsInTx(tx, order.ID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := s.productRepo.IncrementStock(tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		case domain.OrderStatusProcessing:
			if err := order.StartProcessing(order.DeliveryTracking); err != nil {
				return err
			}
		default:
			// Статусы pending/paid управляются платёжным контуром
			return domain.ErrInvalidStatusTransition
		}

		if err := s.orderRepo.UpdateStatusInTx(tx, order); err != nil {
			return err
		}

		if eventType != "" {
			event, err := outbox.NewOrderEvent(order.ID, eventType, newOrderEventPayload(order))
			if err != nil {
				return err
			}
			if err := s.outboxRepo.CreateInTx(tx, event); err != nil {
				return err
			}
		}

		updated = order
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) ||
			errors.Is(err, domain.ErrInvalidStatusTransition) ||
			errors.Is(err, domain.ErrOrderCannotCancel) ||
			errors.Is(err, domain.ErrOrderNotPaid) {
			return nil, err
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("Ошибка обновления статуса заказа")
		return nil, fmt.Errorf("ошибка обновления статуса заказа: %w", err)
	}

	log.Info().
		Str("order_id", orderID).
		Str("status", string(status)).
		Msg("Статус заказа обновлён")

	return updated, nil
}

// GetStatistics возвращает сводные показатели по заказам.
func (s *orderService) GetStatistics(ctx context.Context) (*repository.Statistics, error) {
	return s.orderRepo.GetStatistics(ctx)
}
