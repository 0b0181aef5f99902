// Package service содержит бизнес-логику доставки.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/pku-shop/internal/delivery/cdek"
	"example.com/pku-shop/internal/delivery/domain"
	"example.com/pku-shop/internal/delivery/repository"
	orderdomain "example.com/pku-shop/internal/order/domain"
	orderrepo "example.com/pku-shop/internal/order/repository"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/outbox"
)

// CdekClient — интерфейс клиента СДЭК.
// Позволяет замокать cdek.Client в unit-тестах (Dependency Inversion).
type CdekClient interface {
	CalculateCost(ctx context.Context, req cdek.CostRequest) (*cdek.CostResult, error)
	FindPickupPoints(ctx context.Context, cityCode int32) ([]cdek.PickupPoint, error)
	CreateOrder(ctx context.Context, req cdek.CreateOrderRequest) (*cdek.CreateOrderResult, error)
}

// DeliveryService определяет интерфейс бизнес-логики доставки.
type DeliveryService interface {
	// CalculateCost рассчитывает стоимость доставки.
	CalculateCost(ctx context.Context, req cdek.CostRequest) (*cdek.CostResult, error)

	// FindPickupPoints возвращает пункты выдачи в городе.
	FindPickupPoints(ctx context.Context, cityCode int32) ([]cdek.PickupPoint, error)

	// CreateDeliveryOrder создаёт заявку на доставку оплаченного заказа.
	// Повторное создание для того же заказа отклоняется.
	CreateDeliveryOrder(ctx context.Context, orderID, pickupPoint string) (*domain.DeliveryRequest, error)

	// GetDeliveryByOrder возвращает заявку по заказу с проверкой владельца.
	GetDeliveryByOrder(ctx context.Context, userID, orderID string) (*domain.DeliveryRequest, error)

	// ProcessWebhook применяет статус из вебхука СДЭК.
	// Повторный вебхук с тем же статусом — no-op; переходы shipped и
	// delivered продвигают статус заказа и публикуют события.
	ProcessWebhook(ctx context.Context, cdekOrderID, cdekStatus, trackingNumber string) error
}

// deliveryService — реализация DeliveryService.
type deliveryService struct {
	db           *gorm.DB
	client       CdekClient
	deliveryRepo repository.DeliveryRepository
	orderRepo    orderrepo.OrderRepository
	outboxRepo   outbox.OutboxRepository
}

// NewDeliveryService создаёт новый сервис доставки.
func NewDeliveryService(
	db *gorm.DB,
	client CdekClient,
	deliveryRepo repository.DeliveryRepository,
	orderRepo orderrepo.OrderRepository,
	outboxRepo outbox.OutboxRepository,
) DeliveryService {
	return &deliveryService{
		db:           db,
		client:       client,
		deliveryRepo: deliveryRepo,
		orderRepo:    orderRepo,
		outboxRepo:   outboxRepo,
	}
}

// CalculateCost рассчитывает стоимость доставки.
// Ошибки СДЭК возвращаются вызывающему как есть, не подменяются нулями.
func (s *deliveryService) CalculateCost(ctx context.Context, req cdek.CostRequest) (*cdek.CostResult, error) {
	return s.client.CalculateCost(ctx, req)
}

// FindPickupPoints возвращает пункты выдачи в городе.
func (s *deliveryService) FindPickupPoints(ctx context.Context, cityCode int32) ([]cdek.PickupPoint, error) {
	return s.client.FindPickupPoints(ctx, cityCode)
}

// CreateDeliveryOrder создаёт заявку на доставку оплаченного заказа.
func (s *deliveryService) CreateDeliveryOrder(ctx context.Context, orderID, pickupPoint string) (*domain.DeliveryRequest, error) {
	log := logger.FromContext(ctx)

	if pickupPoint == "" {
		return nil, domain.ErrInvalidPickupPoint
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanStartProcessing() {
		return nil, orderdomain.ErrOrderNotPaid
	}

	// Предварительная проверка дубликата до обращения к СДЭК;
	// гонку страхует уникальный индекс order_id при вставке
	if _, err := s.deliveryRepo.GetByOrderID(ctx, orderID); err == nil {
		return nil, domain.ErrDeliveryAlreadyExists
	} else if !errors.Is(err, domain.ErrDeliveryNotFound) {
		return nil, err
	}

	created, err := s.client.CreateOrder(ctx, cdek.CreateOrderRequest{
		OrderNumber:     order.OrderNumber,
		PickupPointCode: pickupPoint,
		RecipientName:   order.ShippingAddress,
		WeightGr:        estimateWeight(order),
	})
	if err != nil {
		return nil, err
	}

	request := &domain.DeliveryRequest{
		ID:             uuid.New().String(),
		OrderID:        order.ID,
		CdekOrderID:    created.CdekOrderID,
		TrackingNumber: created.TrackingNumber,
		Status:         domain.DeliveryStatusCreated,
		PickupPoint:    pickupPoint,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.deliveryRepo.CreateInTx(tx, request); err != nil {
			return err
		}

		locked, err := s.orderRepo.GetByIDForUpdate(tx, order.ID)
		if err != nil {
			return err
		}
		if err := locked.StartProcessing(created.TrackingNumber); err != nil {
			return err
		}
		return s.orderRepo.UpdateStatusInTx(tx, locked)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDeliveryAlreadyExists) ||
			errors.Is(err, orderdomain.ErrOrderNotPaid) {
			return nil, err
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("Ошибка создания заявки на доставку")
		return nil, fmt.Errorf("ошибка создания заявки на доставку: %w", err)
	}

	log.Info().
		Str("order_id", orderID).
		Str("cdek_order_id", request.CdekOrderID).
		Str("pickup_point", pickupPoint).
		Msg("Создана заявка на доставку")

	return request, nil
}

// GetDeliveryByOrder возвращает заявку по заказу с проверкой владельца.
func (s *deliveryService) GetDeliveryByOrder(ctx context.Context, userID, orderID string) (*domain.DeliveryRequest, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && order.UserID != userID {
		return nil, orderdomain.ErrAccessDenied
	}

	return s.deliveryRepo.GetByOrderID(ctx, orderID)
}

// ProcessWebhook применяет статус из вебхука СДЭК.
func (s *deliveryService) ProcessWebhook(ctx context.Context, cdekOrderID, cdekStatus, trackingNumber string) error {
	log := logger.FromContext(ctx)

	status, err := cdek.MapStatus(cdekStatus)
	if err != nil {
		log.Warn().
			Str("cdek_order_id", cdekOrderID).
			Str("cdek_status", cdekStatus).
			Msg("Вебхук СДЭК с неизвестным статусом")
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := s.deliveryRepo.GetByCdekOrderIDForUpdate(tx, cdekOrderID)
		if err != nil {
			return err
		}

		if trackingNumber != "" {
			request.TrackingNumber = trackingNumber
		}

		// Повторный вебхук или откат статуса — только трек-номер
		if !request.ApplyStatus(status) {
			return s.deliveryRepo.UpdateInTx(tx, request)
		}

		if err := s.deliveryRepo.UpdateInTx(tx, request); err != nil {
			return err
		}

		// Переходы доставки продвигают статус заказа
		var eventType string
		order, err := s.orderRepo.GetByIDForUpdate(tx, request.OrderID)
		if err != nil {
			return err
		}

		switch status {
		case domain.DeliveryStatusInTransit:
			if !order.CanShip() {
				return nil
			}
			if err := order.MarkShipped(); err != nil {
				return err
			}
			eventType = outbox.EventOrderShipped

		case domain.DeliveryStatusDelivered:
			if !order.CanDeliver() {
				return nil
			}
			if err := order.MarkDelivered(); err != nil {
				return err
			}
			eventType = outbox.EventOrderDelivered

		default:
			return nil
		}

		if request.TrackingNumber != "" {
			order.DeliveryTracking = request.TrackingNumber
		}
		if err := s.orderRepo.UpdateStatusInTx(tx, order); err != nil {
			return err
		}

		event, err := outbox.NewOrderEvent(order.ID, eventType, map[string]any{
			"order_id":        order.ID,
			"order_number":    order.OrderNumber,
			"user_id":         order.UserID,
			"status":          string(order.Status),
			"tracking_number": request.TrackingNumber,
		})
		if err != nil {
			return err
		}
		return s.outboxRepo.CreateInTx(tx, event)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDeliveryNotFound) {
			return err
		}
		log.Error().Err(err).
			Str("cdek_order_id", cdekOrderID).
			Str("cdek_status", cdekStatus).
			Msg("Ошибка обработки вебхука СДЭК")
		return err
	}

	log.Info().
		Str("cdek_order_id", cdekOrderID).
		Str("status", string(status)).
		Msg("Вебхук СДЭК обработан")

	return nil
}

// estimateWeight оценивает вес отправления по количеству позиций.
// Средний вес единицы товара 500 г; точный вес появится после
// заполнения весов в каталоге.
func estimateWeight(order *orderdomain.Order) int32 {
	var units int32
	for i := range order.Items {
		units += order.Items[i].Quantity
	}
	if units == 0 {
		units = 1
	}
	return units * 500
}
