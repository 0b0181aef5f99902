// Package service содержит бизнес-логику корзины.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartdomain "example.com/pku-shop/internal/cart/domain"
	cartrepo "example.com/pku-shop/internal/cart/repository"
	catalogdomain "example.com/pku-shop/internal/catalog/domain"
	catalogrepo "example.com/pku-shop/internal/catalog/repository"
	"example.com/pku-shop/pkg/logger"
)

// CartService определяет интерфейс бизнес-логики корзины.
type CartService interface {
	// GetCart возвращает корзину пользователя, создавая её при первом обращении.
	GetCart(ctx context.Context, userID string) (*cartdomain.Cart, error)

	// AddItem добавляет товар в корзину или увеличивает количество.
	// Итоговое количество ограничивается остатком на складе.
	AddItem(ctx context.Context, userID, productID string, quantity int32) (*cartdomain.Cart, error)

	// UpdateQuantity устанавливает количество позиции.
	// Нулевое количество удаляет позицию; количество сверх остатка
	// ограничивается остатком на складе.
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int32) (*cartdomain.Cart, error)

	// RemoveItem удаляет позицию из корзины. Идемпотентно.
	RemoveItem(ctx context.Context, userID, productID string) (*cartdomain.Cart, error)
}

// cartService — реализация CartService.
// Изменения состава корзины выполняются в транзакции с блокировкой
// строк товара и позиции: параллельные запросы одного пользователя
// не теряют обновления и не обходят проверку остатков.
type cartService struct {
	db          *gorm.DB
	cartRepo    cartrepo.CartRepository
	productRepo catalogrepo.ProductRepository
}

// NewCartService создаёт новый сервис корзины.
func NewCartService(db *gorm.DB, cartRepo cartrepo.CartRepository, productRepo catalogrepo.ProductRepository) CartService {
	return &cartService{
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart возвращает корзину пользователя с позициями.
func (s *cartService) GetCart(ctx context.Context, userID string) (*cartdomain.Cart, error) {
	if _, err := s.cartRepo.GetOrCreateByUserID(ctx, userID); err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}
	return s.cartRepo.GetByUserID(ctx, userID)
}

// AddItem добавляет товар в корзину или увеличивает количество позиции.
func (s *cartService) AddItem(ctx context.Context, userID, productID string, quantity int32) (*cartdomain.Cart, error) {
	log := logger.FromContext(ctx)

	if quantity < 1 {
		return nil, cartdomain.ErrInvalidQuantity
	}

	cart, err := s.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Блокируем товар: параллельные добавления одного товара
		// сериализуются и видят актуальный остаток
		product, err := s.productRepo.GetByIDForUpdate(tx, productID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return catalogdomain.ErrProductNotFound
		}
		if product.StockQuantity == 0 {
			return cartdomain.ErrProductOutOfStock
		}

		item, err := s.cartRepo.GetItemForUpdate(tx, cart.ID, productID)
		switch {
		case err == nil:
			// Позиция существует — увеличиваем, не превышая остаток
			newQuantity := item.Quantity + quantity
			if newQuantity > product.StockQuantity {
				newQuantity = product.StockQuantity
			}
			if newQuantity == item.Quantity {
				return nil
			}
			return s.cartRepo.UpdateItemQuantity(tx, item.ID, newQuantity)

		case errors.Is(err, cartdomain.ErrCartItemNotFound):
			// Новая позиция — ограничиваем количество остатком
			if quantity > product.StockQuantity {
				quantity = product.StockQuantity
			}
			newItem := &cartdomain.CartItem{
				ID:        uuid.New().String(),
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
			}
			return s.cartRepo.CreateItem(tx, newItem)

		default:
			return err
		}
	})
	if err != nil {
		if errors.Is(err, catalogdomain.ErrProductNotFound) ||
			errors.Is(err, cartdomain.ErrProductOutOfStock) {
			return nil, err
		}
		log.Error().Err(err).
			Str("user_id", userID).
			Str("product_id", productID).
			Msg("Ошибка добавления товара в корзину")
		return nil, fmt.Errorf("ошибка добавления товара в корзину: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Str("product_id", productID).
		Int32("quantity", quantity).
		Msg("Товар добавлен в корзину")

	return s.cartRepo.GetByUserID(ctx, userID)
}

// UpdateQuantity устанавливает количество позиции корзины.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int32) (*cartdomain.Cart, error) {
	log := logger.FromContext(ctx)

	if quantity < 0 {
		return nil, cartdomain.ErrInvalidQuantity
	}

	cart, err := s.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.cartRepo.GetItemForUpdate(tx, cart.ID, productID)
		if err != nil {
			return err
		}

		// Нулевое количество означает удаление позиции
		if quantity == 0 {
			return s.cartRepo.DeleteItem(tx, cart.ID, productID)
		}

		product, err := s.productRepo.GetByIDForUpdate(tx, productID)
		if err != nil {
			return err
		}

		// Количество не может превышать остаток на складе
		if quantity > product.StockQuantity {
			quantity = product.StockQuantity
		}
		if quantity == 0 {
			return s.cartRepo.DeleteItem(tx, cart.ID, productID)
		}

		return s.cartRepo.UpdateItemQuantity(tx, item.ID, quantity)
	})
	if err != nil {
		if errors.Is(err, cartdomain.ErrCartItemNotFound) ||
			errors.Is(err, catalogdomain.ErrProductNotFound) {
			return nil, err
		}
		log.Error().Err(err).
			Str("user_id", userID).
			Str("product_id", productID).
			Msg("Ошибка изменения количества в корзине")
		return nil, fmt.Errorf("ошибка изменения количества: %w", err)
	}

	return s.cartRepo.GetByUserID(ctx, userID)
}

// RemoveItem удаляет позицию из корзины. Повторное удаление — no-op.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (*cartdomain.Cart, error) {
	cart, err := s.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.cartRepo.DeleteItem(tx, cart.ID, productID)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка удаления товара из корзины: %w", err)
	}

	return s.cartRepo.GetByUserID(ctx, userID)
}
