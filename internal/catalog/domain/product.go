// Package domain содержит бизнес-сущности и доменные ошибки каталога товаров.
package domain

import (
	"strings"
	"time"

	"example.com/pku-shop/pkg/money"
)

// Product — товар каталога.
// Это доменная сущность без зависимостей от инфраструктуры (GORM, HTTP).
type Product struct {
	ID            string      // Уникальный идентификатор товара (UUID)
	Name          string      // Название товара
	Slug          string      // URL-идентификатор (уникальный)
	Description   string      // Описание товара
	Price         money.Money // Цена за единицу
	StockQuantity int32       // Остаток на складе (>= 0)
	IsActive      bool        // Доступен ли товар для продажи
	IsGlutenFree  bool        // Безглютеновый продукт
	IsLowProtein  bool        // Низкобелковый продукт
	CreatedAt     time.Time   // Дата создания
	UpdatedAt     time.Time   // Дата последнего обновления
}

// Validate проверяет корректность полей товара.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidProductName
	}

	if strings.TrimSpace(p.Slug) == "" {
		return ErrInvalidProductSlug
	}

	if p.Price.Amount <= 0 {
		return ErrInvalidPrice
	}

	if p.StockQuantity < 0 {
		return ErrInvalidStock
	}

	return nil
}

// IsAvailable проверяет, доступен ли товар для добавления в корзину.
func (p *Product) IsAvailable() bool {
	return p.IsActive && p.StockQuantity > 0
}

// AvailableToAdd возвращает, сколько единиц товара можно добавить сверх
// уже зарезервированного количества (в корзине).
func (p *Product) AvailableToAdd(reserved int32) int32 {
	available := p.StockQuantity - reserved
	if available < 0 {
		return 0
	}
	return available
}
