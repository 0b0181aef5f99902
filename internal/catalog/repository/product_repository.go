// Package repository содержит реализацию доступа к данным каталога.
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/pku-shop/internal/catalog/domain"
	"example.com/pku-shop/pkg/money"
)

// ProductFilter — фильтры списка товаров.
type ProductFilter struct {
	OnlyActive   bool   // Только активные товары
	GlutenFree   *bool  // Фильтр по безглютеновым товарам
	LowProtein   *bool  // Фильтр по низкобелковым товарам
	Search       string // Поиск по названию
	Offset       int
	Limit        int
}

// ProductRepository определяет интерфейс для работы с товарами в БД.
type ProductRepository interface {
	// GetByID возвращает товар по ID.
	GetByID(ctx context.Context, productID string) (*domain.Product, error)

	// GetBySlug возвращает товар по slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// GetByIDForUpdate возвращает товар по ID с блокировкой строки
	// (SELECT ... FOR UPDATE). Вызывается только внутри транзакции.
	GetByIDForUpdate(tx *gorm.DB, productID string) (*domain.Product, error)

	// List возвращает товары по фильтру с пагинацией и общее количество.
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int64, error)

	// Create создаёт новый товар.
	Create(ctx context.Context, product *domain.Product) error

	// Update обновляет товар.
	Update(ctx context.Context, product *domain.Product) error

	// DecrementStock атомарно уменьшает остаток товара внутри транзакции.
	// Возвращает ErrInsufficientStock, если остатка недостаточно.
	DecrementStock(tx *gorm.DB, productID string, quantity int32) error

	// IncrementStock атомарно увеличивает остаток товара внутри транзакции.
	// Парный метод к DecrementStock: отмена заказа возвращает резерв.
	IncrementStock(tx *gorm.DB, productID string, quantity int32) error
}

// ProductModel — GORM модель для таблицы products.
// Отделена от доменной сущности для гибкости.
type ProductModel struct {
	ID            string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Name          string    `gorm:"column:name;type:varchar(255);not null"`
	Slug          string    `gorm:"column:slug;type:varchar(255);not null;uniqueIndex"`
	Description   string    `gorm:"column:description;type:text"`
	Price         int64     `gorm:"column:price;not null"`
	Currency      string    `gorm:"column:currency;type:varchar(3);not null"`
	StockQuantity int32     `gorm:"column:stock_quantity;not null;default:0"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true;index"`
	IsGlutenFree  bool      `gorm:"column:is_gluten_free;not null;default:false"`
	IsLowProtein  bool      `gorm:"column:is_low_protein;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (ProductModel) TableName() string {
	return "products"
}

// toDomain конвертирует GORM модель товара в доменную сущность.
func (m *ProductModel) toDomain() *domain.Product {
	return &domain.Product{
		ID:          m.ID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		Price: money.Money{
			Amount:   m.Price,
			Currency: m.Currency,
		},
		StockQuantity: m.StockQuantity,
		IsActive:      m.IsActive,
		IsGlutenFree:  m.IsGlutenFree,
		IsLowProtein:  m.IsLowProtein,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// productModelFromDomain конвертирует доменную сущность в GORM модель.
func productModelFromDomain(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         p.Price.Amount,
		Currency:      p.Price.Currency,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
		IsGlutenFree:  p.IsGlutenFree,
		IsLowProtein:  p.IsLowProtein,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// productRepository — GORM реализация ProductRepository.
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создаёт новый репозиторий товаров.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// GetByID возвращает товар по ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel

	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetBySlug возвращает товар по slug.
func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var model ProductModel

	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByIDForUpdate возвращает товар с блокировкой строки.
// Блокировка держится до конца транзакции tx.
func (r *productRepository) GetByIDForUpdate(tx *gorm.DB, id string) (*domain.Product, error) {
	var model ProductModel

	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// List возвращает товары по фильтру с пагинацией.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int64, error) {
	var models []ProductModel
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&ProductModel{})

	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if filter.GlutenFree != nil {
		query = query.Where("is_gluten_free = ?", *filter.GlutenFree)
	}
	if filter.LowProtein != nil {
		query = query.Where("is_low_protein = ?", *filter.LowProtein)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}

	// Подсчёт общего количества записей (до пагинации)
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	if err := query.
		Order("name ASC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	products := make([]*domain.Product, len(models))
	for i := range models {
		products[i] = models[i].toDomain()
	}

	return products, totalCount, nil
}

// Create создаёт новый товар.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	model := productModelFromDomain(product)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	product.CreatedAt = model.CreatedAt
	product.UpdatedAt = model.UpdatedAt
	return nil
}

// Update обновляет товар.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	model := productModelFromDomain(product)

	result := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":           model.Name,
			"slug":           model.Slug,
			"description":    model.Description,
			"price":          model.Price,
			"currency":       model.Currency,
			"stock_quantity": model.StockQuantity,
			"is_active":      model.IsActive,
			"is_gluten_free": model.IsGlutenFree,
			"is_low_protein": model.IsLowProtein,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// DecrementStock атомарно уменьшает остаток товара внутри транзакции.
// Условие stock_quantity >= quantity в WHERE защищает от ухода в минус.
func (r *productRepository) DecrementStock(tx *gorm.DB, productID string, quantity int32) error {
	result := tx.Model(&ProductModel{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// IncrementStock атомарно увеличивает остаток товара внутри транзакции.
func (r *productRepository) IncrementStock(tx *gorm.DB, productID string, quantity int32) error {
	result := tx.Model(&ProductModel{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
