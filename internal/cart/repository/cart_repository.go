// Package repository содержит реализацию доступа к данным корзины.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/pku-shop/internal/cart/domain"
	"example.com/pku-shop/pkg/money"
)

// CartRepository определяет интерфейс для работы с корзинами в БД.
// Методы с параметром tx выполняются внутри переданной транзакции —
// изменение состава корзины всегда идёт под блокировкой строк.
type CartRepository interface {
	// GetOrCreateByUserID возвращает корзину пользователя,
	// создавая её лениво при первом обращении.
	GetOrCreateByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// GetByUserID возвращает корзину с позициями и актуальными данными
	// товаров (название, цена) из каталога.
	GetByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// GetItemForUpdate возвращает позицию корзины с блокировкой строки
	// или ErrCartItemNotFound. Вызывается только внутри транзакции.
	GetItemForUpdate(tx *gorm.DB, cartID, productID string) (*domain.CartItem, error)

	// ListItemsForUpdate возвращает все позиции корзины с блокировкой строк.
	ListItemsForUpdate(tx *gorm.DB, cartID string) ([]domain.CartItem, error)

	// CreateItem создаёт новую позицию корзины внутри транзакции.
	CreateItem(tx *gorm.DB, item *domain.CartItem) error

	// UpdateItemQuantity обновляет количество позиции внутри транзакции.
	UpdateItemQuantity(tx *gorm.DB, itemID string, quantity int32) error

	// DeleteItem удаляет позицию корзины внутри транзакции.
	// Удаление отсутствующей позиции не является ошибкой.
	DeleteItem(tx *gorm.DB, cartID, productID string) error

	// ClearItems удаляет все позиции корзины внутри транзакции.
	ClearItems(tx *gorm.DB, cartID string) error
}

// CartModel — GORM модель для таблицы carts.
type CartModel struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel — GORM модель для таблицы cart_items.
// Пара (cart_id, product_id) уникальна: одна позиция на товар.
type CartItemModel struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey"`
	CartID    string    `gorm:"column:cart_id;type:varchar(36);not null;uniqueIndex:idx_cart_product"`
	ProductID string    `gorm:"column:product_id;type:varchar(36);not null;uniqueIndex:idx_cart_product"`
	Quantity  int32     `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (CartItemModel) TableName() string {
	return "cart_items"
}

// cartItemRow — результат JOIN cart_items с products.
type cartItemRow struct {
	CartItemModel
	ProductName     string `gorm:"column:product_name"`
	ProductPrice    int64  `gorm:"column:product_price"`
	ProductCurrency string `gorm:"column:product_currency"`
}

// toDomain конвертирует строку JOIN в доменную позицию корзины.
func (r *cartItemRow) toDomain() domain.CartItem {
	return domain.CartItem{
		ID:          r.ID,
		CartID:      r.CartID,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		ProductPrice: money.Money{
			Amount:   r.ProductPrice,
			Currency: r.ProductCurrency,
		},
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// toDomain конвертирует GORM модель позиции в доменную сущность (без данных товара).
func (m *CartItemModel) toDomain() domain.CartItem {
	return domain.CartItem{
		ID:        m.ID,
		CartID:    m.CartID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// cartRepository — GORM реализация CartRepository.
type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository создаёт новый репозиторий корзин.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// GetOrCreateByUserID возвращает корзину пользователя, создавая при отсутствии.
// Гонка двух параллельных созданий разрешается уникальным индексом по user_id:
// проигравший insert перечитывает существующую корзину.
func (r *cartRepository) GetOrCreateByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	var model CartModel

	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if err == nil {
		return &domain.Cart{
			ID:        model.ID,
			UserID:    model.UserID,
			CreatedAt: model.CreatedAt,
			UpdatedAt: model.UpdatedAt,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	model = CartModel{
		ID:     uuid.New().String(),
		UserID: userID,
	}
	if createErr := r.db.WithContext(ctx).Create(&model).Error; createErr != nil {
		if isDuplicateKeyError(createErr) {
			// Параллельный запрос успел создать корзину — перечитываем
			if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
				return nil, err
			}
		} else {
			return nil, createErr
		}
	}

	return &domain.Cart{
		ID:        model.ID,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

// GetByUserID возвращает корзину с позициями и данными товаров из каталога.
func (r *cartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	var model CartModel

	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCartNotFound
		}
		return nil, err
	}

	var rows []cartItemRow
	if err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.*, products.name AS product_name, products.price AS product_price, products.currency AS product_currency").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.cart_id = ?", model.ID).
		Order("cart_items.created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	cart := &domain.Cart{
		ID:        model.ID,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		Items:     make([]domain.CartItem, len(rows)),
	}
	for i := range rows {
		cart.Items[i] = rows[i].toDomain()
	}

	return cart, nil
}

// GetItemForUpdate возвращает позицию корзины с блокировкой строки.
func (r *cartRepository) GetItemForUpdate(tx *gorm.DB, cartID, productID string) (*domain.CartItem, error) {
	var model CartItemModel

	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCartItemNotFound
		}
		return nil, err
	}

	item := model.toDomain()
	return &item, nil
}

// ListItemsForUpdate возвращает все позиции корзины с блокировкой строк.
func (r *cartRepository) ListItemsForUpdate(tx *gorm.DB, cartID string) ([]domain.CartItem, error) {
	var models []CartItemModel

	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, len(models))
	for i := range models {
		items[i] = models[i].toDomain()
	}
	return items, nil
}

// CreateItem создаёт новую позицию корзины внутри транзакции.
func (r *cartRepository) CreateItem(tx *gorm.DB, item *domain.CartItem) error {
	model := CartItemModel{
		ID:        item.ID,
		CartID:    item.CartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if model.ID == "" {
		model.ID = uuid.New().String()
	}

	if err := tx.Create(&model).Error; err != nil {
		return err
	}

	item.ID = model.ID
	item.CreatedAt = model.CreatedAt
	item.UpdatedAt = model.UpdatedAt
	return nil
}

// UpdateItemQuantity обновляет количество позиции внутри транзакции.
func (r *cartRepository) UpdateItemQuantity(tx *gorm.DB, itemID string, quantity int32) error {
	result := tx.Model(&CartItemModel{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

// DeleteItem удаляет позицию корзины. Идемпотентно.
func (r *cartRepository) DeleteItem(tx *gorm.DB, cartID, productID string) error {
	return tx.
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&CartItemModel{}).Error
}

// ClearItems удаляет все позиции корзины внутри транзакции.
func (r *cartRepository) ClearItems(tx *gorm.DB, cartID string) error {
	return tx.
		Where("cart_id = ?", cartID).
		Delete(&CartItemModel{}).Error
}

// isDuplicateKeyError проверяет, является ли ошибка дубликатом ключа.
// MySQL возвращает ошибку с кодом 1062 при попытке вставить дубликат.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "1062")
}
