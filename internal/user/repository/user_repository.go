// Package repository содержит реализацию доступа к данным пользователей.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"example.com/pku-shop/internal/user/domain"
)

// UserRepository определяет интерфейс для работы с пользователями в БД.
type UserRepository interface {
	// Create создаёт пользователя вместе с профилем в одной транзакции.
	Create(ctx context.Context, user *domain.User) error

	// GetByID возвращает пользователя с профилем по ID.
	GetByID(ctx context.Context, userID string) (*domain.User, error)

	// GetByEmail возвращает пользователя с профилем по email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmail проверяет, занят ли email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// UpdateProfile обновляет профиль пользователя.
	UpdateProfile(ctx context.Context, profile *domain.Profile) error
}

// UserModel — GORM модель для таблицы users.
type UserModel struct {
	ID        string        `gorm:"column:id;type:varchar(36);primaryKey"`
	Name      string        `gorm:"column:name;type:varchar(255);not null"`
	Email     string        `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	Password  string        `gorm:"column:password;type:varchar(255);not null"`
	Role      string        `gorm:"column:role;type:varchar(20);not null;default:customer"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
	Profile   *ProfileModel `gorm:"foreignKey:UserID;references:ID"`
}

// TableName возвращает имя таблицы в БД.
func (UserModel) TableName() string {
	return "users"
}

// ProfileModel — GORM модель для таблицы profiles.
type ProfileModel struct {
	ID             string    `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID         string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex"`
	Phone          string    `gorm:"column:phone;type:varchar(20)"`
	DefaultAddress string    `gorm:"column:default_address;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (ProfileModel) TableName() string {
	return "profiles"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *UserModel) toDomain() *domain.User {
	user := &domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Password:  m.Password,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if m.Profile != nil {
		user.Profile = domain.Profile{
			ID:             m.Profile.ID,
			UserID:         m.Profile.UserID,
			Phone:          m.Profile.Phone,
			DefaultAddress: m.Profile.DefaultAddress,
			CreatedAt:      m.Profile.CreatedAt,
			UpdatedAt:      m.Profile.UpdatedAt,
		}
	}

	return user
}

// userRepository — GORM реализация UserRepository.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository создаёт новый репозиторий пользователей.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create создаёт пользователя вместе с профилем в одной транзакции.
// Замена сигналов Django: профиль создаётся явно, а не хуком.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	model := &UserModel{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Password: user.Password,
		Role:     user.Role,
		Profile: &ProfileModel{
			ID:             user.Profile.ID,
			UserID:         user.ID,
			Phone:          user.Profile.Phone,
			DefaultAddress: user.Profile.DefaultAddress,
		},
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrEmailExists
		}
		return err
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID возвращает пользователя с профилем по ID.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel

	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByEmail возвращает пользователя с профилем по email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel

	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("email = ?", email).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// ExistsByEmail проверяет, занят ли email.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64

	if err := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// UpdateProfile обновляет профиль пользователя.
func (r *userRepository) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	result := r.db.WithContext(ctx).
		Model(&ProfileModel{}).
		Where("user_id = ?", profile.UserID).
		Updates(map[string]interface{}{
			"phone":           profile.Phone,
			"default_address": profile.DefaultAddress,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
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
