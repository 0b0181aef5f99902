// Package domain содержит бизнес-сущности и доменные ошибки пользователей.
package domain

import (
	"regexp"
	"strings"
	"time"
)

// emailRegex — регулярное выражение для валидации email.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Роли пользователей.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User представляет пользователя магазина.
// Это доменная сущность без зависимостей от инфраструктуры (GORM, HTTP).
type User struct {
	ID        string    // Уникальный идентификатор (UUID)
	Name      string    // Имя пользователя
	Email     string    // Email пользователя (уникальный)
	Password  string    // Хеш пароля (bcrypt)
	Role      string    // Роль (customer/admin)
	Profile   Profile   // Профиль покупателя
	CreatedAt time.Time // Дата создания аккаунта
	UpdatedAt time.Time // Дата последнего обновления
}

// Profile — профиль покупателя.
// Создаётся вместе с пользователем в одной транзакции.
type Profile struct {
	ID             string    // Уникальный идентификатор (UUID)
	UserID         string    // ID пользователя
	Phone          string    // Телефон
	DefaultAddress string    // Адрес доставки по умолчанию
	CreatedAt      time.Time // Дата создания
	UpdatedAt      time.Time // Дата последнего обновления
}

// Validate проверяет корректность полей пользователя.
// Вызывается перед созданием пользователя.
func (u *User) Validate() error {
	if err := u.ValidateEmail(); err != nil {
		return err
	}

	if err := u.ValidateName(); err != nil {
		return err
	}

	return nil
}

// ValidateEmail проверяет корректность email.
func (u *User) ValidateEmail() error {
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return ErrInvalidEmail
	}

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateName проверяет, что имя пользователя не пустое.
func (u *User) ValidateName() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// IsAdmin возвращает true для администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidatePassword проверяет требования к паролю.
// Минимум 8 символов.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// TokenPair содержит пару access и refresh токенов.
type TokenPair struct {
	AccessToken  string // JWT access token
	RefreshToken string // JWT refresh token
	ExpiresAt    int64  // Unix timestamp истечения access token
}
