package domain

import "errors"

// Доменные ошибки пользователей.
// Используются для передачи бизнес-ошибок между слоями приложения.
var (
	// ErrUserNotFound возвращается, когда пользователь не найден в базе данных.
	ErrUserNotFound = errors.New("пользователь не найден")

	// ErrEmailExists возвращается при попытке регистрации с уже занятым email.
	ErrEmailExists = errors.New("пользователь с таким email уже существует")

	// ErrInvalidCredentials возвращается при неверном email или пароле.
	ErrInvalidCredentials = errors.New("неверный email или пароль")

	// ErrInvalidToken возвращается при невалидном или просроченном токене.
	ErrInvalidToken = errors.New("невалидный или просроченный токен")

	// ErrWeakPassword возвращается, если пароль не соответствует требованиям безопасности.
	ErrWeakPassword = errors.New("пароль должен содержать минимум 8 символов")

	// ErrInvalidEmail возвращается при некорректном формате email.
	ErrInvalidEmail = errors.New("некорректный формат email")

	// ErrEmptyName возвращается, если имя пользователя пустое.
	ErrEmptyName = errors.New("имя пользователя не может быть пустым")
)
