// Package jwt предоставляет работу с JWT токенами на основе RS256.
// Использует асимметричную криптографию: приватный ключ для подписи,
// публичный ключ для верификации.
package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Роли пользователей магазина.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Claims содержит данные JWT токена.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`        // ID пользователя
	Role   string `json:"role,omitempty"` // Роль пользователя (customer/admin)
}

// TokenPair содержит пару access и refresh токенов.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // Unix timestamp истечения access token
}

// Manager управляет созданием и валидацией JWT токенов.
// Поддерживает RS256 (асимметричная криптография).
type Manager struct {
	privateKey      *rsa.PrivateKey // Приватный ключ (для подписи)
	publicKey       *rsa.PublicKey  // Публичный ключ (для верификации)
	issuer          string          // Издатель токена
	accessTokenTTL  time.Duration   // Время жизни access token
	refreshTokenTTL time.Duration   // Время жизни refresh token
}

// Config содержит параметры для создания Manager.
type Config struct {
	PrivateKeyPath  string        // Путь к приватному ключу
	PublicKeyPath   string        // Путь к публичному ключу (обязательно)
	Issuer          string        // Издатель токена
	AccessTokenTTL  time.Duration // Время жизни access token
	RefreshTokenTTL time.Duration // Время жизни refresh token
}

// NewManager создаёт новый менеджер JWT токенов.
// Если privateKeyPath пустой — менеджер работает только в режиме валидации.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		issuer:          cfg.Issuer,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}

	publicKey, err := LoadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки публичного ключа: %w", err)
	}
	m.publicKey = publicKey

	if cfg.PrivateKeyPath != "" {
		privateKey, err := LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки приватного ключа: %w", err)
		}
		m.privateKey = privateKey
	}

	return m, nil
}

// GenerateTokenPair создаёт пару access и refresh токенов.
// Требует наличия приватного ключа.
func (m *Manager) GenerateTokenPair(userID, role string) (*TokenPair, error) {
	if m.privateKey == nil {
		return nil, fmt.Errorf("приватный ключ не загружен: генерация токенов недоступна")
	}

	now := time.Now()
	accessExpiry := now.Add(m.accessTokenTTL)

	// Access Token
	accessClaims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),              // jti — уникальный идентификатор токена
			Issuer:    m.issuer,                         // iss — издатель
			Subject:   userID,                           // sub — ID пользователя
			IssuedAt:  jwt.NewNumericDate(now),          // iat — время выдачи
			ExpiresAt: jwt.NewNumericDate(accessExpiry), // exp — время истечения
		},
		UserID: userID,
		Role:   role,
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims)
	accessTokenString, err := accessToken.SignedString(m.privateKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи access token: %w", err)
	}

	// Refresh Token (более долгоживущий, без role)
	refreshClaims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    m.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTokenTTL)),
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodRS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString(m.privateKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresAt:    accessExpiry.Unix(),
	}, nil
}

// ValidateToken проверяет токен и возвращает claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем, что используется правильный алгоритм
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм подписи: %v", token.Header["alg"])
		}
		return m.publicKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("ошибка валидации токена: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("невалидные claims токена")
	}

	return claims, nil
}

// ValidateRefreshToken проверяет refresh token и возвращает subject (userID).
func (m *Manager) ValidateRefreshToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм подписи: %v", token.Header["alg"])
		}
		return m.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("ошибка валидации refresh token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("невалидный refresh token")
	}
	return claims.Subject, nil
}

// CanSign возвращает true, если менеджер может подписывать токены.
func (m *Manager) CanSign() bool {
	return m.privateKey != nil
}

// LoadPrivateKey загружает RSA приватный ключ из PEM файла.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("невалидный PEM формат в %s", path)
	}

	// PKCS#8 (современный формат)
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("ключ не является RSA ключом")
		}
		return rsaKey, nil
	}

	// PKCS#1 (старый формат)
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга приватного ключа: %w", err)
	}

	return key, nil
}

// LoadPublicKey загружает RSA публичный ключ из PEM файла.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("невалидный PEM формат в %s", path)
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга публичного ключа: %w", err)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("ключ не является RSA ключом")
	}

	return rsaKey, nil
}
