// Package jwt — тесты для JWT Manager.
// RSA ключи генерируются прямо в тестах.
package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeyPair содержит тестовые RSA ключи.
type testKeyPair struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// generateTestKeyPair генерирует пару RSA ключей для тестов.
func generateTestKeyPair(t *testing.T) *testKeyPair {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "не удалось сгенерировать RSA ключ")

	return &testKeyPair{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}
}

// createTestManager создаёт Manager напрямую с ключами (без загрузки из файлов).
func createTestManager(t *testing.T, keys *testKeyPair) *Manager {
	t.Helper()

	return &Manager{
		privateKey:      keys.privateKey,
		publicKey:       keys.publicKey,
		issuer:          "test-issuer",
		accessTokenTTL:  15 * time.Minute,
		refreshTokenTTL: 24 * time.Hour,
	}
}

// writeKeyToTempFile записывает ключ во временный файл.
func writeKeyToTempFile(t *testing.T, keyData []byte, prefix string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), prefix+".pem")
	require.NoError(t, os.WriteFile(path, keyData, 0600), "не удалось записать ключ в файл")
	return path
}

// encodePrivateKeyPKCS1 кодирует приватный ключ в формате PKCS#1.
func encodePrivateKeyPKCS1(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// encodePrivateKeyPKCS8 кодирует приватный ключ в формате PKCS#8.
func encodePrivateKeyPKCS8(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()

	bytes, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err, "не удалось закодировать ключ в PKCS#8")

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: bytes,
	})
}

// encodePublicKeyPKIX кодирует публичный ключ в формате PKIX.
func encodePublicKeyPKIX(t *testing.T, key *rsa.PublicKey) []byte {
	t.Helper()

	bytes, err := x509.MarshalPKIXPublicKey(key)
	require.NoError(t, err, "не удалось закодировать публичный ключ в PKIX")

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: bytes,
	})
}

// ==================== Тесты NewManager ====================

func TestNewManager(t *testing.T) {
	keys := generateTestKeyPair(t)

	t.Run("создание с приватным и публичным ключами", func(t *testing.T) {
		privatePath := writeKeyToTempFile(t, encodePrivateKeyPKCS1(keys.privateKey), "private")
		publicPath := writeKeyToTempFile(t, encodePublicKeyPKIX(t, keys.publicKey), "public")

		manager, err := NewManager(Config{
			PrivateKeyPath:  privatePath,
			PublicKeyPath:   publicPath,
			Issuer:          "test-issuer",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		})
		require.NoError(t, err, "ошибка создания Manager")
		require.NotNil(t, manager)

		assert.True(t, manager.CanSign(), "Manager должен уметь подписывать токены")
	})

	t.Run("только публичный ключ — режим валидации", func(t *testing.T) {
		publicPath := writeKeyToTempFile(t, encodePublicKeyPKIX(t, keys.publicKey), "public")

		manager, err := NewManager(Config{
			PublicKeyPath:   publicPath,
			Issuer:          "test-issuer",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		})
		require.NoError(t, err)
		require.NotNil(t, manager)

		assert.False(t, manager.CanSign(), "Manager НЕ должен уметь подписывать токены")
	})

	t.Run("ошибка: публичный ключ не найден", func(t *testing.T) {
		manager, err := NewManager(Config{
			PublicKeyPath: "/nonexistent/path/public.pem",
			Issuer:        "test-issuer",
		})
		assert.Error(t, err)
		assert.Nil(t, manager)
		assert.Contains(t, err.Error(), "ошибка загрузки публичного ключа")
	})

	t.Run("ошибка: приватный ключ не найден", func(t *testing.T) {
		publicPath := writeKeyToTempFile(t, encodePublicKeyPKIX(t, keys.publicKey), "public")

		manager, err := NewManager(Config{
			PrivateKeyPath: "/nonexistent/path/private.pem",
			PublicKeyPath:  publicPath,
			Issuer:         "test-issuer",
		})
		assert.Error(t, err)
		assert.Nil(t, manager)
		assert.Contains(t, err.Error(), "ошибка загрузки приватного ключа")
	})
}

// ==================== Тесты GenerateTokenPair ====================

func TestGenerateTokenPair(t *testing.T) {
	keys := generateTestKeyPair(t)

	t.Run("успешная генерация токенов", func(t *testing.T) {
		manager := createTestManager(t, keys)

		pair, err := manager.GenerateTokenPair("user-123", RoleAdmin)
		require.NoError(t, err)
		require.NotNil(t, pair)

		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)

		expectedExpiry := time.Now().Add(15 * time.Minute).Unix()
		assert.InDelta(t, expectedExpiry, pair.ExpiresAt, 5, "ExpiresAt должен соответствовать TTL access token")
	})

	t.Run("проверка claims в access token", func(t *testing.T) {
		manager := createTestManager(t, keys)

		pair, err := manager.GenerateTokenPair("user-456", RoleCustomer)
		require.NoError(t, err)

		claims, err := manager.ValidateToken(pair.AccessToken)
		require.NoError(t, err, "ошибка валидации сгенерированного токена")

		assert.NotEmpty(t, claims.ID, "jti не должен быть пустым")
		assert.Equal(t, "test-issuer", claims.Issuer)
		assert.Equal(t, "user-456", claims.Subject)
		assert.Equal(t, "user-456", claims.UserID)
		assert.Equal(t, RoleCustomer, claims.Role)
		assert.Len(t, claims.ID, 36, "jti должен быть UUID (36 символов)")
	})

	t.Run("refresh token живёт дольше access token", func(t *testing.T) {
		manager := createTestManager(t, keys)

		pair, err := manager.GenerateTokenPair("user-789", RoleAdmin)
		require.NoError(t, err)

		token, _, err := jwt.NewParser().ParseUnverified(pair.RefreshToken, &jwt.RegisteredClaims{})
		require.NoError(t, err, "ошибка парсинга refresh token")

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		require.True(t, ok)

		assert.Equal(t, "user-789", claims.Subject)
		assert.True(t, claims.ExpiresAt.Time.After(time.Unix(pair.ExpiresAt, 0)),
			"refresh token должен истекать позже access token")
	})

	t.Run("ошибка без приватного ключа", func(t *testing.T) {
		manager := &Manager{publicKey: keys.publicKey, issuer: "test-issuer"}

		pair, err := manager.GenerateTokenPair("user-123", RoleAdmin)
		assert.Error(t, err)
		assert.Nil(t, pair)
		assert.Contains(t, err.Error(), "приватный ключ не загружен")
	})
}

// ==================== Тесты ValidateToken ====================

func TestValidateToken(t *testing.T) {
	keys := generateTestKeyPair(t)
	manager := createTestManager(t, keys)

	t.Run("валидный токен", func(t *testing.T) {
		pair, err := manager.GenerateTokenPair("user-123", RoleAdmin)
		require.NoError(t, err)

		claims, err := manager.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
		assert.Equal(t, RoleAdmin, claims.Role)
	})

	t.Run("просроченный токен", func(t *testing.T) {
		expiredManager := &Manager{
			privateKey:      keys.privateKey,
			publicKey:       keys.publicKey,
			issuer:          "test-issuer",
			accessTokenTTL:  -1 * time.Hour, // Уже истёк
			refreshTokenTTL: 24 * time.Hour,
		}

		pair, err := expiredManager.GenerateTokenPair("user-123", RoleAdmin)
		require.NoError(t, err)

		claims, err := manager.ValidateToken(pair.AccessToken)
		assert.Error(t, err)
		assert.Nil(t, claims)
		assert.Contains(t, err.Error(), "ошибка валидации токена")
	})

	t.Run("невалидная подпись (другой ключ)", func(t *testing.T) {
		otherManager := createTestManager(t, generateTestKeyPair(t))

		pair, err := otherManager.GenerateTokenPair("user-123", RoleAdmin)
		require.NoError(t, err)

		claims, err := manager.ValidateToken(pair.AccessToken)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("malformed токен", func(t *testing.T) {
		testCases := []struct {
			name  string
			token string
		}{
			{"пустой токен", ""},
			{"случайная строка", "not-a-valid-jwt-token"},
			{"неполный JWT", "eyJhbGciOiJSUzI1NiJ9"},
			{"невалидный base64", "not.valid.base64!!!"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				claims, err := manager.ValidateToken(tc.token)
				assert.Error(t, err)
				assert.Nil(t, claims)
			})
		}
	})

	t.Run("токен с неправильным алгоритмом (HS256)", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user-123",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		tokenString, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		claims, err := manager.ValidateToken(tokenString)
		assert.Error(t, err)
		assert.Nil(t, claims)
		assert.Contains(t, err.Error(), "неожиданный алгоритм подписи")
	})
}

// ==================== Тесты ValidateRefreshToken ====================

func TestValidateRefreshToken(t *testing.T) {
	keys := generateTestKeyPair(t)
	manager := createTestManager(t, keys)

	t.Run("валидный refresh token", func(t *testing.T) {
		pair, err := manager.GenerateTokenPair("user-123", RoleCustomer)
		require.NoError(t, err)

		userID, err := manager.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", userID)
	})

	t.Run("просроченный refresh token", func(t *testing.T) {
		expiredManager := &Manager{
			privateKey:      keys.privateKey,
			publicKey:       keys.publicKey,
			issuer:          "test-issuer",
			accessTokenTTL:  15 * time.Minute,
			refreshTokenTTL: -1 * time.Hour,
		}

		pair, err := expiredManager.GenerateTokenPair("user-123", RoleCustomer)
		require.NoError(t, err)

		userID, err := manager.ValidateRefreshToken(pair.RefreshToken)
		assert.Error(t, err)
		assert.Empty(t, userID)
	})

	t.Run("malformed refresh token", func(t *testing.T) {
		userID, err := manager.ValidateRefreshToken("garbage")
		assert.Error(t, err)
		assert.Empty(t, userID)
	})
}

// ==================== Тесты LoadPrivateKey ====================

func TestLoadPrivateKey(t *testing.T) {
	keys := generateTestKeyPair(t)

	t.Run("загрузка PKCS#1 формата", func(t *testing.T) {
		path := writeKeyToTempFile(t, encodePrivateKeyPKCS1(keys.privateKey), "private-pkcs1")

		loadedKey, err := LoadPrivateKey(path)
		require.NoError(t, err)
		assert.Equal(t, keys.privateKey.N, loadedKey.N, "модуль ключа должен совпадать")
	})

	t.Run("загрузка PKCS#8 формата", func(t *testing.T) {
		path := writeKeyToTempFile(t, encodePrivateKeyPKCS8(t, keys.privateKey), "private-pkcs8")

		loadedKey, err := LoadPrivateKey(path)
		require.NoError(t, err)
		assert.Equal(t, keys.privateKey.N, loadedKey.N, "модуль ключа должен совпадать")
	})

	t.Run("ошибка: файл не существует", func(t *testing.T) {
		key, err := LoadPrivateKey("/nonexistent/path/private.pem")
		assert.Error(t, err)
		assert.Nil(t, key)
		assert.Contains(t, err.Error(), "ошибка чтения файла")
	})

	t.Run("ошибка: невалидный PEM", func(t *testing.T) {
		path := writeKeyToTempFile(t, []byte("not a valid pem"), "invalid")

		key, err := LoadPrivateKey(path)
		assert.Error(t, err)
		assert.Nil(t, key)
		assert.Contains(t, err.Error(), "невалидный PEM формат")
	})
}

// ==================== Тесты LoadPublicKey ====================

func TestLoadPublicKey(t *testing.T) {
	keys := generateTestKeyPair(t)

	t.Run("загрузка PKIX формата", func(t *testing.T) {
		path := writeKeyToTempFile(t, encodePublicKeyPKIX(t, keys.publicKey), "public-pkix")

		loadedKey, err := LoadPublicKey(path)
		require.NoError(t, err)
		assert.Equal(t, keys.publicKey.N, loadedKey.N, "модуль ключа должен совпадать")
	})

	t.Run("ошибка: файл не существует", func(t *testing.T) {
		key, err := LoadPublicKey("/nonexistent/path/public.pem")
		assert.Error(t, err)
		assert.Nil(t, key)
		assert.Contains(t, err.Error(), "ошибка чтения файла")
	})

	t.Run("ошибка: приватный ключ вместо публичного", func(t *testing.T) {
		path := writeKeyToTempFile(t, encodePrivateKeyPKCS1(keys.privateKey), "private-instead")

		key, err := LoadPublicKey(path)
		assert.Error(t, err)
		assert.Nil(t, key)
	})
}
