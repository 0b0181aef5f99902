// Package middleware содержит HTTP middleware приложения.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/pku-shop/pkg/jwt"
	"example.com/pku-shop/pkg/logger"
)

// Ключи контекста Gin с данными аутентификации.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// TokenValidator — интерфейс для валидации токенов.
// Позволяет мокировать jwt.Manager в тестах.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Claims, error)
}

// AuthMiddleware — middleware для проверки JWT токенов.
// Токены проверяются локально по публичному ключу (RS256),
// без обращений к внешним сервисам.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware создаёт новый middleware для аутентификации.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Handle возвращает Gin handler function для middleware.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())

		token := extractBearerToken(c)
		if token == "" {
			log.Debug().Msg("Отсутствует токен авторизации")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Требуется авторизация",
			})
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка валидации токена")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Невалидный токен",
			})
			return
		}

		// Сохраняем данные пользователя в контекст Gin
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin возвращает middleware, пропускающий только администраторов.
// Должен стоять после Handle.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != jwt.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "permission_denied",
				"message": "Требуются права администратора",
			})
			return
		}
		c.Next()
	}
}

// extractBearerToken извлекает токен из заголовка Authorization.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
