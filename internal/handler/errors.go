// Package handler содержит HTTP обработчики REST API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cartdomain "example.com/pku-shop/internal/cart/domain"
	catalogdomain "example.com/pku-shop/internal/catalog/domain"
	deliverydomain "example.com/pku-shop/internal/delivery/domain"
	orderdomain "example.com/pku-shop/internal/order/domain"
	paymentdomain "example.com/pku-shop/internal/payment/domain"
	userdomain "example.com/pku-shop/internal/user/domain"
	"example.com/pku-shop/pkg/logger"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondError преобразует доменную ошибку в HTTP ответ.
// Используется всеми handlers для единообразной обработки ошибок.
// ВАЖНО: err не должен быть nil — это баг в вызывающем коде.
func RespondError(c *gin.Context, err error, method string) {
	if err == nil {
		logger.Error().Str("method", method).Msg("RespondError вызван с nil ошибкой — баг в коде")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	log := logger.FromContext(c.Request.Context())

	var httpStatus int
	var errorCode string

	switch {
	// 400 — ошибки валидации
	case errors.Is(err, cartdomain.ErrInvalidQuantity),
		errors.Is(err, cartdomain.ErrInvalidProductID),
		errors.Is(err, orderdomain.ErrEmptyShippingAddress),
		errors.Is(err, orderdomain.ErrEmptyOrder),
		errors.Is(err, deliverydomain.ErrInvalidPickupPoint),
		errors.Is(err, paymentdomain.ErrUnknownProvider),
		errors.Is(err, userdomain.ErrWeakPassword),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrEmptyName):
		httpStatus = http.StatusBadRequest
		errorCode = "invalid_argument"

	// 401 — аутентификация
	case errors.Is(err, userdomain.ErrInvalidCredentials),
		errors.Is(err, userdomain.ErrInvalidToken):
		httpStatus = http.StatusUnauthorized
		errorCode = "unauthenticated"

	// 403 — чужой ресурс
	case errors.Is(err, orderdomain.ErrAccessDenied):
		httpStatus = http.StatusForbidden
		errorCode = "permission_denied"

	// 404 — ресурс не найден
	case errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, cartdomain.ErrCartNotFound),
		errors.Is(err, cartdomain.ErrCartItemNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, paymentdomain.ErrTransactionNotFound),
		errors.Is(err, deliverydomain.ErrDeliveryNotFound),
		errors.Is(err, userdomain.ErrUserNotFound):
		httpStatus = http.StatusNotFound
		errorCode = "not_found"

	// 409 — конфликты состояния
	case errors.Is(err, catalogdomain.ErrInsufficientStock),
		errors.Is(err, cartdomain.ErrProductOutOfStock),
		errors.Is(err, paymentdomain.ErrOrderNotPayable),
		errors.Is(err, orderdomain.ErrOrderNotPaid),
		errors.Is(err, orderdomain.ErrOrderCannotCancel),
		errors.Is(err, orderdomain.ErrInvalidStatusTransition),
		errors.Is(err, deliverydomain.ErrDeliveryAlreadyExists),
		errors.Is(err, userdomain.ErrEmailExists):
		httpStatus = http.StatusConflict
		errorCode = "conflict"

	// 502 — внешние сервисы недоступны
	case errors.Is(err, paymentdomain.ErrProviderUnavailable),
		errors.Is(err, deliverydomain.ErrProviderUnavailable):
		httpStatus = http.StatusBadGateway
		errorCode = "provider_unavailable"

	default:
		httpStatus = http.StatusInternalServerError
		errorCode = "internal_error"
		log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка")
		c.JSON(httpStatus, ErrorResponse{
			Error:   errorCode,
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	log.Debug().Err(err).Str("method", method).Int("status", httpStatus).Msg("Ошибка запроса")

	c.JSON(httpStatus, ErrorResponse{
		Error:   errorCode,
		Message: err.Error(),
	})
}
