package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	deliverydomain "example.com/pku-shop/internal/delivery/domain"
	deliveryservice "example.com/pku-shop/internal/delivery/service"
	paymentdomain "example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/internal/payment/provider"
	paymentservice "example.com/pku-shop/internal/payment/service"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/metrics"
)

// WebhookHandler — обработчики входящих уведомлений платёжных систем и СДЭК.
// Вебхуки публичные: аутентификация заменяется проверкой подписи,
// ответы соответствуют ожиданиям конкретного провайдера.
type WebhookHandler struct {
	payments   paymentservice.PaymentService
	deliveries deliveryservice.DeliveryService
}

// NewWebhookHandler создаёт обработчик вебхуков.
func NewWebhookHandler(payments paymentservice.PaymentService, deliveries deliveryservice.DeliveryService) *WebhookHandler {
	return &WebhookHandler{
		payments:   payments,
		deliveries: deliveries,
	}
}

// Robokassa обрабатывает POST|GET /api/v1/webhooks/robokassa (ResultURL).
// Робокасса ждёт в ответе literal "OK{InvId}"; любой другой ответ
// считается ошибкой доставки, и уведомление будет повторено.
func (h *WebhookHandler) Robokassa(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	p, err := h.payments.Provider(paymentdomain.PaymentSystemRobokassa)
	if err != nil {
		c.String(http.StatusInternalServerError, "ERROR")
		return
	}
	robokassa, ok := p.(*provider.Robokassa)
	if !ok {
		log.Error().Str("provider", "robokassa").Msg("Провайдер Робокассы имеет неожиданный тип")
		c.String(http.StatusInternalServerError, "ERROR")
		return
	}

	cb, err := robokassa.ParseCallback(c.Request)
	if err != nil {
		h.rejectParse(c, "robokassa", err)
		c.String(http.StatusBadRequest, "ERROR")
		return
	}

	if err := h.payments.ProcessCallback(ctx, paymentdomain.PaymentSystemRobokassa, cb); err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrCallbackInProgress):
			// Параллельное уведомление уже обрабатывается — пусть повторит
			c.String(http.StatusServiceUnavailable, "ERROR")
		case errors.Is(err, paymentdomain.ErrTransactionNotFound),
			errors.Is(err, paymentdomain.ErrAmountMismatch):
			c.String(http.StatusBadRequest, "ERROR")
		default:
			log.Error().Err(err).Str("payment_id", cb.PaymentID).Msg("Ошибка обработки уведомления Робокассы")
			c.String(http.StatusInternalServerError, "ERROR")
		}
		return
	}

	c.String(http.StatusOK, robokassa.SuccessResponse(cb.PaymentID))
}

// YooKassa обрабатывает POST /api/v1/webhooks/yookassa.
// ЮKassa повторяет уведомление при любом ответе кроме 2xx.
func (h *WebhookHandler) YooKassa(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	p, err := h.payments.Provider(paymentdomain.PaymentSystemYooKassa)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	cb, err := p.ParseCallback(c.Request)
	if err != nil {
		h.rejectParse(c, "yookassa", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_webhook",
			Message: "Уведомление отклонено",
		})
		return
	}

	if err := h.payments.ProcessCallback(ctx, paymentdomain.PaymentSystemYooKassa, cb); err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrCallbackInProgress):
			c.Status(http.StatusServiceUnavailable)
		case errors.Is(err, paymentdomain.ErrTransactionNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, paymentdomain.ErrAmountMismatch):
			c.Status(http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("payment_id", cb.PaymentID).Msg("Ошибка обработки уведомления ЮKassa")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// cdekWebhookRequest — тело вебхука СДЭК (тип ORDER_STATUS).
type cdekWebhookRequest struct {
	Type       string `json:"type"`
	UUID       string `json:"uuid" binding:"required"`
	Attributes struct {
		Code       string `json:"code"`
		CdekNumber string `json:"cdek_number"`
	} `json:"attributes"`
}

// CDEK обрабатывает POST /api/v1/webhooks/cdek.
func (h *WebhookHandler) CDEK(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req cdekWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.WebhookRejectedTotal.WithLabelValues("cdek", "malformed").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_webhook",
			Message: "Некорректное тело вебхука",
		})
		return
	}

	// Вебхуки других типов (печатные формы и т.п.) подтверждаем без обработки
	if req.Type != "" && req.Type != "ORDER_STATUS" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	err := h.deliveries.ProcessWebhook(ctx, req.UUID, req.Attributes.Code, req.Attributes.CdekNumber)
	if err != nil {
		switch {
		case errors.Is(err, deliverydomain.ErrUnknownCdekStatus):
			// Неизвестный статус подтверждаем, чтобы СДЭК не повторял вечно
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		case errors.Is(err, deliverydomain.ErrDeliveryNotFound):
			metrics.WebhookRejectedTotal.WithLabelValues("cdek", "not_found").Inc()
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Заявка на доставку не найдена",
			})
		default:
			log.Error().Err(err).Str("cdek_order_id", req.UUID).Msg("Ошибка обработки вебхука СДЭК")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// rejectParse фиксирует отклонённое уведомление в метриках и логах.
func (h *WebhookHandler) rejectParse(c *gin.Context, providerName string, err error) {
	reason := "malformed"
	if errors.Is(err, paymentdomain.ErrSignatureMismatch) {
		reason = "bad_signature"
	}
	metrics.WebhookRejectedTotal.WithLabelValues(providerName, reason).Inc()

	log := logger.FromContext(c.Request.Context())
	log.Warn().
		Err(err).
		Str("provider", providerName).
		Str("client_ip", c.ClientIP()).
		Msg("Отклонено уведомление платёжной системы")
}
