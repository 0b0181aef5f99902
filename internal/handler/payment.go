package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/pku-shop/internal/middleware"
	"example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/internal/payment/service"
)

// PaymentHandler — HTTP обработчики платежей.
type PaymentHandler struct {
	payments service.PaymentService
}

// NewPaymentHandler создаёт обработчик платежей.
func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// createPaymentRequest — тело запроса создания платежа.
type createPaymentRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	PaymentSystem string `json:"payment_system" binding:"required"`
}

// CreatePayment обрабатывает POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректное тело запроса",
		})
		return
	}

	system := domain.PaymentSystem(req.PaymentSystem)
	if !system.IsValid() {
		RespondError(c, domain.ErrUnknownProvider, "CreatePayment")
		return
	}

	result, err := h.payments.CreatePayment(c.Request.Context(), userID, req.OrderID, system)
	if err != nil {
		RespondError(c, err, "CreatePayment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment_id":  result.PaymentID,
		"payment_url": result.PaymentURL,
		"amount":      result.Amount,
		"currency":    result.Currency,
	})
}

// GetPayment обрабатывает GET /api/v1/payments/:paymentID.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	paymentID := c.Param("paymentID")

	transaction, err := h.payments.GetPayment(c.Request.Context(), userID, paymentID)
	if err != nil {
		RespondError(c, err, "GetPayment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":     transaction.PaymentID,
		"order_id":       transaction.OrderID,
		"status":         string(transaction.Status),
		"payment_system": string(transaction.PaymentSystem),
		"amount":         transaction.Amount.Decimal(),
		"currency":       transaction.Amount.Currency,
	})
}
