package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/pku-shop/internal/order/domain"
	"example.com/pku-shop/internal/order/repository"
	"example.com/pku-shop/internal/order/service"
)

// AdminHandler — HTTP обработчики админки заказов.
type AdminHandler struct {
	orders service.OrderService
}

// NewAdminHandler создаёт обработчик админки.
func NewAdminHandler(orders service.OrderService) *AdminHandler {
	return &AdminHandler{orders: orders}
}

// ListOrders обрабатывает GET /api/v1/admin/orders.
// Поддерживает фильтры status, payment_status, search и пагинацию.
func (h *AdminHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	filter := repository.OrderFilter{
		UserID: c.Query("user_id"),
		Search: c.Query("search"),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	if s := c.Query("status"); s != "" {
		status := domain.OrderStatus(s)
		filter.Status = &status
	}
	if s := c.Query("payment_status"); s != "" {
		paymentStatus := domain.PaymentStatus(s)
		filter.PaymentStatus = &paymentStatus
	}

	orders, total, err := h.orders.ListAllOrders(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err, "AdminListOrders")
		return
	}

	items := make([]orderResponse, len(orders))
	for i := range orders {
		items[i] = toOrderResponse(orders[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": items,
		"total":  total,
		"page":   page,
	})
}

// GetOrder обрабатывает GET /api/v1/admin/orders/:id.
func (h *AdminHandler) GetOrder(c *gin.Context) {
	// Пустой userID отключает проверку владельца
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"), "")
	if err != nil {
		RespondError(c, err, "AdminGetOrder")
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// updateStatusRequest — тело запроса смены статуса заказа.
type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus обрабатывает PUT /api/v1/admin/orders/:id/status.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Не указан целевой статус",
		})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		RespondError(c, err, "AdminUpdateStatus")
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// GetStatistics обрабатывает GET /api/v1/admin/orders/statistics.
func (h *AdminHandler) GetStatistics(c *gin.Context) {
	stats, err := h.orders.GetStatistics(c.Request.Context())
	if err != nil {
		RespondError(c, err, "AdminGetStatistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_orders":     stats.TotalOrders,
		"orders_by_status": stats.OrdersByStatus,
		"revenue":          stats.Revenue.Decimal(),
		"currency":         stats.Revenue.Currency,
	})
}
