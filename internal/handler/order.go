package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/pku-shop/internal/middleware"
	"example.com/pku-shop/internal/order/domain"
	"example.com/pku-shop/internal/order/service"
)

// OrderHandler — HTTP обработчики заказов.
type OrderHandler struct {
	orders service.OrderService
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// checkoutRequest — тело запроса оформления заказа.
type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
	DeliveryMethod  string `json:"delivery_method"`
	Notes           string `json:"notes"`
}

// orderItemResponse — позиция заказа в ответе API.
type orderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

// orderResponse — заказ в ответе API.
type orderResponse struct {
	ID               string              `json:"id"`
	OrderNumber      string              `json:"order_number"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"payment_status"`
	TotalAmount      string              `json:"total_amount"`
	Currency         string              `json:"currency"`
	ShippingAddress  string              `json:"shipping_address"`
	DeliveryMethod   string              `json:"delivery_method,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	DeliveryTracking string              `json:"delivery_tracking,omitempty"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        string              `json:"created_at"`
}

// toOrderResponse собирает ответ API из доменного заказа.
func toOrderResponse(order *domain.Order) orderResponse {
	items := make([]orderItemResponse, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items[i] = orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.Decimal(),
			Subtotal:    item.Subtotal().Decimal(),
		}
	}

	return orderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		TotalAmount:      order.TotalAmount.Decimal(),
		Currency:         order.TotalAmount.Currency,
		ShippingAddress:  order.ShippingAddress,
		DeliveryMethod:   order.DeliveryMethod,
		Notes:            order.Notes,
		DeliveryTracking: order.DeliveryTracking,
		Items:            items,
		CreatedAt:        order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// Checkout обрабатывает POST /api/v1/orders.
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Не указан адрес доставки",
		})
		return
	}

	order, err := h.orders.Checkout(c.Request.Context(), service.CheckoutRequest{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		DeliveryMethod:  req.DeliveryMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		RespondError(c, err, "Checkout")
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// GetOrder обрабатывает GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	orderID := c.Param("id")

	order, err := h.orders.GetOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		RespondError(c, err, "GetOrder")
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// ListOrders обрабатывает GET /api/v1/orders.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := h.orders.ListOrders(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		RespondError(c, err, "ListOrders")
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
