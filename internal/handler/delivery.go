package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/pku-shop/internal/delivery/cdek"
	"example.com/pku-shop/internal/delivery/domain"
	"example.com/pku-shop/internal/delivery/service"
	"example.com/pku-shop/internal/middleware"
)

// DeliveryHandler — HTTP обработчики доставки.
type DeliveryHandler struct {
	deliveries service.DeliveryService
}

// NewDeliveryHandler создаёт обработчик доставки.
func NewDeliveryHandler(deliveries service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

// CalculateCost обрабатывает GET /api/v1/delivery/cost?city_code=N&weight=N.
func (h *DeliveryHandler) CalculateCost(c *gin.Context) {
	cityCode, err := strconv.ParseInt(c.Query("city_code"), 10, 32)
	if err != nil || cityCode <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Не указан код города получателя",
		})
		return
	}

	weight, err := strconv.ParseInt(c.DefaultQuery("weight", "500"), 10, 32)
	if err != nil || weight <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректный вес отправления",
		})
		return
	}

	result, err := h.deliveries.CalculateCost(c.Request.Context(), cdek.CostRequest{
		ToCityCode: int32(cityCode),
		WeightGr:   int32(weight),
	})
	if err != nil {
		RespondError(c, err, "CalculateCost")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"delivery_sum": result.DeliverySum,
		"period_min":   result.PeriodMin,
		"period_max":   result.PeriodMax,
		"tariff_code":  result.TariffCode,
	})
}

// FindPickupPoints обрабатывает GET /api/v1/delivery/pickup-points?city_code=N.
func (h *DeliveryHandler) FindPickupPoints(c *gin.Context) {
	cityCode, err := strconv.ParseInt(c.Query("city_code"), 10, 32)
	if err != nil || cityCode <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Не указан код города",
		})
		return
	}

	points, err := h.deliveries.FindPickupPoints(c.Request.Context(), int32(cityCode))
	if err != nil {
		RespondError(c, err, "FindPickupPoints")
		return
	}

	c.JSON(http.StatusOK, gin.H{"pickup_points": points})
}

// createDeliveryRequest — тело запроса создания заявки на доставку.
type createDeliveryRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	PickupPoint string `json:"pickup_point" binding:"required"`
}

// CreateDeliveryOrder обрабатывает POST /api/v1/delivery/orders (админка).
func (h *DeliveryHandler) CreateDeliveryOrder(c *gin.Context) {
	var req createDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Не указан заказ или пункт выдачи",
		})
		return
	}

	request, err := h.deliveries.CreateDeliveryOrder(c.Request.Context(), req.OrderID, req.PickupPoint)
	if err != nil {
		RespondError(c, err, "CreateDeliveryOrder")
		return
	}

	c.JSON(http.StatusCreated, toDeliveryResponse(request))
}

// GetDelivery обрабатывает GET /api/v1/delivery/orders/:orderID.
func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	orderID := c.Param("orderID")

	request, err := h.deliveries.GetDeliveryByOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		RespondError(c, err, "GetDelivery")
		return
	}

	c.JSON(http.StatusOK, toDeliveryResponse(request))
}

// toDeliveryResponse собирает ответ API из заявки на доставку.
func toDeliveryResponse(request *domain.DeliveryRequest) gin.H {
	return gin.H{
		"id":              request.ID,
		"order_id":        request.OrderID,
		"cdek_order_id":   request.CdekOrderID,
		"tracking_number": request.TrackingNumber,
		"status":          string(request.Status),
		"pickup_point":    request.PickupPoint,
	}
}
