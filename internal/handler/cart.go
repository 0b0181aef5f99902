package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/pku-shop/internal/cart/domain"
	"example.com/pku-shop/internal/cart/service"
	"example.com/pku-shop/internal/middleware"
)

// CartHandler — HTTP обработчики корзины.
type CartHandler struct {
	carts service.CartService
}

// NewCartHandler создаёт обработчик корзины.
func NewCartHandler(carts service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// cartItemRequest — тело запроса добавления/изменения позиции.
type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int32  `json:"quantity"`
}

// cartItemResponse — позиция корзины в ответе API.
type cartItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int32  `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

// cartResponse — корзина в ответе API.
type cartResponse struct {
	Items       []cartItemResponse `json:"items"`
	TotalItems  int32              `json:"total_items"`
	TotalAmount string             `json:"total_amount"`
	Currency    string             `json:"currency"`
}

// toCartResponse собирает ответ API из доменной корзины.
func toCartResponse(cart *domain.Cart) cartResponse {
	items := make([]cartItemResponse, len(cart.Items))
	for i := range cart.Items {
		item := &cart.Items[i]
		items[i] = cartItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.ProductPrice.Decimal(),
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal().Decimal(),
		}
	}

	total := cart.TotalAmount()
	return cartResponse{
		Items:       items,
		TotalItems:  cart.TotalItems(),
		TotalAmount: total.Decimal(),
		Currency:    total.Currency,
	}
}

// GetCart обрабатывает GET /api/v1/cart.
func (h *CartHandler) GetCart(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	cart, err := h.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err, "GetCart")
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

// AddItem обрабатывает POST /api/v1/cart/items.
func (h *CartHandler) AddItem(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректное тело запроса",
		})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		RespondError(c, err, "AddItem")
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

// UpdateItem обрабатывает PUT /api/v1/cart/items.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректное тело запроса",
		})
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		RespondError(c, err, "UpdateItem")
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

// RemoveItem обрабатывает DELETE /api/v1/cart/items/:productID.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	productID := c.Param("productID")

	cart, err := h.carts.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		RespondError(c, err, "RemoveItem")
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}
