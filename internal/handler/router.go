// Package handler содержит HTTP обработчики и маршрутизацию API.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/pku-shop/internal/middleware"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/metrics"
)

// RouterConfig — зависимости маршрутизатора.
type RouterConfig struct {
	ServiceName string

	Auth     *AuthHandler
	Cart     *CartHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
	Delivery *DeliveryHandler
	Admin    *AdminHandler
	Webhooks *WebhookHandler

	AuthMiddleware *middleware.AuthMiddleware
	RateLimit      *middleware.RateLimitMiddleware
}

// NewRouter собирает Gin router со всеми маршрутами и middleware.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(metrics.GinMetricsMiddleware(cfg.ServiceName))
	router.Use(traceIDMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit != nil {
		router.Use(cfg.RateLimit.Handle())
	}

	api := router.Group("/api/v1")

	// Публичные маршруты: регистрация, вход, вебхуки провайдеров
	auth := api.Group("/auth")
	{
		auth.POST("/register", cfg.Auth.Register)
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/refresh", cfg.Auth.Refresh)
	}

	webhooks := api.Group("/webhooks")
	{
		// Робокасса шлёт ResultURL как POST или GET в зависимости от настроек
		webhooks.POST("/robokassa", cfg.Webhooks.Robokassa)
		webhooks.GET("/robokassa", cfg.Webhooks.Robokassa)
		webhooks.POST("/yookassa", cfg.Webhooks.YooKassa)
		webhooks.POST("/cdek", cfg.Webhooks.CDEK)
	}

	// Маршруты, требующие аутентификации
	authorized := api.Group("")
	authorized.Use(cfg.AuthMiddleware.Handle())
	{
		cart := authorized.Group("/cart")
		{
			cart.GET("", cfg.Cart.GetCart)
			cart.POST("/items", cfg.Cart.AddItem)
			cart.PUT("/items", cfg.Cart.UpdateItem)
			cart.DELETE("/items/:productID", cfg.Cart.RemoveItem)
		}

		orders := authorized.Group("/orders")
		{
			orders.POST("", cfg.Orders.Checkout)
			orders.GET("", cfg.Orders.ListOrders)
			orders.GET("/:id", cfg.Orders.GetOrder)
		}

		payments := authorized.Group("/payments")
		{
			payments.POST("", cfg.Payments.CreatePayment)
			payments.GET("/:paymentID", cfg.Payments.GetPayment)
		}

		delivery := authorized.Group("/delivery")
		{
			delivery.GET("/cost", cfg.Delivery.CalculateCost)
			delivery.GET("/pickup-points", cfg.Delivery.FindPickupPoints)
			delivery.GET("/orders/:orderID", cfg.Delivery.GetDelivery)
			// Создание заявки на доставку доступно только администраторам
			delivery.POST("/orders", cfg.AuthMiddleware.RequireAdmin(), cfg.Delivery.CreateDeliveryOrder)
		}

		// Админка
		admin := authorized.Group("/admin")
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
		{
			admin.GET("/orders", cfg.Admin.ListOrders)
			admin.GET("/orders/statistics", cfg.Admin.GetStatistics)
			admin.GET("/orders/:id", cfg.Admin.GetOrder)
			admin.PUT("/orders/:id/status", cfg.Admin.UpdateStatus)
		}
	}

	return router
}

// traceIDMiddleware прокидывает trace_id запроса в контекст для логирования.
// Берёт X-Request-ID от клиента или генерирует новый.
func traceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Request-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", traceID)

		c.Next()
	}
}
