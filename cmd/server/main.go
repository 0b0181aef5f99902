// Package main — точка входа HTTP сервера магазина.
// Сервер обслуживает REST API (корзина, заказы, платежи, доставка),
// вебхуки платёжных систем и СДЭК, а также запускает Outbox Worker
// для публикации событий заказа в Kafka.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	cartrepo "example.com/pku-shop/internal/cart/repository"
	cartservice "example.com/pku-shop/internal/cart/service"
	catalogrepo "example.com/pku-shop/internal/catalog/repository"
	"example.com/pku-shop/internal/delivery/cdek"
	deliveryrepo "example.com/pku-shop/internal/delivery/repository"
	deliveryservice "example.com/pku-shop/internal/delivery/service"
	"example.com/pku-shop/internal/handler"
	"example.com/pku-shop/internal/middleware"
	orderrepo "example.com/pku-shop/internal/order/repository"
	orderservice "example.com/pku-shop/internal/order/service"
	"example.com/pku-shop/internal/payment/provider"
	paymentrepo "example.com/pku-shop/internal/payment/repository"
	paymentservice "example.com/pku-shop/internal/payment/service"
	userrepo "example.com/pku-shop/internal/user/repository"
	userservice "example.com/pku-shop/internal/user/service"
	"example.com/pku-shop/pkg/circuitbreaker"
	"example.com/pku-shop/pkg/config"
	"example.com/pku-shop/pkg/db"
	"example.com/pku-shop/pkg/healthcheck"
	"example.com/pku-shop/pkg/jwt"
	"example.com/pku-shop/pkg/kafka"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/metrics"
	"example.com/pku-shop/pkg/outbox"
	"example.com/pku-shop/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	// Инициализируем логгер
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})

	logger.Info().
		Str("service", cfg.App.Name).
		Str("env", cfg.App.Env).
		Msg("Запуск сервера магазина")

	// === Observability: Tracing ===

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Хранилища ===

	gormDB, err := db.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка подключения к MySQL")
	}
	logger.Info().Str("database", cfg.MySQL.Database).Msg("Подключение к MySQL установлено")

	if err := migrate(gormDB); err != nil {
		logger.Fatal().Err(err).Msg("Ошибка миграции схемы БД")
	}

	redisClient := db.ConnectRedis(cfg.Redis)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Ошибка закрытия Redis")
		}
	}()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		logger.Fatal().Err(err).Msg("Не удалось подключиться к Redis")
	}
	cancelPing()
	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Подключено к Redis")

	// === Metrics сервер (+ health probes) ===

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		readiness := healthcheck.Composite(
			func(ctx context.Context) error { return healthcheck.CheckMySQL(ctx, gormDB) },
			func(ctx context.Context) error { return healthcheck.CheckRedis(ctx, redisClient) },
		)

		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), cfg.App.Name,
			metrics.WithReadinessCheck(readiness))
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// === Репозитории ===

	productRepo := catalogrepo.NewProductRepository(gormDB)
	cartRepository := cartrepo.NewCartRepository(gormDB)
	orderRepository := orderrepo.NewOrderRepository(gormDB)
	paymentRepository := paymentrepo.NewPaymentRepository(gormDB)
	deliveryRepository := deliveryrepo.NewDeliveryRepository(gormDB)
	userRepository := userrepo.NewUserRepository(gormDB)
	outboxRepository := outbox.NewOutboxRepository(gormDB)

	// === Outbox Worker ===

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			logger.Fatal().Err(err).Msg("Ошибка создания Kafka Producer")
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Kafka Producer")
			}
		}()

		worker := outbox.NewWorker(outboxRepository, producer, outbox.DefaultWorkerConfig())
		go worker.Run(workerCtx)
	} else {
		logger.Warn().Msg("Kafka отключена: события заказа копятся в outbox без отправки")
	}

	// === Платёжные системы и СДЭК ===

	robokassa := provider.NewRobokassa(cfg.Robokassa)
	yookassa := provider.NewYooKassa(cfg.YooKassa, circuitbreaker.New("yookassa"))
	cdekClient := cdek.NewClient(cfg.CDEK, circuitbreaker.New("cdek"))

	// === Сервисы ===

	jwtManager, err := jwt.NewManager(jwt.Config{
		PrivateKeyPath:  cfg.JWT.PrivateKeyPath,
		PublicKeyPath:   cfg.JWT.PublicKeyPath,
		Issuer:          cfg.JWT.Issuer,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка инициализации JWT")
	}

	userService := userservice.NewUserService(userRepository, jwtManager)
	cartService := cartservice.NewCartService(gormDB, cartRepository, productRepo)
	orderService := orderservice.NewOrderService(gormDB, orderRepository, cartRepository, productRepo, outboxRepository)
	paymentService := paymentservice.NewPaymentService(gormDB, redisClient,
		paymentRepository, orderRepository, outboxRepository, robokassa, yookassa)
	deliveryService := deliveryservice.NewDeliveryService(gormDB, cdekClient,
		deliveryRepository, orderRepository, outboxRepository)

	// === HTTP сервер ===

	authMW := middleware.NewAuthMiddleware(jwtManager)
	rateLimitMW := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
		Redis:  redisClient,
		Limit:  cfg.HTTP.RateLimit,
		Window: cfg.HTTP.RateLimitWindow,
	})

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    cfg.App.Name,
		Auth:           handler.NewAuthHandler(userService),
		Cart:           handler.NewCartHandler(cartService),
		Orders:         handler.NewOrderHandler(orderService),
		Payments:       handler.NewPaymentHandler(paymentService),
		Delivery:       handler.NewDeliveryHandler(deliveryService),
		Admin:          handler.NewAdminHandler(orderService),
		Webhooks:       handler.NewWebhookHandler(paymentService, deliveryService),
		AuthMiddleware: authMW,
		RateLimit:      rateLimitMW,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr()).Msg("HTTP сервер запущен")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// === Graceful Shutdown ===

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ошибка при остановке HTTP сервера")
	}

	// Останавливаем Outbox Worker после HTTP: записи, созданные
	// последними запросами, успевают уйти в Kafka при следующем опросе
	stopWorker()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	if sqlDB, err := gormDB.DB(); err == nil && sqlDB != nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error().Err(err).Msg("Ошибка закрытия MySQL")
		}
	}

	logger.Info().Msg("Сервер магазина остановлен")
}

// migrate приводит схему БД к актуальному состоянию.
func migrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(
		&catalogrepo.ProductModel{},
		&cartrepo.CartModel{},
		&cartrepo.CartItemModel{},
		&orderrepo.OrderModel{},
		&orderrepo.OrderItemModel{},
		&paymentrepo.PaymentTransactionModel{},
		&deliveryrepo.DeliveryRequestModel{},
		&userrepo.UserModel{},
		&userrepo.ProfileModel{},
		&outbox.OutboxModel{},
	)
}
