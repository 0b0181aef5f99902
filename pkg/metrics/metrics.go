// Package metrics предоставляет Prometheus метрики приложения.
// Содержит HTTP метрики (requests, latency), доменные счётчики
// (заказы, платёжные callback'и) и сервер для /metrics endpoint.
//
// Использование:
//
//	go metrics.NewServer(":9090", "pku-shop").Start()
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/pku-shop/pkg/logger"
)

var (
	// RequestsTotal — счётчик всех HTTP запросов.
	// PromQL пример: rate(requests_total{service="pku-shop"}[5m]) — RPS за 5 минут.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Общее количество HTTP запросов по сервису, маршруту и статусу",
		},
		[]string{"service", "route", "status"},
	)

	// RequestDuration — гистограмма latency запросов.
	// PromQL пример: histogram_quantile(0.95, rate(request_duration_seconds_bucket[5m])).
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Время выполнения HTTP запроса в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "route"},
	)

	// OrdersCreatedTotal — счётчик созданных заказов.
	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Количество заказов, созданных через checkout",
		},
	)

	// PaymentCallbacksTotal — счётчик платёжных callback'ов по провайдеру и результату.
	// result: succeeded / canceled / rejected.
	PaymentCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Количество платёжных callback'ов по провайдеру и результату",
		},
		[]string{"provider", "result"},
	)

	// WebhookRejectedTotal — счётчик отклонённых webhook'ов по причине.
	// reason: bad_signature / amount_mismatch / not_found / malformed.
	WebhookRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_rejected_total",
			Help: "Количество отклонённых webhook уведомлений по причине",
		},
		[]string{"provider", "reason"},
	)
)

// GinMetricsMiddleware возвращает middleware для сбора HTTP метрик.
// route берётся из шаблона маршрута (c.FullPath), а не из сырого URL,
// чтобы не раздувать кардинальность label'ов.
func GinMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		RequestsTotal.WithLabelValues(service, route, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(service, route).Observe(time.Since(start).Seconds())
	}
}

// ReadinessChecker — функция проверки готовности сервиса.
// Возвращает nil если сервис готов принимать трафик, иначе — ошибку.
type ReadinessChecker func(ctx context.Context) error

// Server — HTTP сервер для экспорта метрик Prometheus.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option — функциональная опция для настройки Server.
type Option func(*Server)

// WithReadinessCheck добавляет проверку готовности для /readyz endpoint.
// Если checker возвращает ошибку — /readyz вернёт 503 Service Unavailable.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт новый metrics server.
// addr — адрес для прослушивания (например ":9090"),
// service — имя сервиса для логирования.
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{
		service: service,
	}

	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()

	// /metrics — endpoint для Prometheus.
	mux.Handle("/metrics", promhttp.Handler())

	// /healthz — liveness probe: процесс жив, раз сервер отвечает.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})

	// /readyz — readiness probe: все зависимости доступны.
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if s.readinessCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			if err := s.readinessCheck(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"not_ready"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

// Start запускает metrics server. Блокирует выполнение.
func (s *Server) Start() error {
	logger.Info().
		Str("service", s.service).
		Str("addr", s.httpServer.Addr).
		Msg("Запуск metrics сервера")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
