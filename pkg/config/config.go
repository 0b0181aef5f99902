// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию приложения.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	MySQL     MySQLConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Robokassa RobokassaConfig
	YooKassa  YooKassaConfig
	CDEK      CDEKConfig
	Jaeger    JaegerConfig
	Metrics   MetricsConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"pku-shop"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	// BaseURL — публичный адрес магазина. Используется для построения
	// callback URL'ов платёжных систем (ResultURL).
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

// HTTPConfig содержит настройки HTTP сервера.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RateLimit       int           `env:"HTTP_RATE_LIMIT" envDefault:"100"`
	RateLimitWindow time.Duration `env:"HTTP_RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Addr возвращает адрес для HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"pku_shop"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки подключения к Kafka.
// События жизненного цикла заказа публикуются через outbox worker.
type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

// JWTConfig содержит настройки JWT токенов (RS256).
type JWTConfig struct {
	PrivateKeyPath  string        `env:"JWT_PRIVATE_KEY_PATH"`                 // Путь к приватному ключу (PEM)
	PublicKeyPath   string        `env:"JWT_PUBLIC_KEY_PATH,required"`         // Путь к публичному ключу (PEM)
	Issuer          string        `env:"JWT_ISSUER" envDefault:"pku-shop"`     // Издатель токена
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TOKEN_TTL" envDefault:"168h"`
}

// RobokassaConfig содержит настройки платёжной системы Robokassa.
// Password1 используется для подписи запроса на оплату,
// Password2 — для проверки подписи ResultURL уведомлений.
type RobokassaConfig struct {
	MerchantLogin string        `env:"ROBOKASSA_MERCHANT_LOGIN"`
	Password1     string        `env:"ROBOKASSA_PASSWORD1"`
	Password2     string        `env:"ROBOKASSA_PASSWORD2"`
	PaymentURL    string        `env:"ROBOKASSA_PAYMENT_URL" envDefault:"https://auth.robokassa.ru/Merchant/Index.aspx"`
	TestMode      bool          `env:"ROBOKASSA_TEST_MODE" envDefault:"true"`
	Timeout       time.Duration `env:"ROBOKASSA_TIMEOUT" envDefault:"10s"`
}

// YooKassaConfig содержит настройки платёжной системы ЮKassa.
// SecretKey подписывает запросы на оплату, WebhookSecret — входящие уведомления.
type YooKassaConfig struct {
	ShopID        string        `env:"YOOKASSA_SHOP_ID"`
	SecretKey     string        `env:"YOOKASSA_SECRET_KEY"`
	WebhookSecret string        `env:"YOOKASSA_WEBHOOK_SECRET"`
	PaymentURL    string        `env:"YOOKASSA_PAYMENT_URL" envDefault:"https://api.yookassa.ru/v3/payments"`
	Timeout       time.Duration `env:"YOOKASSA_TIMEOUT" envDefault:"10s"`
}

// CDEKConfig содержит настройки службы доставки СДЭК.
type CDEKConfig struct {
	BaseURL      string        `env:"CDEK_BASE_URL" envDefault:"https://api.cdek.ru"`
	ClientID     string        `env:"CDEK_CLIENT_ID"`
	ClientSecret string        `env:"CDEK_CLIENT_SECRET"`
	// FromCityCode — код города отправления в справочнике СДЭК.
	FromCityCode int           `env:"CDEK_FROM_CITY_CODE" envDefault:"44"`
	Timeout      time.Duration `env:"CDEK_TIMEOUT" envDefault:"10s"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"false"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"` // OTLP gRPC порт
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"` // Включить metrics endpoint
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`    // Порт для /metrics
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// LoadFromFile загружает конфигурацию из указанного .env файла.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
