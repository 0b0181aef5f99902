// Package cdek содержит HTTP-клиент API СДЭК v2.
// Клиент отвечает за OAuth-авторизацию, таймауты и circuit breaker;
// бизнес-логика доставки живёт в service.
package cdek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"example.com/pku-shop/internal/delivery/domain"
	"example.com/pku-shop/pkg/circuitbreaker"
	"example.com/pku-shop/pkg/config"
	"example.com/pku-shop/pkg/logger"
)

// Статусы вебхуков СДЭК (словарь API v2).
const (
	statusCreated          = "CREATED"
	statusAccepted         = "ACCEPTED"
	statusReceivedAtWH     = "RECEIVED_AT_SHIPMENT_WAREHOUSE"
	statusInTransit        = "IN_TRANSIT"
	statusSentToDest       = "SENT_TO_DESTINATION"
	statusReadyForPickup   = "READY_FOR_PICKUP"
	statusDelivered        = "DELIVERED"
	statusNotDelivered     = "NOT_DELIVERED"
	statusCanceled         = "CANCELED"
)

// MapStatus отображает статус СДЭК на локальный словарь статусов доставки.
func MapStatus(cdekStatus string) (domain.DeliveryStatus, error) {
	switch cdekStatus {
	case statusCreated:
		return domain.DeliveryStatusCreated, nil
	case statusAccepted, statusReceivedAtWH:
		return domain.DeliveryStatusAccepted, nil
	case statusInTransit, statusSentToDest, statusReadyForPickup:
		return domain.DeliveryStatusInTransit, nil
	case statusDelivered:
		return domain.DeliveryStatusDelivered, nil
	case statusNotDelivered, statusCanceled:
		return domain.DeliveryStatusCancelled, nil
	default:
		return "", domain.ErrUnknownCdekStatus
	}
}

// CostRequest — параметры расчёта стоимости доставки.
type CostRequest struct {
	ToCityCode int32 // Код города получателя
	WeightGr   int32 // Вес отправления в граммах
	TariffCode int32 // Код тарифа СДЭК (0 — тариф по умолчанию)
}

// CostResult — результат расчёта стоимости.
type CostResult struct {
	DeliverySum  float64 `json:"delivery_sum"`  // Стоимость доставки в рублях
	PeriodMin    int32   `json:"period_min"`    // Минимальный срок, дней
	PeriodMax    int32   `json:"period_max"`    // Максимальный срок, дней
	TariffCode   int32   `json:"tariff_code"`   // Код тарифа
}

// PickupPoint — пункт выдачи заказов.
type PickupPoint struct {
	Code     string `json:"code"`     // Код ПВЗ
	Name     string `json:"name"`     // Название
	Address  string `json:"address"`  // Адрес
	WorkTime string `json:"work_time"` // График работы
}

// CreateOrderRequest — параметры создания заказа на доставку.
type CreateOrderRequest struct {
	OrderNumber     string // Номер заказа магазина
	PickupPointCode string // Код ПВЗ получения
	RecipientName   string // Получатель
	WeightGr        int32  // Вес отправления в граммах
}

// CreateOrderResult — результат создания заказа в СДЭК.
type CreateOrderResult struct {
	CdekOrderID    string // UUID заказа в СДЭК
	TrackingNumber string // Трек-номер отправления
}

// Client — HTTP-клиент API СДЭК.
type Client struct {
	cfg     config.CDEKConfig
	client  *http.Client
	breaker *circuitbreaker.Breaker

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient создаёт клиент API СДЭК.
func NewClient(cfg config.CDEKConfig, breaker *circuitbreaker.Breaker) *Client {
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

// tokenResponse — ответ OAuth-эндпоинта СДЭК.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// token возвращает действующий OAuth-токен, обновляя его при истечении.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Запас в минуту до фактического истечения
	if c.accessToken != "" && time.Now().Add(time.Minute).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v2/oauth/token", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.breaker.Do(func() (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: авторизация вернула статус %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil || token.AccessToken == "" {
		return "", fmt.Errorf("%w: некорректный ответ авторизации", domain.ErrProviderUnavailable)
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// doJSON выполняет авторизованный запрос к API и декодирует JSON-ответ в out.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Do(func() (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 4xx от СДЭК — ошибка запроса, не недоступность
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log := logger.FromContext(ctx)
		log.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Bytes("body", payload).
			Msg("API СДЭК вернуло ошибку")
		return fmt.Errorf("%w: статус %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: некорректный ответ API", domain.ErrProviderUnavailable)
		}
	}
	return nil
}

// CalculateCost рассчитывает стоимость и сроки доставки по тарифу.
func (c *Client) CalculateCost(ctx context.Context, req CostRequest) (*CostResult, error) {
	tariff := req.TariffCode
	if tariff == 0 {
		// Тариф 136: посылка склад-склад
		tariff = 136
	}

	payload := map[string]any{
		"tariff_code":   tariff,
		"from_location": map[string]any{"code": c.cfg.FromCityCode},
		"to_location":   map[string]any{"code": req.ToCityCode},
		"packages": []map[string]any{
			{"weight": req.WeightGr},
		},
	}

	var result CostResult
	if err := c.doJSON(ctx, http.MethodPost, "/v2/calculator/tariff", payload, &result); err != nil {
		return nil, err
	}
	result.TariffCode = tariff
	return &result, nil
}

// FindPickupPoints возвращает пункты выдачи в городе.
func (c *Client) FindPickupPoints(ctx context.Context, cityCode int32) ([]PickupPoint, error) {
	var raw []struct {
		Code     string `json:"code"`
		Name     string `json:"name"`
		WorkTime string `json:"work_time"`
		Location struct {
			Address string `json:"address"`
		} `json:"location"`
	}

	path := "/v2/deliverypoints?type=PVZ&city_code=" + strconv.FormatInt(int64(cityCode), 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	points := make([]PickupPoint, len(raw))
	for i, p := range raw {
		points[i] = PickupPoint{
			Code:     p.Code,
			Name:     p.Name,
			Address:  p.Location.Address,
			WorkTime: p.WorkTime,
		}
	}
	return points, nil
}

// CreateOrder регистрирует заказ на доставку в СДЭК.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	payload := map[string]any{
		"number":      req.OrderNumber,
		"tariff_code": 136,
		"delivery_point": req.PickupPointCode,
		"recipient": map[string]any{
			"name": req.RecipientName,
		},
		"packages": []map[string]any{
			{
				"number": req.OrderNumber + "-1",
				"weight": req.WeightGr,
			},
		},
	}

	var response struct {
		Entity struct {
			UUID string `json:"uuid"`
		} `json:"entity"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/orders", payload, &response); err != nil {
		return nil, err
	}
	if response.Entity.UUID == "" {
		return nil, fmt.Errorf("%w: СДЭК не вернул идентификатор заказа", domain.ErrProviderUnavailable)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_number", req.OrderNumber).
		Str("cdek_order_id", response.Entity.UUID).
		Msg("Создан заказ на доставку в СДЭК")

	return &CreateOrderResult{
		CdekOrderID:    response.Entity.UUID,
		TrackingNumber: req.OrderNumber,
	}, nil
}
