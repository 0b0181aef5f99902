// Package cdek содержит unit тесты клиента API СДЭК.
package cdek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pku-shop/internal/delivery/domain"
	"example.com/pku-shop/pkg/circuitbreaker"
	"example.com/pku-shop/pkg/config"
)

// newTestClient создаёт клиент, указывающий на тестовый сервер.
func newTestClient(baseURL string) *Client {
	return NewClient(config.CDEKConfig{
		BaseURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		FromCityCode: 44,
		Timeout:      5 * time.Second,
	}, circuitbreaker.New("cdek-test"))
}

// serveToken отвечает на запрос OAuth-токена.
func serveToken(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()

	require.NoError(t, r.ParseForm())
	assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
	assert.Equal(t, "client-id", r.Form.Get("client_id"))
	assert.Equal(t, "client-secret", r.Form.Get("client_secret"))

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"access_token":"test-token","expires_in":3600}`))
}

// =====================================
// Тесты MapStatus
// =====================================

// TestMapStatus тестирует отображение статусов СДЭК на локальный словарь.
func TestMapStatus(t *testing.T) {
	tests := []struct {
		cdekStatus string
		expected   domain.DeliveryStatus
	}{
		{"CREATED", domain.DeliveryStatusCreated},
		{"ACCEPTED", domain.DeliveryStatusAccepted},
		{"RECEIVED_AT_SHIPMENT_WAREHOUSE", domain.DeliveryStatusAccepted},
		{"IN_TRANSIT", domain.DeliveryStatusInTransit},
		{"SENT_TO_DESTINATION", domain.DeliveryStatusInTransit},
		{"READY_FOR_PICKUP", domain.DeliveryStatusInTransit},
		{"DELIVERED", domain.DeliveryStatusDelivered},
		{"NOT_DELIVERED", domain.DeliveryStatusCancelled},
		{"CANCELED", domain.DeliveryStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.cdekStatus, func(t *testing.T) {
			status, err := MapStatus(tt.cdekStatus)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}

	t.Run("неизвестный статус", func(t *testing.T) {
		_, err := MapStatus("TELEPORTED")
		assert.ErrorIs(t, err, domain.ErrUnknownCdekStatus)
	})
}

// =====================================
// Тесты OAuth-авторизации
// =====================================

// TestClient_TokenReuse тестирует кэширование OAuth-токена:
// второй вызов API не должен запрашивать токен повторно.
func TestClient_TokenReuse(t *testing.T) {
	var tokenRequests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		serveToken(t, w, r)
	})
	mux.HandleFunc("/v2/calculator/tariff", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"delivery_sum":350.5,"period_min":2,"period_max":4}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CalculateCost(context.Background(), CostRequest{ToCityCode: 270, WeightGr: 500})
	require.NoError(t, err)
	_, err = client.CalculateCost(context.Background(), CostRequest{ToCityCode: 270, WeightGr: 500})
	require.NoError(t, err)

	assert.Equal(t, int32(1), tokenRequests.Load(), "токен должен переиспользоваться")
}

// TestClient_TokenRejected тестирует отказ авторизации.
func TestClient_TokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CalculateCost(context.Background(), CostRequest{ToCityCode: 270, WeightGr: 500})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

// =====================================
// Тесты CalculateCost
// =====================================

// TestClient_CalculateCost тестирует расчёт стоимости доставки.
func TestClient_CalculateCost(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		serveToken(t, w, r)
	})
	mux.HandleFunc("/v2/calculator/tariff", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		// Тариф по умолчанию — 136, город отправления из конфигурации
		assert.Equal(t, float64(136), payload["tariff_code"])
		assert.Equal(t, float64(44), payload["from_location"].(map[string]any)["code"])
		assert.Equal(t, float64(270), payload["to_location"].(map[string]any)["code"])

		_, _ = w.Write([]byte(`{"delivery_sum":350.5,"period_min":2,"period_max":4}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.CalculateCost(context.Background(), CostRequest{ToCityCode: 270, WeightGr: 500})

	require.NoError(t, err)
	assert.Equal(t, 350.5, result.DeliverySum)
	assert.Equal(t, int32(2), result.PeriodMin)
	assert.Equal(t, int32(4), result.PeriodMax)
	assert.Equal(t, int32(136), result.TariffCode)
}

// =====================================
// Тесты FindPickupPoints
// =====================================

// TestClient_FindPickupPoints тестирует поиск пунктов выдачи.
func TestClient_FindPickupPoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		serveToken(t, w, r)
	})
	mux.HandleFunc("/v2/deliverypoints", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PVZ", r.URL.Query().Get("type"))
		assert.Equal(t, "270", r.URL.Query().Get("city_code"))

		_, _ = w.Write([]byte(`[
			{"code":"NSK1","name":"На Ленина","work_time":"Пн-Вс 10-20","location":{"address":"ул. Ленина, 1"}},
			{"code":"NSK2","name":"На Кирова","work_time":"Пн-Пт 9-18","location":{"address":"ул. Кирова, 2"}}
		]`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	points, err := client.FindPickupPoints(context.Background(), 270)

	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "NSK1", points[0].Code)
	assert.Equal(t, "ул. Ленина, 1", points[0].Address)
	assert.Equal(t, "Пн-Вс 10-20", points[0].WorkTime)
}

// =====================================
// Тесты CreateOrder
// =====================================

// TestClient_CreateOrder тестирует регистрацию заказа на доставку.
func TestClient_CreateOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		serveToken(t, w, r)
	})
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		assert.Equal(t, "ORD-1A2B3C4D", payload["number"])
		assert.Equal(t, "NSK1", payload["delivery_point"])

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"entity":{"uuid":"cdek-uuid-1"}}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		OrderNumber:     "ORD-1A2B3C4D",
		PickupPointCode: "NSK1",
		RecipientName:   "Иванов Иван",
		WeightGr:        500,
	})

	require.NoError(t, err)
	assert.Equal(t, "cdek-uuid-1", result.CdekOrderID)
	assert.Equal(t, "ORD-1A2B3C4D", result.TrackingNumber)
}

// TestClient_CreateOrder_NoUUID тестирует ответ без идентификатора заказа.
func TestClient_CreateOrder_NoUUID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		serveToken(t, w, r)
	})
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entity":{}}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{OrderNumber: "ORD-1"})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

// TestClient_APIError тестирует ошибочный статус API.
func TestClient_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		serveToken(t, w, r)
	})
	mux.HandleFunc("/v2/calculator/tariff", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_city"}]}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CalculateCost(context.Background(), CostRequest{ToCityCode: -1, WeightGr: 500})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
