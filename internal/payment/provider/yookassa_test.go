package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/pkg/circuitbreaker"
	"example.com/pku-shop/pkg/config"
	"example.com/pku-shop/pkg/money"
)

// newTestYooKassa создаёт адаптер ЮKassa с тестовой конфигурацией.
func newTestYooKassa(paymentURL string) *YooKassa {
	return NewYooKassa(config.YooKassaConfig{
		ShopID:        "shop-1",
		SecretKey:     "secret-key",
		WebhookSecret: "webhook-secret",
		PaymentURL:    paymentURL,
		Timeout:       5 * time.Second,
	}, circuitbreaker.New("yookassa-test"))
}

// webhookBody собирает JSON уведомления ЮKassa.
func webhookBody(t *testing.T, event, paymentID, value, currency string) []byte {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"event": event,
		"object": map[string]any{
			"id":     paymentID,
			"status": strings.TrimPrefix(event, "payment."),
			"amount": map[string]string{"value": value, "currency": currency},
		},
	})
	require.NoError(t, err)
	return body
}

// webhookRequest собирает HTTP запрос уведомления с подписью.
func webhookRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/webhooks/yookassa", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	return req
}

// =====================================
// Тесты CreatePayment
// =====================================

// TestYooKassa_CreatePayment тестирует создание платежа через API.
func TestYooKassa_CreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "secret-key", pass)
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))

		var req createPaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "300.00", req.Amount.Value)
		assert.Equal(t, "RUB", req.Amount.Currency)
		assert.True(t, req.Capture)
		assert.Equal(t, "redirect", req.Confirmation.Type)
		assert.Equal(t, "order-uuid-1", req.Metadata["order_id"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "yoo-payment-1",
			"status": "pending",
			"confirmation": map[string]string{
				"type":             "redirect",
				"confirmation_url": "https://yookassa.ru/checkout/payments/yoo-payment-1",
			},
		})
	}))
	defer server.Close()

	yookassa := newTestYooKassa(server.URL)

	result, err := yookassa.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:     "order-uuid-1",
		OrderNumber: "ORD-1A2B3C4D",
		Amount:      money.New(30000),
		Description: "Оплата заказа ORD-1A2B3C4D",
	})

	require.NoError(t, err)
	assert.Equal(t, "yoo-payment-1", result.PaymentID)
	assert.Equal(t, "https://yookassa.ru/checkout/payments/yoo-payment-1", result.PaymentURL)
}

// TestYooKassa_CreatePayment_APIErrors тестирует ошибки API.
func TestYooKassa_CreatePayment_APIErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "отказ API",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "ошибка сервера",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "ответ без confirmation_url",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"id":"yoo-payment-1","status":"pending"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			yookassa := newTestYooKassa(server.URL)

			_, err := yookassa.CreatePayment(context.Background(), CreatePaymentRequest{
				OrderID: "order-uuid-1",
				Amount:  money.New(30000),
			})

			assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
		})
	}
}

// =====================================
// Тесты ParseCallback
// =====================================

// TestYooKassa_ParseCallback тестирует разбор уведомлений с валидной подписью.
func TestYooKassa_ParseCallback(t *testing.T) {
	yookassa := newTestYooKassa("http://unused")

	tests := []struct {
		name          string
		event         string
		expectedEvent CallbackEvent
	}{
		{name: "успешная оплата", event: "payment.succeeded", expectedEvent: EventSucceeded},
		{name: "отмена платежа", event: "payment.canceled", expectedEvent: EventCanceled},
		{name: "ожидание подтверждения", event: "payment.waiting_for_capture", expectedEvent: EventWaitingForCapture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := webhookBody(t, tt.event, "yoo-payment-1", "300.00", "RUB")
			signature := yookassa.CallbackSignature(tt.event, "yoo-payment-1", "300.00", "RUB")

			cb, err := yookassa.ParseCallback(webhookRequest(body, signature))

			require.NoError(t, err)
			assert.Equal(t, "yoo-payment-1", cb.PaymentID)
			assert.Equal(t, int64(30000), cb.Amount.Amount)
			assert.Equal(t, "RUB", cb.Amount.Currency)
			assert.Equal(t, tt.expectedEvent, cb.Event)
		})
	}
}

// TestYooKassa_ParseCallback_Rejected тестирует отклонение уведомлений.
func TestYooKassa_ParseCallback_Rejected(t *testing.T) {
	yookassa := newTestYooKassa("http://unused")
	body := webhookBody(t, "payment.succeeded", "yoo-payment-1", "300.00", "RUB")
	valid := yookassa.CallbackSignature("payment.succeeded", "yoo-payment-1", "300.00", "RUB")

	t.Run("нет подписи", func(t *testing.T) {
		_, err := yookassa.ParseCallback(webhookRequest(body, ""))
		assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
	})

	t.Run("произвольная подпись", func(t *testing.T) {
		_, err := yookassa.ParseCallback(webhookRequest(body, "deadbeef"))
		assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
	})

	t.Run("подпись от другой суммы", func(t *testing.T) {
		tampered := webhookBody(t, "payment.succeeded", "yoo-payment-1", "999.00", "RUB")
		_, err := yookassa.ParseCallback(webhookRequest(tampered, valid))
		assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
	})

	t.Run("битый JSON", func(t *testing.T) {
		req := webhookRequest([]byte(`{"event":`), valid)
		_, err := yookassa.ParseCallback(req)
		assert.ErrorIs(t, err, domain.ErrMalformedCallback)
	})

	t.Run("нет payment id", func(t *testing.T) {
		noID := webhookBody(t, "payment.succeeded", "", "300.00", "RUB")
		_, err := yookassa.ParseCallback(webhookRequest(noID, valid))
		assert.ErrorIs(t, err, domain.ErrMalformedCallback)
	})

	t.Run("неизвестное событие", func(t *testing.T) {
		unknown := webhookBody(t, "refund.succeeded", "yoo-payment-1", "300.00", "RUB")
		signature := yookassa.CallbackSignature("refund.succeeded", "yoo-payment-1", "300.00", "RUB")
		_, err := yookassa.ParseCallback(webhookRequest(unknown, signature))
		assert.ErrorIs(t, err, domain.ErrMalformedCallback)
	})
}

// TestYooKassa_ParseCallback_UpperCaseSignature тестирует нормализацию
// регистра hex подписи перед сравнением.
func TestYooKassa_ParseCallback_UpperCaseSignature(t *testing.T) {
	yookassa := newTestYooKassa("http://unused")
	body := webhookBody(t, "payment.succeeded", "yoo-payment-1", "300.00", "RUB")
	signature := strings.ToUpper(yookassa.CallbackSignature("payment.succeeded", "yoo-payment-1", "300.00", "RUB"))

	_, err := yookassa.ParseCallback(webhookRequest(body, signature))
	assert.NoError(t, err)
}
