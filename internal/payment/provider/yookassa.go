package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/pkg/circuitbreaker"
	"example.com/pku-shop/pkg/config"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/money"
)

// SignatureHeader — заголовок HMAC-подписи уведомлений ЮKassa.
const SignatureHeader = "X-Webhook-Signature"

// События уведомлений ЮKassa.
const (
	yooEventSucceeded         = "payment.succeeded"
	yooEventCanceled          = "payment.canceled"
	yooEventWaitingForCapture = "payment.waiting_for_capture"
)

// YooKassa — адаптер ЮKassa.
// Платёж создаётся server-to-server вызовом API (Basic-авторизация
// ShopID:SecretKey, ключ идемпотентности на каждый запрос); вызовы
// защищены circuit breaker. Уведомления подписываются HMAC-SHA256
// отдельным секретом вебхуков.
type YooKassa struct {
	cfg     config.YooKassaConfig
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

// NewYooKassa создаёт адаптер ЮKassa.
func NewYooKassa(cfg config.YooKassaConfig, breaker *circuitbreaker.Breaker) *YooKassa {
	return &YooKassa{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

// Name возвращает имя платёжной системы.
func (y *YooKassa) Name() domain.PaymentSystem {
	return domain.PaymentSystemYooKassa
}

// createPaymentRequest — тело запроса создания платежа в API ЮKassa.
type createPaymentRequest struct {
	Amount       yooAmount       `json:"amount"`
	Capture      bool            `json:"capture"`
	Confirmation yooConfirmation `json:"confirmation"`
	Description  string          `json:"description"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}

type yooAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yooConfirmation struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url,omitempty"`
	URL       string `json:"confirmation_url,omitempty"`
}

// createPaymentResponse — ответ API ЮKassa на создание платежа.
type createPaymentResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Confirmation yooConfirmation `json:"confirmation"`
}

// CreatePayment регистрирует платёж в ЮKassa и возвращает URL подтверждения.
func (y *YooKassa) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	log := logger.FromContext(ctx)

	body, err := json.Marshal(createPaymentRequest{
		Amount: yooAmount{
			Value:    req.Amount.Decimal(),
			Currency: req.Amount.Currency,
		},
		Capture: true,
		Confirmation: yooConfirmation{
			Type: "redirect",
		},
		Description: req.Description,
		Metadata: map[string]any{
			"order_id": req.OrderID,
		},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, y.cfg.PaymentURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(y.cfg.ShopID, y.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	// Ключ идемпотентности: повтор запроса не создаст второй платёж
	httpReq.Header.Set("Idempotence-Key", uuid.New().String())

	resp, err := y.breaker.Do(func() (*http.Response, error) {
		return y.client.Do(httpReq)
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("Ошибка вызова API ЮKassa")
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Error().Int("status", resp.StatusCode).Str("order_id", req.OrderID).Msg("ЮKassa отклонила создание платежа")
		return nil, fmt.Errorf("%w: статус %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var created createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: некорректный ответ API", domain.ErrProviderUnavailable)
	}
	if created.ID == "" || created.Confirmation.URL == "" {
		return nil, fmt.Errorf("%w: неполный ответ API", domain.ErrProviderUnavailable)
	}

	log.Info().
		Str("order_id", req.OrderID).
		Str("payment_id", created.ID).
		Msg("Создан платёж ЮKassa")

	return &CreatePaymentResult{
		PaymentID:  created.ID,
		PaymentURL: created.Confirmation.URL,
	}, nil
}

// webhookPayload — тело уведомления ЮKassa.
type webhookPayload struct {
	Event  string `json:"event"`
	Object struct {
		ID     string    `json:"id"`
		Status string    `json:"status"`
		Amount yooAmount `json:"amount"`
	} `json:"object"`
}

// ParseCallback проверяет HMAC-подпись и разбирает уведомление ЮKassa.
func (y *YooKassa) ParseCallback(req *http.Request) (*Callback, error) {
	body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
	if err != nil {
		return nil, domain.ErrMalformedCallback
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.ErrMalformedCallback
	}
	if payload.Object.ID == "" || payload.Object.Amount.Value == "" {
		return nil, domain.ErrMalformedCallback
	}

	signature := req.Header.Get(SignatureHeader)
	if signature == "" {
		return nil, domain.ErrSignatureMismatch
	}

	// Подпись считается по каноничной строке полей уведомления,
	// порядок фиксирован: event.id.value.currency
	expected := y.CallbackSignature(payload.Event, payload.Object.ID,
		payload.Object.Amount.Value, payload.Object.Amount.Currency)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return nil, domain.ErrSignatureMismatch
	}

	minor, err := money.ParseDecimal(payload.Object.Amount.Value)
	if err != nil {
		return nil, domain.ErrMalformedCallback
	}
	amount := money.New(minor)
	if payload.Object.Amount.Currency != "" {
		amount.Currency = payload.Object.Amount.Currency
	}

	var event CallbackEvent
	switch payload.Event {
	case yooEventSucceeded:
		event = EventSucceeded
	case yooEventCanceled:
		event = EventCanceled
	case yooEventWaitingForCapture:
		event = EventWaitingForCapture
	default:
		return nil, domain.ErrMalformedCallback
	}

	return &Callback{
		PaymentID: payload.Object.ID,
		Amount:    amount,
		Event:     event,
	}, nil
}

// CallbackSignature считает HMAC-SHA256 подпись уведомления.
// Экспортирован для формирования подписи в тестах.
func (y *YooKassa) CallbackSignature(event, paymentID, value, currency string) string {
	canonical := strings.Join([]string{event, paymentID, value, currency}, ".")
	mac := hmac.New(sha256.New, []byte(y.cfg.WebhookSecret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
