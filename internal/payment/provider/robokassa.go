package provider

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"example.com/pku-shop/internal/payment/domain"
	"example.com/pku-shop/pkg/config"
	"example.com/pku-shop/pkg/logger"
	"example.com/pku-shop/pkg/money"
)

// shpOrderID — пользовательский параметр Робокассы с ID заказа.
// Параметры shp_* возвращаются в уведомлении без изменений и
// участвуют в подписи в лексикографическом порядке.
const shpOrderID = "shp_order_id"

// Robokassa — адаптер Робокассы.
// Платёж создаётся без обращения к API: покупатель редиректится на
// платёжную форму с MD5-подписью параметров (Password1). Уведомления
// ResultURL проверяются контрольной суммой с Password2.
type Robokassa struct {
	cfg config.RobokassaConfig
}

// NewRobokassa создаёт адаптер Робокассы.
func NewRobokassa(cfg config.RobokassaConfig) *Robokassa {
	return &Robokassa{cfg: cfg}
}

// Name возвращает имя платёжной системы.
func (r *Robokassa) Name() domain.PaymentSystem {
	return domain.PaymentSystemRobokassa
}

// CreatePayment формирует URL платёжной формы Робокассы.
// InvId генерируется случайным числом; уникальность гарантирует
// уникальный индекс payment_id в таблице транзакций.
func (r *Robokassa) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	log := logger.FromContext(ctx)

	invID := generateInvID()
	outSum := req.Amount.Decimal()

	shp := map[string]string{shpOrderID: req.OrderID}

	// Подпись платежа: MerchantLogin:OutSum:InvId:Password1[:shp_*]
	signature := r.paymentSignature(outSum, invID, shp)

	values := url.Values{}
	values.Set("MerchantLogin", r.cfg.MerchantLogin)
	values.Set("OutSum", outSum)
	values.Set("InvId", invID)
	values.Set("Description", req.Description)
	values.Set("SignatureValue", signature)
	for k, v := range shp {
		values.Set(k, v)
	}
	if r.cfg.TestMode {
		values.Set("IsTest", "1")
	}

	log.Info().
		Str("order_id", req.OrderID).
		Str("inv_id", invID).
		Str("out_sum", outSum).
		Msg("Сформирован платёж Робокассы")

	return &CreatePaymentResult{
		PaymentID:  invID,
		PaymentURL: r.cfg.PaymentURL + "?" + values.Encode(),
	}, nil
}

// ParseCallback проверяет подпись и разбирает уведомление ResultURL.
// Робокасса присылает уведомление form/query-encoded (POST или GET)
// и только об успешной оплате.
func (r *Robokassa) ParseCallback(req *http.Request) (*Callback, error) {
	if err := req.ParseForm(); err != nil {
		return nil, domain.ErrMalformedCallback
	}

	outSum := req.Form.Get("OutSum")
	invID := req.Form.Get("InvId")
	signature := req.Form.Get("SignatureValue")
	if outSum == "" || invID == "" || signature == "" {
		return nil, domain.ErrMalformedCallback
	}

	// Собираем shp_* параметры уведомления
	shp := make(map[string]string)
	for key := range req.Form {
		if strings.HasPrefix(key, "shp_") {
			shp[key] = req.Form.Get(key)
		}
	}

	// Контрольная сумма уведомления: OutSum:InvId:Password2[:shp_*]
	expected := r.callbackSignature(outSum, invID, shp)
	if !strings.EqualFold(expected, signature) {
		return nil, domain.ErrSignatureMismatch
	}

	amount, err := money.ParseDecimal(outSum)
	if err != nil {
		return nil, domain.ErrMalformedCallback
	}

	return &Callback{
		PaymentID: invID,
		Amount:    money.New(amount),
		Event:     EventSucceeded,
	}, nil
}

// SuccessResponse возвращает тело подтверждения для Робокассы.
// Робокасса считает уведомление доставленным только при ответе "OK{InvId}".
func (r *Robokassa) SuccessResponse(paymentID string) string {
	return "OK" + paymentID
}

// paymentSignature считает подпись платежа (Password1).
func (r *Robokassa) paymentSignature(outSum, invID string, shp map[string]string) string {
	base := fmt.Sprintf("%s:%s:%s:%s", r.cfg.MerchantLogin, outSum, invID, r.cfg.Password1)
	return md5Hex(base + shpSuffix(shp))
}

// callbackSignature считает контрольную сумму уведомления (Password2).
func (r *Robokassa) callbackSignature(outSum, invID string, shp map[string]string) string {
	base := fmt.Sprintf("%s:%s:%s", outSum, invID, r.cfg.Password2)
	return md5Hex(base + shpSuffix(shp))
}

// shpSuffix возвращает shp_* параметры в лексикографическом порядке
// в формате ":shp_key=value" для включения в подпись.
func shpSuffix(shp map[string]string) string {
	if len(shp) == 0 {
		return ""
	}

	keys := make([]string, 0, len(shp))
	for k := range shp {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(":")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(shp[k])
	}
	return sb.String()
}

// md5Hex возвращает MD5 в верхнем регистре hex.
func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// generateInvID генерирует числовой идентификатор счёта Робокассы.
// Диапазон ограничен int32 по требованиям протокола.
func generateInvID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	n := binary.BigEndian.Uint32(buf)%2000000000 + 1
	return fmt.Sprintf("%d", n)
}
