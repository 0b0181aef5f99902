// Package money предоставляет тип денежной суммы, общий для всех агрегатов.
// Сумма хранится в минимальных единицах (копейки) для избежания проблем
// с плавающей точкой. Платёжные системы (Robokassa) обмениваются суммами
// в виде десятичных строк ("300.00") — форматирование и разбор здесь же.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultCurrency — валюта магазина по умолчанию.
const DefaultCurrency = "RUB"

// ErrInvalidAmount возвращается при разборе некорректной десятичной строки.
var ErrInvalidAmount = errors.New("некорректная денежная сумма")

// Money — денежная сумма с валютой.
type Money struct {
	Currency string // ISO 4217 код валюты (RUB, USD, EUR)
	Amount   int64  // Сумма в минимальных единицах (копейки/центы)
}

// New создаёт сумму в валюте по умолчанию.
func New(amount int64) Money {
	return Money{Currency: DefaultCurrency, Amount: amount}
}

// Multiply умножает сумму на количество.
// Используется для расчёта стоимости позиции (цена * количество).
func (m Money) Multiply(quantity int32) Money {
	return Money{
		Currency: m.Currency,
		Amount:   m.Amount * int64(quantity),
	}
}

// Add складывает две суммы. Валюта берётся из приёмника.
func (m Money) Add(other Money) Money {
	return Money{
		Currency: m.Currency,
		Amount:   m.Amount + other.Amount,
	}
}

// IsZero возвращает true для нулевой суммы.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Equal сравнивает суммы с учётом валюты.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Decimal возвращает сумму в виде десятичной строки с двумя знаками: "300.00".
// Формат, который ожидают Robokassa (OutSum) и ЮKassa (amount.value).
func (m Money) Decimal() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// String возвращает сумму с валютой: "300.00 RUB".
func (m Money) String() string {
	return m.Decimal() + " " + m.Currency
}

// ParseDecimal разбирает десятичную строку ("300.00", "300", "300.5")
// в сумму в минимальных единицах. Более двух знаков после точки — ошибка:
// платёжные системы оперируют целыми копейками.
func ParseDecimal(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
	}

	if intPart == "" || len(fracPart) > 2 {
		return 0, ErrInvalidAmount
	}

	// Обе части — только цифры: ParseInt принимает знак, а "3.-5"
	// или "+3.5" — не сумма, которую шлёт платёжная система
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var cents int64
	if fracPart != "" {
		// "5" означает 50 копеек, "05" — 5 копеек.
		if len(fracPart) == 1 {
			fracPart += "0"
		}
		cents, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	amount := whole*100 + cents
	if negative {
		amount = -amount
	}
	return amount, nil
}

// isDigits сообщает, состоит ли строка только из ASCII цифр.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
