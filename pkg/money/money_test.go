// Package money содержит unit тесты для денежного типа.
package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMoney_Decimal тестирует форматирование суммы в десятичную строку.
func TestMoney_Decimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		expected string
	}{
		{name: "целые рубли", amount: 30000, expected: "300.00"},
		{name: "рубли с копейками", amount: 30050, expected: "300.50"},
		{name: "меньше рубля", amount: 5, expected: "0.05"},
		{name: "ноль", amount: 0, expected: "0.00"},
		{name: "одна копейка", amount: 1, expected: "0.01"},
		{name: "отрицательная сумма", amount: -9950, expected: "-99.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.amount).Decimal())
		})
	}
}

// TestParseDecimal тестирует разбор десятичных строк платёжных систем.
func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int64
		expectedErr error
	}{
		{name: "два знака после точки", input: "300.00", expected: 30000},
		{name: "без дробной части", input: "300", expected: 30000},
		{name: "один знак после точки", input: "300.5", expected: 30050},
		{name: "пробелы по краям", input: " 300.00 ", expected: 30000},
		{name: "копейки с нулём", input: "0.05", expected: 5},
		{name: "отрицательная сумма", input: "-99.50", expected: -9950},
		{name: "пустая строка", input: "", expectedErr: ErrInvalidAmount},
		{name: "три знака после точки", input: "300.005", expectedErr: ErrInvalidAmount},
		{name: "не число", input: "abc", expectedErr: ErrInvalidAmount},
		{name: "только точка", input: ".50", expectedErr: ErrInvalidAmount},
		{name: "минус в дробной части", input: "3.-5", expectedErr: ErrInvalidAmount},
		{name: "плюс в дробной части", input: "3.+5", expectedErr: ErrInvalidAmount},
		{name: "минус нуля копеек", input: "1.-0", expectedErr: ErrInvalidAmount},
		{name: "плюс перед суммой", input: "+300.00", expectedErr: ErrInvalidAmount},
		{name: "двойной минус", input: "--300", expectedErr: ErrInvalidAmount},
		{name: "пробел внутри числа", input: "3 00.00", expectedErr: ErrInvalidAmount},
		{name: "буква в дробной части", input: "300.0a", expectedErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := ParseDecimal(tt.input)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, amount)
		})
	}
}

// TestParseDecimal_RoundTrip тестирует согласованность Decimal и ParseDecimal.
func TestParseDecimal_RoundTrip(t *testing.T) {
	for _, amount := range []int64{0, 1, 99, 100, 30000, 1234567} {
		parsed, err := ParseDecimal(New(amount).Decimal())
		require.NoError(t, err)
		assert.Equal(t, amount, parsed)
	}
}

// TestMoney_Arithmetic тестирует Multiply и Add.
func TestMoney_Arithmetic(t *testing.T) {
	price := New(10000) // 100.00 RUB

	subtotal := price.Multiply(3)
	assert.Equal(t, int64(30000), subtotal.Amount)
	assert.Equal(t, DefaultCurrency, subtotal.Currency)

	total := subtotal.Add(New(50))
	assert.Equal(t, int64(30050), total.Amount)
}

// TestMoney_Equal тестирует сравнение сумм с учётом валюты.
func TestMoney_Equal(t *testing.T) {
	assert.True(t, New(30000).Equal(New(30000)))
	assert.False(t, New(30000).Equal(New(30001)))
	assert.False(t, New(30000).Equal(Money{Amount: 30000, Currency: "USD"}))
}
