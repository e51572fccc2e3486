// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency identifies one side of the USD / Toman pair.
type Currency string

// Supported currencies.
const (
	USD   Currency = "USD"
	Toman Currency = "TOMAN"
)

// CurrencyOf maps an is_usd flag to its currency.
func CurrencyOf(isUSD bool) Currency {
	if isUSD {
		return USD
	}
	return Toman
}

// Money is an explicit (amount, currency) pair. Amounts are never passed around
// without saying which currency they are in.
type Money struct {
	Amount decimal.Decimal `json:"amount"`
	IsUSD  bool            `json:"is_usd"`
}

// NewMoney creates a Money value.
func NewMoney(amount decimal.Decimal, isUSD bool) Money {
	return Money{Amount: amount, IsUSD: isUSD}
}

// USDAmount is shorthand for a USD-denominated Money.
func USDAmount(amount decimal.Decimal) Money {
	return Money{Amount: amount, IsUSD: true}
}

// TomanAmount is shorthand for a Toman-denominated Money.
func TomanAmount(amount decimal.Decimal) Money {
	return Money{Amount: amount, IsUSD: false}
}

// Currency returns the currency of the amount.
func (m Money) Currency() Currency {
	return CurrencyOf(m.IsUSD)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) String() string {
	if m.IsUSD {
		return fmt.Sprintf("$%s USD", m.Amount.StringFixed(2))
	}
	return fmt.Sprintf("%s Toman", m.Amount.StringFixed(0))
}
