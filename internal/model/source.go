package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source is an account with a fixed native currency and a running balance.
// Balance is denominated in the native currency and is only written by the ledger.
type Source struct {
	CreatedAt time.Time       `json:"created_at"`
	Balance   decimal.Decimal `json:"balance"`
	Name      string          `json:"name"`
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"owner_id"`
	IsBank    bool            `json:"is_bank"`
	IsUSD     bool            `json:"is_usd"`
}

// Currency returns the native currency of the source.
func (s Source) Currency() Currency {
	return CurrencyOf(s.IsUSD)
}

// BalanceMoney returns the balance as an explicit Money value.
func (s Source) BalanceMoney() Money {
	return NewMoney(s.Balance, s.IsUSD)
}

// SourceBalance is a source balance with both currency equivalents at some rate.
type SourceBalance struct {
	Source     Source          `json:"source"`
	USDValue   decimal.Decimal `json:"usd_value"`
	TomanValue decimal.Decimal `json:"toman_value"`
}
