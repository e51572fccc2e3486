// Package currency converts amounts between USD and Toman at an explicit rate.
//
// Rates are always Toman per one USD. Nothing in this package looks a rate up;
// callers resolve it first and pass it in.
package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

// ValidateRate rejects rates that are not strictly positive.
func ValidateRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s", common.ErrInvalidRate, rate)
	}
	return nil
}

// ValidateAmount rejects amounts that are not strictly positive.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", common.ErrInvalidAmount, amount)
	}
	return nil
}

// ToUSD converts amount to USD. USD amounts pass through unchanged.
func ToUSD(amount decimal.Decimal, isUSD bool, rate decimal.Decimal) (decimal.Decimal, error) {
	if isUSD {
		return amount, nil
	}
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, err
	}
	return amount.Div(rate), nil
}

// FromUSD converts a USD amount into the currency selected by isUSD.
func FromUSD(usdAmount decimal.Decimal, isUSD bool, rate decimal.Decimal) (decimal.Decimal, error) {
	if isUSD {
		return usdAmount, nil
	}
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, err
	}
	return usdAmount.Mul(rate), nil
}

// Settle returns the amount that m moves in an account denominated in the
// target currency. Money already in that currency applies as entered, so a
// same-currency movement never picks up division remainders. Anything else is
// converted from its USD magnitude at rate.
func Settle(m model.Money, amountUSD decimal.Decimal, toUSD bool, rate decimal.Decimal) (decimal.Decimal, error) {
	if m.IsUSD == toUSD {
		return m.Amount, nil
	}
	return FromUSD(amountUSD, toUSD, rate)
}

// MoneyToUSD converts an explicit Money value to USD.
func MoneyToUSD(m model.Money, rate decimal.Decimal) (decimal.Decimal, error) {
	return ToUSD(m.Amount, m.IsUSD, rate)
}

// Convert re-denominates m into the target currency via USD.
func Convert(m model.Money, toUSD bool, rate decimal.Decimal) (model.Money, error) {
	if m.IsUSD == toUSD {
		return m, nil
	}
	usd, err := MoneyToUSD(m, rate)
	if err != nil {
		return model.Money{}, err
	}
	native, err := FromUSD(usd, toUSD, rate)
	if err != nil {
		return model.Money{}, err
	}
	return model.NewMoney(native, toUSD), nil
}
