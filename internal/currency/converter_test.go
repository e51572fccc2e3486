package currency

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestToUSD(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		rate    string
		want    string
		wantErr error
		isUSD   bool
	}{
		{name: "usd is identity", amount: "30", isUSD: true, rate: "50000", want: "30"},
		{name: "usd ignores zero rate", amount: "30", isUSD: true, rate: "0", want: "30"},
		{name: "toman divides by rate", amount: "450000", rate: "50000", want: "9"},
		{name: "toman fractional", amount: "125000", rate: "50000", want: "2.5"},
		{name: "zero rate rejected", amount: "100", rate: "0", wantErr: common.ErrInvalidRate},
		{name: "negative rate rejected", amount: "100", rate: "-1", wantErr: common.ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUSD(dec(tt.amount), tt.isUSD, dec(tt.rate))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestFromUSD(t *testing.T) {
	got, err := FromUSD(dec("9"), false, dec("50000"))
	require.NoError(t, err)
	assert.True(t, dec("450000").Equal(got))

	got, err = FromUSD(dec("9"), true, dec("50000"))
	require.NoError(t, err)
	assert.True(t, dec("9").Equal(got))

	_, err = FromUSD(dec("9"), false, decimal.Zero)
	assert.ErrorIs(t, err, common.ErrInvalidRate)
}

func TestRoundTripSymmetry(t *testing.T) {
	tolerance := dec("0.000001")
	amounts := []string{"1", "450000", "123456.789", "0.01", "99999999"}
	rates := []string{"1", "3", "50000", "61234.5", "7"}

	for _, a := range amounts {
		for _, r := range rates {
			usd, err := ToUSD(dec(a), false, dec(r))
			require.NoError(t, err)
			back, err := FromUSD(usd, false, dec(r))
			require.NoError(t, err)
			diff := back.Sub(dec(a)).Abs()
			assert.True(t, diff.LessThanOrEqual(tolerance), "amount %s rate %s came back as %s", a, r, back)
		}
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name  string
		money model.Money
		toUSD bool
		rate  string
		want  string
	}{
		{name: "toman into toman at 30000", money: model.TomanAmount(dec("100000")), rate: "30000", want: "100000"},
		{name: "toman into toman at 70000", money: model.TomanAmount(dec("100000")), rate: "70000", want: "100000"},
		{name: "toman into toman at 61234.5", money: model.TomanAmount(dec("123456.78")), rate: "61234.5", want: "123456.78"},
		{name: "usd into usd", money: model.USDAmount(dec("10.125")), toUSD: true, rate: "70000", want: "10.125"},
		{name: "usd into toman", money: model.USDAmount(dec("3")), rate: "61234.5", want: "183703.5"},
		{name: "toman into usd", money: model.TomanAmount(dec("140000")), toUSD: true, rate: "70000", want: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usd, err := MoneyToUSD(tt.money, dec(tt.rate))
			require.NoError(t, err)
			got, err := Settle(tt.money, usd, tt.toUSD, dec(tt.rate))
			require.NoError(t, err)
			assert.Truef(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}

	_, err := Settle(model.USDAmount(dec("1")), dec("1"), false, decimal.Zero)
	require.ErrorIs(t, err, common.ErrInvalidRate)
}

func TestConvert(t *testing.T) {
	m, err := Convert(model.USDAmount(dec("2")), false, dec("50000"))
	require.NoError(t, err)
	assert.False(t, m.IsUSD)
	assert.True(t, dec("100000").Equal(m.Amount))

	same, err := Convert(model.TomanAmount(dec("5")), false, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(same.Amount))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(dec("0.01")))
	assert.ErrorIs(t, ValidateAmount(decimal.Zero), common.ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(dec("-5")), common.ErrInvalidAmount)
}

func TestStaticRate(t *testing.T) {
	_, err := NewStaticRate(decimal.Zero)
	assert.ErrorIs(t, err, common.ErrInvalidRate)

	p, err := NewStaticRate(dec("50000"))
	require.NoError(t, err)
	rate, err := p.CurrentRate(context.Background())
	require.NoError(t, err)
	assert.True(t, dec("50000").Equal(rate))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.CurrentRate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
