package currency

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateProvider supplies the current Toman-per-USD rate. Implementations may be
// cached or stale, and may fail. The ledger never calls one; callers resolve the
// rate before starting a posting so a slow lookup never holds an entity lock.
type RateProvider interface {
	CurrentRate(ctx context.Context) (decimal.Decimal, error)
}

// StaticRate is a RateProvider that always returns the same configured rate.
type StaticRate struct {
	rate decimal.Decimal
}

// NewStaticRate creates a StaticRate, validating the rate up front.
func NewStaticRate(rate decimal.Decimal) (*StaticRate, error) {
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}
	return &StaticRate{rate: rate}, nil
}

// CurrentRate returns the configured rate.
func (s *StaticRate) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return s.rate, nil
}
