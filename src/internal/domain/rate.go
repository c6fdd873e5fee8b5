package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ExchangeRate struct {
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	FetchedAt    time.Time
}

// ExchangeRateProvider resolves the rate for a currency pair. An identical
// pair resolves to 1 without calling out.
type ExchangeRateProvider interface {
	GetRate(ctx context.Context, fromCurrency string, toCurrency string) (ExchangeRate, error)
}
