package fetcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyRate is one mid-market quote against PLN. It is never persisted.
type CurrencyRate struct {
	Code          string
	Mid           decimal.Decimal
	Table         string
	Number        string
	EffectiveDate time.Time
}

// RateFetcher retrieves the latest mid rate for an ISO 4217 currency code.
type RateFetcher interface {
	Fetch(ctx context.Context, code string) (CurrencyRate, error)
}
