package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"pricesync/internal/apperrors"
	"pricesync/internal/config"
	"pricesync/internal/fetcher"
	"pricesync/internal/metrics"
	"pricesync/internal/storage"
)

type staticFetcher struct {
	rates map[string]string
	calls []string
}

func (f *staticFetcher) Fetch(ctx context.Context, code string) (fetcher.CurrencyRate, error) {
	f.calls = append(f.calls, code)
	mid, ok := f.rates[code]
	if !ok {
		return fetcher.CurrencyRate{}, fmt.Errorf("fetch %s rate: %w", code, apperrors.ErrRateUnavailable)
	}
	return fetcher.CurrencyRate{Code: code, Mid: decimal.RequireFromString(mid)}, nil
}

type syncCall struct {
	table, base, column string
	rate                decimal.Decimal
}

type memoryStore struct {
	calls []syncCall
	rows  int64
	err   error
}

func (m *memoryStore) SyncPrices(ctx context.Context, table, base, column string, rate decimal.Decimal) (int64, error) {
	m.calls = append(m.calls, syncCall{table, base, column, rate})
	if m.err != nil {
		return 0, m.err
	}
	return m.rows, nil
}

type harness struct {
	fetcher  *staticFetcher
	store    *memoryStore
	opened   int
	released int
	recorder *metrics.Recorder
}

func (h *harness) opener(err error) StoreOpener {
	return func(ctx context.Context) (storage.PriceStore, func(), error) {
		if err != nil {
			return nil, nil, err
		}
		h.opened++
		return h.store, func() { h.released++ }, nil
	}
}

func newHarness(rates map[string]string) *harness {
	return &harness{
		fetcher:  &staticFetcher{rates: rates},
		store:    &memoryStore{rows: 2},
		recorder: metrics.NewRecorder(),
	}
}

func defaultOptions(policy string) Options {
	return Options{
		Table:      "product",
		BaseColumn: "UnitPrice",
		Targets: []Target{
			{Currency: "USD", Column: "UnitPriceUSD"},
			{Currency: "EUR", Column: "UnitPriceEuro"},
		},
		OnRateError: policy,
	}
}

func TestSyncAllSuccess(t *testing.T) {
	h := newHarness(map[string]string{"USD": "4.0", "EUR": "4.3"})
	svc := New(defaultOptions(config.PolicyAbort), h.fetcher, h.opener(nil), h.recorder, zerolog.Nop())

	report, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Failed())
	require.Len(t, report.Results, 2)
	assert.Equal(t, int64(2), report.Results[0].Rows)

	require.Len(t, h.store.calls, 2)
	assert.Equal(t, "UnitPriceUSD", h.store.calls[0].column)
	assert.True(t, h.store.calls[0].rate.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, "UnitPrice", h.store.calls[1].base)

	// one connection per target
	assert.Equal(t, 2, h.opened)
	assert.Equal(t, 2, h.released)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.recorder.RowsUpdated.WithLabelValues("product", "UnitPriceEuro")))
}

func TestSyncAllAbortsOnRateError(t *testing.T) {
	h := newHarness(map[string]string{"EUR": "4.3"})
	svc := New(defaultOptions(config.PolicyAbort), h.fetcher, h.opener(nil), h.recorder, zerolog.Nop())

	report, err := svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRateUnavailable)
	assert.True(t, report.Failed())

	// EUR never reached, no statement issued for USD
	assert.Equal(t, []string{"USD"}, h.fetcher.calls)
	assert.Empty(t, h.store.calls)
	assert.Zero(t, h.opened)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.recorder.SyncFailuresTotal.WithLabelValues("USD", "rate_unavailable")))
}

func TestSyncAllSkipsOnRateError(t *testing.T) {
	h := newHarness(map[string]string{"EUR": "4.3"})
	svc := New(defaultOptions(config.PolicySkip), h.fetcher, h.opener(nil), h.recorder, zerolog.Nop())

	report, err := svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRateUnavailable)

	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Skipped)
	assert.NoError(t, report.Results[1].Err)

	require.Len(t, h.store.calls, 1)
	assert.Equal(t, "UnitPriceEuro", h.store.calls[0].column)
}

func TestSyncAllPersistenceErrorAbortsEvenWhenSkipping(t *testing.T) {
	h := newHarness(map[string]string{"USD": "4.0", "EUR": "4.3"})
	h.store.err = fmt.Errorf("update: %w", apperrors.ErrPersistence)
	svc := New(defaultOptions(config.PolicySkip), h.fetcher, h.opener(nil), h.recorder, zerolog.Nop())

	report, err := svc.SyncAll(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, 1, h.released)
}

func TestSyncAllOpenErrorIsPersistence(t *testing.T) {
	h := newHarness(map[string]string{"USD": "4.0", "EUR": "4.3"})
	openErr := fmt.Errorf("connect to database: %w: %w", apperrors.ErrPersistence, errors.New("refused"))
	svc := New(defaultOptions(config.PolicyAbort), h.fetcher, h.opener(openErr), h.recorder, zerolog.Nop())

	_, err := svc.SyncAll(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Empty(t, h.store.calls)
}

func TestSyncAllCollectsSkippedErrors(t *testing.T) {
	h := newHarness(map[string]string{})
	svc := New(defaultOptions(config.PolicySkip), h.fetcher, h.opener(nil), h.recorder, zerolog.Nop())

	_, err := svc.SyncAll(context.Background())
	assert.Len(t, multierr.Errors(err), 2)
}

func TestSyncAllStopsOnCancelledContext(t *testing.T) {
	h := newHarness(map[string]string{"USD": "4.0", "EUR": "4.3"})
	svc := New(defaultOptions(config.PolicyAbort), h.fetcher, h.opener(nil), h.recorder, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SyncAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.fetcher.calls)
}

func TestFetchAll(t *testing.T) {
	h := newHarness(map[string]string{"USD": "3.9432", "EUR": "4.348"})
	svc := New(defaultOptions(""), h.fetcher, h.opener(nil), h.recorder, zerolog.Nop())

	rates, err := svc.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "EUR", rates[1].Code)

	h.fetcher.rates = map[string]string{"USD": "3.9"}
	rates, err = svc.FetchAll(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrRateUnavailable)
	assert.Len(t, rates, 1)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.SyncConfig{
		Table:       "product",
		BaseColumn:  "UnitPrice",
		OnRateError: config.PolicySkip,
		Targets:     []config.TargetConfig{{Currency: "USD", Column: "UnitPriceUSD"}},
	})
	assert.Equal(t, Options{
		Table:       "product",
		BaseColumn:  "UnitPrice",
		OnRateError: config.PolicySkip,
		Targets:     []Target{{Currency: "USD", Column: "UnitPriceUSD"}},
	}, opts)
}
