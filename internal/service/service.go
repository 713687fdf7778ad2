package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"pricesync/internal/apperrors"
	"pricesync/internal/config"
	"pricesync/internal/fetcher"
	"pricesync/internal/metrics"
	"pricesync/internal/storage"
)

// StoreOpener opens a price store for one unit of work. The returned func
// releases it and is never nil when err is nil.
type StoreOpener func(ctx context.Context) (storage.PriceStore, func(), error)

// Target binds a currency to the derived column it feeds.
type Target struct {
	Currency string
	Column   string
}

// Options configure a sync run.
type Options struct {
	Table       string
	BaseColumn  string
	Targets     []Target
	OnRateError string
}

// Result is the outcome of one target.
type Result struct {
	Target  Target
	Rate    fetcher.CurrencyRate
	Rows    int64
	Err     error
	Skipped bool
}

// Report collects the results of a run in target order. Targets not reached
// after an abort are absent.
type Report struct {
	Results []Result
}

// Failed reports whether any target failed or was skipped.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// Service drives fetch-then-update for every configured target.
type Service struct {
	opts     Options
	fetcher  fetcher.RateFetcher
	open     StoreOpener
	recorder *metrics.Recorder
	logger   zerolog.Logger
}

// New constructs the synchronisation service.
func New(opts Options, rates fetcher.RateFetcher, open StoreOpener, recorder *metrics.Recorder, logger zerolog.Logger) *Service {
	if opts.OnRateError == "" {
		opts.OnRateError = config.PolicyAbort
	}
	return &Service{
		opts:     opts,
		fetcher:  rates,
		open:     open,
		recorder: recorder,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// OptionsFromConfig maps the sync section onto service options.
func OptionsFromConfig(cfg config.SyncConfig) Options {
	targets := make([]Target, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		targets = append(targets, Target{Currency: t.Currency, Column: t.Column})
	}
	return Options{
		Table:       cfg.Table,
		BaseColumn:  cfg.BaseColumn,
		Targets:     targets,
		OnRateError: cfg.OnRateError,
	}
}

// SyncAll synchronises every target in order. Rate failures follow the
// configured policy; any other failure stops the run. The returned error
// combines every target failure, including skipped ones.
func (s *Service) SyncAll(ctx context.Context) (Report, error) {
	var report Report
	var errs error

	for _, target := range s.opts.Targets {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}

		res, err := s.SyncTarget(ctx, target)
		if err == nil {
			report.Results = append(report.Results, res)
			continue
		}

		errs = multierr.Append(errs, err)
		s.recorder.ObserveFailure(target.Currency, apperrors.Kind(err))

		if errors.Is(err, apperrors.ErrRateUnavailable) && s.opts.OnRateError == config.PolicySkip {
			res.Skipped = true
			report.Results = append(report.Results, res)
			s.logger.Warn().Err(err).Str("currency", target.Currency).Msg("rate unavailable; skipping currency")
			continue
		}

		report.Results = append(report.Results, res)
		s.logger.Error().Err(err).Str("currency", target.Currency).Msg("sync aborted")
		return report, errs
	}

	return report, errs
}

// SyncTarget fetches the rate for target and, only when that succeeded,
// rewrites the target column from the base price.
func (s *Service) SyncTarget(ctx context.Context, target Target) (Result, error) {
	res := Result{Target: target}

	rate, err := s.fetcher.Fetch(ctx, target.Currency)
	s.recorder.ObserveFetch(target.Currency, rate.Mid, err)
	if err != nil {
		res.Err = err
		return res, err
	}
	res.Rate = rate

	store, release, err := s.open(ctx)
	if err != nil {
		res.Err = fmt.Errorf("open store for %s: %w", target.Currency, err)
		return res, res.Err
	}
	defer release()

	rows, err := store.SyncPrices(ctx, s.opts.Table, s.opts.BaseColumn, target.Column, rate.Mid)
	if err != nil {
		res.Err = fmt.Errorf("sync %s prices: %w", target.Currency, err)
		return res, res.Err
	}
	res.Rows = rows
	s.recorder.ObserveSync(s.opts.Table, target.Column, rows)

	s.logger.Info().
		Str("currency", target.Currency).
		Str("column", target.Column).
		Str("mid", rate.Mid.String()).
		Int64("rows", rows).
		Msg("unit price successfully updated")
	return res, nil
}

// FetchAll fetches the current rate of every target currency, stopping at the first failure.
func (s *Service) FetchAll(ctx context.Context) ([]fetcher.CurrencyRate, error) {
	rates := make([]fetcher.CurrencyRate, 0, len(s.opts.Targets))
	for _, target := range s.opts.Targets {
		rate, err := s.fetcher.Fetch(ctx, target.Currency)
		s.recorder.ObserveFetch(target.Currency, rate.Mid, err)
		if err != nil {
			return rates, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}
