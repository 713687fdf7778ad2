package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"pricesync/internal/apperrors"
)

const (
	defaultNBPBaseURL = "https://api.nbp.pl/api/exchangerates/rates"
	defaultNBPTable   = "a"
	nbpDateLayout     = "2006-01-02"
	maxErrorBody      = 512
)

// NBPOptions parameterise the National Bank of Poland fetcher.
type NBPOptions struct {
	BaseURL   string
	Table     string
	Timeout   time.Duration
	UserAgent string
}

// NBP fetches mid rates from the NBP exchange rates API.
type NBP struct {
	opts    NBPOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewNBP constructs an NBP fetcher.
func NewNBP(opts NBPOptions, logger zerolog.Logger) *NBP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultNBPBaseURL
	}
	if opts.Table == "" {
		opts.Table = defaultNBPTable
	}

	return &NBP{
		opts:    opts,
		logger:  logger.With().Str("component", "nbp_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Fetch requests the single most recent rate for code and returns its mid value.
func (n *NBP) Fetch(ctx context.Context, code string) (CurrencyRate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, err := currency.ParseISO(code); err != nil {
		return CurrencyRate{}, fmt.Errorf("currency code %q: %w: %w", code, apperrors.ErrRateUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/last/1/", n.baseURL, url.PathEscape(n.opts.Table), url.PathEscape(strings.ToLower(code)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return CurrencyRate{}, fmt.Errorf("create nbp request: %w: %w", apperrors.ErrRateUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(n.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pricesync/1.0")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error().Err(err).Str("currency", code).Msg("nbp request failed")
		return CurrencyRate{}, fmt.Errorf("fetch %s rate: %w: %w", code, apperrors.ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		n.logger.Error().Int("status", resp.StatusCode).Str("currency", code).Msg("nbp returned non-200 status")
		return CurrencyRate{}, fmt.Errorf("nbp api returned status %d for %s: %s: %w",
			resp.StatusCode, code, strings.TrimSpace(string(body)), apperrors.ErrRateUnavailable)
	}

	var payload nbpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CurrencyRate{}, fmt.Errorf("decode nbp response for %s: %w: %w", code, apperrors.ErrRateUnavailable, err)
	}

	if len(payload.Rates) == 0 {
		return CurrencyRate{}, fmt.Errorf("nbp response for %s has no rates: %w", code, apperrors.ErrRateUnavailable)
	}

	latest := payload.Rates[0]
	if !latest.Mid.IsPositive() {
		return CurrencyRate{}, fmt.Errorf("nbp mid for %s is %s: %w", code, latest.Mid.String(), apperrors.ErrRateUnavailable)
	}

	rate := CurrencyRate{
		Code:   code,
		Mid:    latest.Mid,
		Table:  payload.Table,
		Number: latest.No,
	}
	if payload.Code != "" {
		rate.Code = strings.ToUpper(payload.Code)
	}
	if effective, err := time.Parse(nbpDateLayout, latest.EffectiveDate); err == nil {
		rate.EffectiveDate = effective.UTC()
	}

	n.logger.Debug().Str("currency", rate.Code).Str("mid", rate.Mid.String()).Str("table_no", rate.Number).Msg("rate fetched")
	return rate, nil
}

type nbpResponse struct {
	Table    string    `json:"table"`
	Currency string    `json:"currency"`
	Code     string    `json:"code"`
	Rates    []nbpRate `json:"rates"`
}

type nbpRate struct {
	No            string          `json:"no"`
	EffectiveDate string          `json:"effectiveDate"`
	Mid           decimal.Decimal `json:"mid"`
}

var _ RateFetcher = (*NBP)(nil)
