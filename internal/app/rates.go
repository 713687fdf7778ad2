package app

import (
	"context"
	"fmt"
	"io"

	"pricesync/internal/export"
	"pricesync/internal/fetcher"
)

// Rates prints the current mid rate of every configured currency and, when
// pngPath is set, renders them as a bar chart. Nothing touches the database.
func (a *App) Rates(ctx context.Context, w io.Writer, pngPath string) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	rates, err := a.newService().FetchAll(ctx)
	for _, rate := range rates {
		fmt.Fprintln(w, Describe(rate))
	}
	if err != nil {
		return a.finish(ctx, err)
	}

	if pngPath != "" {
		if err := export.WriteRatesChart(pngPath, rates); err != nil {
			return a.finish(ctx, err)
		}
		a.Logger.Info().Str("path", pngPath).Int("currencies", len(rates)).Msg("rates chart written")
	}
	return a.finish(ctx, nil)
}

// Describe renders a rate the way the rates command prints it, e.g. "USD: 3.9432 PLN".
func Describe(rate fetcher.CurrencyRate) string {
	return fmt.Sprintf("%s: %s PLN", rate.Code, rate.Mid.String())
}
