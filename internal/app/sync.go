package app

import (
	"context"

	"pricesync/internal/service"
)

// Sync fetches every configured rate and rewrites the matching price columns.
func (a *App) Sync(ctx context.Context) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	_, err := a.sync(ctx)
	return a.finish(ctx, err)
}

func (a *App) sync(ctx context.Context) (service.Report, error) {
	a.Logger.Info().
		Str("table", a.Config.Sync.Table).
		Int("targets", len(a.Config.Sync.Targets)).
		Str("on_rate_error", a.Config.Sync.OnRateError).
		Msg("starting price sync")

	report, err := a.newService().SyncAll(ctx)

	var updated, skipped int
	for _, res := range report.Results {
		switch {
		case res.Skipped:
			skipped++
		case res.Err == nil:
			updated++
		}
	}
	event := a.Logger.Info()
	if err != nil {
		event = a.Logger.Error().Err(err)
	}
	event.Int("updated", updated).Int("skipped", skipped).Msg("price sync finished")

	return report, err
}
