package app

import "context"

// Run synchronises prices and then exports the table. Export is skipped after
// a failed sync unless run.export_on_sync_failure is set; the sync error is
// still returned.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	_, syncErr := a.sync(ctx)
	if syncErr != nil && !a.Config.Run.ExportOnSyncFailure {
		a.Logger.Warn().Msg("sync failed; export skipped")
		return a.finish(ctx, syncErr)
	}
	if ctx.Err() != nil {
		return a.finish(ctx, ctx.Err())
	}

	exportErr := a.export(ctx, "")
	if syncErr != nil {
		if exportErr != nil {
			a.Logger.Error().Err(exportErr).Msg("export after failed sync also failed")
		}
		return a.finish(ctx, syncErr)
	}
	return a.finish(ctx, exportErr)
}
