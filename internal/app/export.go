package app

import (
	"context"

	"pricesync/internal/config"
	"pricesync/internal/export"
)

// Export writes table, or the configured export table when empty, to the export directory.
func (a *App) Export(ctx context.Context, table string) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	return a.finish(ctx, a.export(ctx, table))
}

func (a *App) export(ctx context.Context, table string) error {
	table = config.ResolveTable(table, a.Config.Export.Table)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	exporter := export.New(store, export.Options{
		Dir:            a.Config.Export.Dir,
		Format:         a.Config.Export.Format,
		SheetName:      a.Config.Export.SheetName,
		ExcludeColumns: a.Config.Export.ExcludeColumns,
	}, a.Logger)

	res, err := exporter.Export(ctx, table)
	if err != nil {
		return err
	}
	a.Recorder.ObserveExport(table, res.Rows)
	return nil
}
