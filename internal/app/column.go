package app

import (
	"context"

	"pricesync/internal/config"
)

// AddColumn creates a derived price column on table (the sync table when empty).
func (a *App) AddColumn(ctx context.Context, table, column string) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	table = config.ResolveTable(table, a.Config.Sync.Table)
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	_, err = store.AddPriceColumn(ctx, table, column)
	return err
}

// DropColumn removes a derived price column from table (the sync table when empty).
func (a *App) DropColumn(ctx context.Context, table, column string) error {
	ctx, cancel := withSignals(ctx)
	defer cancel()

	table = config.ResolveTable(table, a.Config.Sync.Table)
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return store.DropPriceColumn(ctx, table, column)
}
