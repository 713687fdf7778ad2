package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"pricesync/internal/apperrors"
)

// PriceStore recomputes derived price columns.
type PriceStore interface {
	SyncPrices(ctx context.Context, table, baseColumn, column string, rate decimal.Decimal) (int64, error)
}

// SyncPrices sets column = baseColumn / rate on every row of table in one transaction.
func (s *Store) SyncPrices(ctx context.Context, table, baseColumn, column string, rate decimal.Decimal) (int64, error) {
	if !rate.IsPositive() {
		return 0, fmt.Errorf("sync %s.%s with rate %s: %w", table, column, rate.String(), apperrors.ErrInvalidRate)
	}

	tbl, cols, err := s.identifiers(table, baseColumn, column)
	if err != nil {
		return 0, fmt.Errorf("sync %s.%s: %w", table, column, err)
	}
	base, target := cols[0], cols[1]

	query, args, err := psql.Update(tbl).
		Set(target, sq.Expr(base+" / ?::numeric", rate.String())).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build price update: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("table", table).Msg("failed to begin transaction")
		return 0, fmt.Errorf("begin tx: %w: %w", apperrors.ErrPersistence, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to rollback price update")
		}
		s.logger.Error().Err(err).Str("table", table).Str("column", column).Msg("price update failed")
		return 0, fmt.Errorf("update %s.%s: %w: %w", table, column, apperrors.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("table", table).Str("column", column).Msg("failed to commit price update")
		return 0, fmt.Errorf("commit tx: %w: %w", apperrors.ErrPersistence, err)
	}

	rows := tag.RowsAffected()
	s.logger.Info().Str("table", table).Str("column", column).
		Str("rate", rate.String()).Int64("rows", rows).
		Msg("unit prices updated")
	return rows, nil
}

var _ PriceStore = (*Store)(nil)
