package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"pricesync/internal/apperrors"
)

const undefinedColumnCode = "42703"

// ColumnAdmin adds and drops derived price columns.
type ColumnAdmin interface {
	AddPriceColumn(ctx context.Context, table, column string) (bool, error)
	DropPriceColumn(ctx context.Context, table, column string) error
}

// ColumnExists reports whether column is present on table in the current schema.
func (s *Store) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("information_schema.columns").
		Where("table_schema = current_schema()").
		Where(sq.Eq{"table_name": table, "column_name": column}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build column lookup: %w", err)
	}

	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("lookup column %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}

// AddPriceColumn adds a NUMERIC(precision,scale) column unless it already exists.
// It reports whether the column was created. PostgreSQL appends new columns, so the
// reference column is only checked for presence.
func (s *Store) AddPriceColumn(ctx context.Context, table, column string) (bool, error) {
	tbl, cols, err := s.identifiers(table, s.opts.ReferenceColumn, column)
	if err != nil {
		return false, fmt.Errorf("add column %s.%s: %w: %w", table, column, apperrors.ErrSchema, err)
	}

	hasRef, err := s.ColumnExists(ctx, table, s.opts.ReferenceColumn)
	if err != nil {
		return false, fmt.Errorf("add column %s.%s: %w: %w", table, column, apperrors.ErrSchema, err)
	}
	if !hasRef {
		return false, fmt.Errorf("reference column %s.%s: %w: %w", table, s.opts.ReferenceColumn, apperrors.ErrSchema, apperrors.ErrColumnNotFound)
	}

	exists, err := s.ColumnExists(ctx, table, column)
	if err != nil {
		return false, fmt.Errorf("add column %s.%s: %w: %w", table, column, apperrors.ErrSchema, err)
	}
	if exists {
		s.logger.Info().Str("table", table).Str("column", column).Msg("column already present")
		return false, nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s NUMERIC(%d,%d)", tbl, cols[1], s.opts.Precision, s.opts.Scale)
	if _, err := s.db.Exec(ctx, stmt); err != nil {
		s.logger.Error().Err(err).Str("table", table).Str("column", column).Msg("alter table add column failed")
		return false, fmt.Errorf("add column %s.%s: %w: %w", table, column, apperrors.ErrSchema, err)
	}

	s.logger.Info().Str("table", table).Str("column", column).Msg("column added")
	return true, nil
}

// DropPriceColumn removes column from table. A missing column is an error.
func (s *Store) DropPriceColumn(ctx context.Context, table, column string) error {
	if column == s.opts.ReferenceColumn {
		return fmt.Errorf("drop column %s.%s: refusing to drop reference column: %w", table, column, apperrors.ErrSchema)
	}

	tbl, cols, err := s.identifiers(table, column)
	if err != nil {
		return fmt.Errorf("drop column %s.%s: %w: %w", table, column, apperrors.ErrSchema, err)
	}

	stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", tbl, cols[0])
	if _, err := s.db.Exec(ctx, stmt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedColumnCode {
			s.logger.Error().Str("table", table).Str("column", column).Msg("column does not exist")
			return fmt.Errorf("drop column %s.%s: %w: %w", table, column, apperrors.ErrSchema, apperrors.ErrColumnNotFound)
		}
		s.logger.Error().Err(err).Str("table", table).Str("column", column).Msg("alter table drop column failed")
		return fmt.Errorf("drop column %s.%s: %w: %w", table, column, apperrors.ErrSchema, err)
	}

	s.logger.Info().Str("table", table).Str("column", column).Msg("column dropped")
	return nil
}

var _ ColumnAdmin = (*Store)(nil)
