package storage

import (
	"context"
	"fmt"
	"time"

	"pricesync/internal/apperrors"
)

// TableReader materialises a whole table.
type TableReader interface {
	ReadTable(ctx context.Context, table string) (TableSnapshot, error)
}

// ReadTable loads every row and column of table into memory.
func (s *Store) ReadTable(ctx context.Context, table string) (TableSnapshot, error) {
	tbl, _, err := s.identifiers(table)
	if err != nil {
		return TableSnapshot{}, fmt.Errorf("read table %s: %w: %w", table, apperrors.ErrExport, err)
	}

	query, args, err := psql.Select("*").From(tbl).ToSql()
	if err != nil {
		return TableSnapshot{}, fmt.Errorf("build table select: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Str("table", table).Msg("table select failed")
		return TableSnapshot{}, fmt.Errorf("read table %s: %w: %w", table, apperrors.ErrExport, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	snapshot := TableSnapshot{
		Table:   table,
		Columns: make([]string, len(fields)),
		Rows:    make([][]any, 0),
		ReadAt:  time.Now().UTC(),
	}
	for i, f := range fields {
		snapshot.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return TableSnapshot{}, fmt.Errorf("scan %s row: %w: %w", table, apperrors.ErrExport, err)
		}
		snapshot.Rows = append(snapshot.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return TableSnapshot{}, fmt.Errorf("read table %s: %w: %w", table, apperrors.ErrExport, err)
	}

	s.logger.Debug().Str("table", table).Int("rows", len(snapshot.Rows)).Int("columns", len(snapshot.Columns)).Msg("table read")
	return snapshot, nil
}

var _ TableReader = (*Store)(nil)
