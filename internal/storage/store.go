package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"pricesync/internal/apperrors"
	"pricesync/internal/config"
	"pricesync/internal/sqlident"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the subset of *pgx.Conn used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Options shape derived price columns.
type Options struct {
	ReferenceColumn string
	Precision       int
	Scale           int
}

// Store runs the price, schema and snapshot statements over one connection.
type Store struct {
	db     DB
	allow  *sqlident.AllowList
	opts   Options
	logger zerolog.Logger
}

// Connect opens a single connection; callers close it after one logical unit of work.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgx.Conn, error) {
	connConfig, err := pgx.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w: %w", apperrors.ErrPersistence, err)
	}
	if cfg.ConnectTimeout > 0 {
		connConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w: %w", apperrors.ErrPersistence, err)
	}
	return conn, nil
}

// NewStore wires a connection into a Store.
func NewStore(db DB, allow *sqlident.AllowList, opts Options, logger zerolog.Logger) *Store {
	if opts.Precision <= 0 {
		opts.Precision = 10
	}
	if opts.Scale < 0 || opts.Scale > opts.Precision {
		opts.Scale = 0
	}
	return &Store{
		db:     db,
		allow:  allow,
		opts:   opts,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Close releases the underlying connection when it supports closing.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	if closer, ok := s.db.(interface{ Close(context.Context) error }); ok {
		return closer.Close(ctx)
	}
	return nil
}

func (s *Store) identifiers(table string, columns ...string) (string, []string, error) {
	quotedTable, err := s.allow.Table(table)
	if err != nil {
		return "", nil, err
	}
	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		q, err := s.allow.Column(c)
		if err != nil {
			return "", nil, err
		}
		quoted = append(quoted, q)
	}
	return quotedTable, quoted, nil
}
