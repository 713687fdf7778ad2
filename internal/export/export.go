package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"pricesync/internal/apperrors"
	"pricesync/internal/storage"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Options control where and how a table is written.
type Options struct {
	Dir            string
	Format         string
	SheetName      string
	ExcludeColumns []string
}

// Result describes a finished export.
type Result struct {
	Path    string
	Rows    int
	Columns []string
}

// Exporter dumps a table to a spreadsheet file.
type Exporter struct {
	reader storage.TableReader
	opts   Options
	logger zerolog.Logger
}

// New constructs an exporter reading through reader.
func New(reader storage.TableReader, opts Options, logger zerolog.Logger) *Exporter {
	if opts.Format == "" {
		opts.Format = FormatXLSX
	}
	if opts.SheetName == "" {
		opts.SheetName = defaultSheet
	}
	return &Exporter{
		reader: reader,
		opts:   opts,
		logger: logger.With().Str("component", "exporter").Logger(),
	}
}

// Path returns the deterministic output path for table.
func Path(dir, table, format string) string {
	return filepath.Join(dir, fmt.Sprintf("current_%s.%s", table, strings.ToLower(format)))
}

// Export reads table, drops excluded columns and overwrites the output file.
// A failed export may leave a stale or partial file behind.
func (e *Exporter) Export(ctx context.Context, table string) (Result, error) {
	snapshot, err := e.reader.ReadTable(ctx, table)
	if err != nil {
		return Result{}, err
	}
	snapshot = snapshot.Without(e.opts.ExcludeColumns...)

	path := Path(e.opts.Dir, table, e.opts.Format)
	switch e.opts.Format {
	case FormatXLSX:
		err = WriteXLSX(path, e.opts.SheetName, snapshot)
	case FormatCSV:
		err = WriteCSV(path, snapshot)
	default:
		err = fmt.Errorf("unsupported export format %q", e.opts.Format)
	}
	if err != nil {
		e.logger.Error().Err(err).Str("table", table).Str("path", path).Msg("unable to write export file")
		return Result{}, fmt.Errorf("export %s: %w: %w", table, apperrors.ErrExport, err)
	}

	e.logger.Info().Str("table", table).Str("path", path).Int("rows", len(snapshot.Rows)).Msg("table saved")
	return Result{Path: path, Rows: len(snapshot.Rows), Columns: snapshot.Columns}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
