// Package sqlident validates table and column names before they are spliced into SQL.
// Identifiers cannot be bound as parameters, so every name must match a strict pattern
// and appear in an allow-list assembled from configuration.
package sqlident

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"pricesync/internal/apperrors"
)

// MaxLength is the PostgreSQL NAMEDATALEN limit minus the terminator.
const MaxLength = 63

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Valid reports whether name is a plain SQL identifier.
func Valid(name string) bool {
	return len(name) <= MaxLength && identPattern.MatchString(name)
}

// AllowList holds the table and column names SQL may reference.
type AllowList struct {
	tables  map[string]struct{}
	columns map[string]struct{}
}

// NewAllowList builds an allow-list. Names failing Valid are rejected.
func NewAllowList(tables, columns []string) (*AllowList, error) {
	al := &AllowList{
		tables:  make(map[string]struct{}, len(tables)),
		columns: make(map[string]struct{}, len(columns)),
	}
	for _, t := range tables {
		if !Valid(t) {
			return nil, fmt.Errorf("table %q: %w", t, apperrors.ErrInvalidIdentifier)
		}
		al.tables[t] = struct{}{}
	}
	for _, c := range columns {
		if !Valid(c) {
			return nil, fmt.Errorf("column %q: %w", c, apperrors.ErrInvalidIdentifier)
		}
		al.columns[c] = struct{}{}
	}
	return al, nil
}

// Table returns the quoted identifier for an allowed table.
func (a *AllowList) Table(name string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("table %q: allow-list not configured: %w", name, apperrors.ErrInvalidIdentifier)
	}
	if _, ok := a.tables[name]; !ok || !Valid(name) {
		return "", fmt.Errorf("table %q not allowed: %w", name, apperrors.ErrInvalidIdentifier)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

// Column returns the quoted identifier for an allowed column.
func (a *AllowList) Column(name string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("column %q: allow-list not configured: %w", name, apperrors.ErrInvalidIdentifier)
	}
	if _, ok := a.columns[name]; !ok || !Valid(name) {
		return "", fmt.Errorf("column %q not allowed: %w", name, apperrors.ErrInvalidIdentifier)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

// String lists the allowed names, mostly for debug logs.
func (a *AllowList) String() string {
	if a == nil {
		return "<nil>"
	}
	return fmt.Sprintf("tables=[%s] columns=[%s]", joinKeys(a.tables), joinKeys(a.columns))
}

func joinKeys(m map[string]struct{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
