package storage

import (
	"strings"
	"time"
)

// TableSnapshot is the full row set of a table as read at ReadAt.
type TableSnapshot struct {
	Table   string
	Columns []string
	Rows    [][]any
	ReadAt  time.Time
}

// Without returns a copy of the snapshot lacking the named columns (case-insensitive).
// Names that are not present are ignored.
func (t TableSnapshot) Without(names ...string) TableSnapshot {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[strings.ToLower(n)] = struct{}{}
	}

	keep := make([]int, 0, len(t.Columns))
	columns := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := drop[strings.ToLower(c)]; ok {
			continue
		}
		keep = append(keep, i)
		columns = append(columns, c)
	}

	rows := make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]any, 0, len(keep))
		for _, i := range keep {
			if i < len(row) {
				out = append(out, row[i])
			}
		}
		rows[r] = out
	}

	return TableSnapshot{Table: t.Table, Columns: columns, Rows: rows, ReadAt: t.ReadAt}
}
