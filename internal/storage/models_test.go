package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotWithout(t *testing.T) {
	snapshot := TableSnapshot{
		Table:   "product",
		Columns: []string{"id", "name", "Picture"},
		Rows: [][]any{
			{1, "Chai", []byte{0x1}},
			{2, "Chang", nil},
		},
	}

	out := snapshot.Without("picture", "missing")

	assert.Equal(t, []string{"id", "name"}, out.Columns)
	assert.Equal(t, [][]any{{1, "Chai"}, {2, "Chang"}}, out.Rows)
	// the source snapshot is untouched
	assert.Len(t, snapshot.Columns, 3)
	assert.Len(t, snapshot.Rows[0], 3)
}

func TestSnapshotWithoutNoMatch(t *testing.T) {
	snapshot := TableSnapshot{Columns: []string{"id"}, Rows: [][]any{{1}}}
	assert.Equal(t, snapshot.Columns, snapshot.Without("Picture").Columns)
}
