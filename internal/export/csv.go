package export

import (
	"encoding/csv"
	"os"

	"pricesync/internal/storage"
)

// WriteCSV writes the snapshot with a header row.
func WriteCSV(path string, snapshot storage.TableSnapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(snapshot.Columns); err != nil {
		return err
	}

	for _, row := range snapshot.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = cellText(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
