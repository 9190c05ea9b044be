package matchlog

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV returns every record of a CSV export. Result cells keep their
// embedded line breaks when quoted.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}
