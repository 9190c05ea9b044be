package matchlog

import (
	"fmt"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/util/htft"
	"github.com/samber/lo"
)

// storeHeader is the header reported for tables read from the match store
var storeHeader = []string{"matchId", "rawResultText"}

// LoadSQLite reads a match log previously written by Import. The store is
// opened read-only and must already exist.
func LoadSQLite(path string) (*Table, error) {
	store, err := htft.OpenStoreReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	records, err := store.LoadMatchRecords()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	return &Table{
		Source: path,
		Header: storeHeader,
		Rows:   lo.Map(records, func(r *htft.MatchRecord, _ int) htft.Row { return r.Row() }),
	}, nil
}

// Import replaces the contents of the match store at path with table. Every
// row is stored, including those without a usable result; the derived score
// columns are empty for them. The previous contents survive a failed import.
func Import(table *Table, path string) (htft.CleanStats, error) {
	stats := htft.CleanStats{Total: table.Len()}
	records := make([]*htft.MatchRecord, 0, table.Len())
	for i, row := range table.Rows {
		rec, err := htft.NewMatchRecord(i, row)
		if err == nil {
			stats.Kept++
		} else if htft.IsNoResult(err) {
			stats.NoResult++
		} else {
			stats.Malformed++
		}
		records = append(records, rec)
	}

	store, err := htft.OpenStore(path)
	if err != nil {
		return stats, err
	}
	defer store.Close()

	if err := store.ReplaceMatchRecords(records); err != nil {
		return stats, fmt.Errorf("failed to import %s: %w", table.Source, err)
	}
	logger.Info("Imported match log", table.Source, "into", path, "rows", stats.Total, "usable", stats.Kept)
	return stats, nil
}
