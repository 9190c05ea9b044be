// Package matchlog loads match logs from spreadsheets, CSV and HTML exports,
// remote URLs and the sqlite match store into a uniform table of rows.
package matchlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/transport"
	"github.com/richard-senior/htft/pkg/util/htft"
	"github.com/samber/lo"
)

var (
	ErrEmptyTable        = errors.New("match log is empty")
	ErrUnsupportedSource = errors.New("unsupported match log source")
	ErrMissingColumn     = errors.New("match log has no result column")
)

// headerSearchDepth is how many leading rows may precede the header row
const headerSearchDepth = 5

// Table is a loaded match log in source order, most recent match first
type Table struct {
	Source string     `json:"source"`
	Header []string   `json:"header"`
	Rows   []htft.Row `json:"rows"`
}

// Len is the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Records cleans the table and returns its usable records oldest first
func (t *Table) Records() ([]*htft.MatchRecord, htft.CleanStats) {
	return htft.CleanRecords(htft.Chronological(t.Rows))
}

// Labels returns the distinct score labels of the cleaned table
func (t *Table) Labels() *htft.Labels {
	records, _ := t.Records()
	return htft.ObservedLabels(records)
}

// Load reads the match log named by source. source is a file path or an
// http(s) URL; the format follows the file extension or, for URLs, the
// declared content type.
func Load(ctx context.Context, source string) (*Table, error) {
	if isURL(source) {
		return loadURL(ctx, source)
	}

	switch ext := strings.ToLower(filepath.Ext(source)); ext {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(source)
	case ".xlsx", ".xlsm", ".csv", ".html", ".htm":
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open match log: %w", err)
		}
		defer f.Close()
		return parse(source, ext, f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

func isURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func loadURL(ctx context.Context, source string) (*Table, error) {
	ctx, cancel := context.WithTimeout(ctx, htft.Config.FetchTimeout)
	defer cancel()

	client := transport.GetHTTPClient(htft.Config.CABundle, htft.Config.FetchTimeout)
	res, err := transport.Fetch(ctx, client, source)
	if err != nil {
		return nil, err
	}

	u, _ := url.Parse(source)
	ext := strings.ToLower(filepath.Ext(u.Path))
	switch {
	case res.IsSpreadsheet():
		ext = ".xlsx"
	case res.IsCSV():
		ext = ".csv"
	case res.IsHTML():
		ext = ".html"
	}
	return parse(source, ext, bytes.NewReader(res.Body))
}

func parse(source, ext string, r io.Reader) (*Table, error) {
	var (
		records  [][]string
		trailing int
		err      error
	)
	switch ext {
	case ".xlsx", ".xlsm":
		records, err = ReadXLSX(r, htft.Config.SheetName)
		trailing = htft.Config.TrailingColumns
	case ".csv":
		records, err = ReadCSV(r)
	case ".html", ".htm", "":
		records, err = ReadHTML(r, htft.Config.IDColumn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
	if err != nil {
		return nil, err
	}

	table, err := NewTable(source, records, trailing)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded match log", source, "rows", table.Len())
	return table, nil
}

// NewTable builds a table from raw cell records. The header is the first of
// the leading rows naming the configured ID column, otherwise the first row.
// The last trailing columns are not part of the log and are discarded.
func NewTable(source string, records [][]string, trailing int) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	headerIdx := findHeaderRow(records, htft.Config.IDColumn)
	header := lo.Map(records[headerIdx], func(c string, _ int) string { return strings.TrimSpace(c) })
	width := len(header) - trailing
	if width < 2 {
		return nil, fmt.Errorf("%w: header has %d usable columns", ErrMissingColumn, max(width, 0))
	}
	header = header[:width]

	idIdx := lo.IndexOf(header, htft.Config.IDColumn)
	if idIdx < 0 {
		idIdx = 0
	}
	resIdx := idIdx + 1
	if htft.Config.ResultColumn != "" {
		resIdx = lo.IndexOf(header, htft.Config.ResultColumn)
	}
	if resIdx < 0 || resIdx >= width {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, htft.Config.ResultColumn)
	}

	table := &Table{Source: source, Header: header}
	for _, rec := range records[headerIdx+1:] {
		if len(rec) <= idIdx {
			continue
		}
		id := strings.TrimSpace(rec[idIdx])
		if id == "" {
			continue
		}
		raw := ""
		if resIdx < len(rec) {
			raw = rec[resIdx]
		}
		table.Rows = append(table.Rows, htft.Row{MatchID: id, RawResultText: raw})
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyTable
	}
	return table, nil
}

func findHeaderRow(records [][]string, idColumn string) int {
	for i := 0; i < len(records) && i < headerSearchDepth; i++ {
		if lo.ContainsBy(records[i], func(c string) bool { return strings.TrimSpace(c) == idColumn }) {
			return i
		}
	}
	return 0
}
