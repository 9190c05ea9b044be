package matchlog

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReadHTML returns the cells of the first table whose cells name idColumn,
// or of the first table in the document. Line breaks inside a cell become
// newlines.
func ReadHTML(r io.Reader, idColumn string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, ErrEmptyTable
	}
	table := tables.First()
	tables.EachWithBreak(func(_ int, t *goquery.Selection) bool {
		named := t.Find("th, td").FilterFunction(func(_ int, c *goquery.Selection) bool {
			return strings.TrimSpace(c.Text()) == idColumn
		})
		if named.Length() > 0 {
			table = t
			return false
		}
		return true
	})

	table.Find("br").ReplaceWithHtml("\n")

	var records [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var record []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			record = append(record, cellText(cell))
		})
		if len(record) > 0 {
			records = append(records, record)
		}
	})
	return records, nil
}

// cellText trims each line of a cell and the cell as a whole, keeping blank
// lines between score blocks
func cellText(cell *goquery.Selection) string {
	lines := strings.Split(cell.Text(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
