package htft

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LabelHeader is the header of the first report column
const LabelHeader = "Matches after"

// Cell is a counter together with the denominator it is reported against.
// Count is what sorting and tests use; Display is for presentation only.
type Cell struct {
	Count int
	Total int
}

// Percentage returns Count/Total as a percentage, zero when Total is zero
func (c Cell) Percentage() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Count) / float64(c.Total) * 100
}

// Display renders the cell as "<count>/<total> (<pct>%)"
func (c Cell) Display() string {
	return fmt.Sprintf("%d/%d (%.2f%%)", c.Count, c.Total, c.Percentage())
}

func (c Cell) String() string {
	return c.Display()
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count      int     `json:"count"`
		Total      int     `json:"total"`
		Percentage float64 `json:"percentage"`
		Display    string  `json:"display"`
	}{c.Count, c.Total, c.Percentage(), c.Display()})
}

// Column describes one numeric report column. Position is 1-based and zero
// for a totals column.
type Column struct {
	Outcome  Outcome `json:"-"`
	Position int     `json:"position,omitempty"`
	Header   string  `json:"header"`
}

// ReportRow is the aggregate for one retained window
type ReportRow struct {
	Window    Window
	Label     string
	Count     int
	Positions []PositionStats
	Totals    PositionStats
}

// Total returns the instance-level total for o
func (r *ReportRow) Total(o Outcome) int {
	return r.Totals[o]
}

// Values returns the counters in column order: every position of each
// outcome group followed by the five totals
func (r *ReportRow) Values() []int {
	values := make([]int, 0, len(r.Positions)*int(numOutcomes)+int(numOutcomes))
	for _, o := range Outcomes {
		for _, p := range r.Positions {
			values = append(values, p[o])
		}
	}
	for _, o := range Outcomes {
		values = append(values, r.Totals[o])
	}
	return values
}

// Report is the outcome table of one analysis
type Report struct {
	Query             AnchorQuery  `json:"query"`
	AnchorOccurrences int          `json:"anchorOccurrences"`
	WindowCount       int          `json:"windowCount"`
	Denominator       int          `json:"denominator"`
	WindowSize        int          `json:"windowSize"`
	Source            CleanStats   `json:"source"`
	Rows              []*ReportRow `json:"-"`
}

// Columns lists the numeric columns in display order
func (r *Report) Columns() []Column {
	cols := make([]Column, 0, r.WindowSize*int(numOutcomes)+int(numOutcomes))
	for _, o := range Outcomes {
		for i := 1; i <= r.WindowSize; i++ {
			cols = append(cols, Column{Outcome: o, Position: i, Header: fmt.Sprintf("%d (%s)", i, o)})
		}
	}
	for _, o := range Outcomes {
		cols = append(cols, Column{Outcome: o, Header: "Total " + o.String()})
	}
	return cols
}

// Header returns the label header followed by every column header
func (r *Report) Header() []string {
	header := []string{LabelHeader}
	for _, c := range r.Columns() {
		header = append(header, c.Header)
	}
	return header
}

// Cells returns the numeric cells of row in column order
func (r *Report) Cells(row *ReportRow) []Cell {
	values := row.Values()
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{Count: v, Total: r.Denominator}
	}
	return cells
}

// Records returns the table as display strings, one slice per row
func (r *Report) Records() [][]string {
	records := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := []string{row.Label}
		for _, c := range r.Cells(row) {
			record = append(record, c.Display())
		}
		records = append(records, record)
	}
	return records
}

// RecomputeTotals re-derives every row total by summing its position columns
// and fails if any differs from the total accumulated per instance
func (r *Report) RecomputeTotals() error {
	for _, row := range r.Rows {
		var sums PositionStats
		for _, p := range row.Positions {
			for _, o := range Outcomes {
				sums[o] += p[o]
			}
		}
		for _, o := range Outcomes {
			if sums[o] != row.Totals[o] {
				return fmt.Errorf("%w: %s %s sums to %d, counted %d", ErrInconsistentTotals, row.Label, o, sums[o], row.Totals[o])
			}
		}
		row.Totals = sums
	}
	return nil
}

// Sort orders rows by Total AM, Total AN, Total Over 1.5, Over 2.5 and
// Over 3.5, all descending. Equal rows keep their relative order.
func (r *Report) Sort() {
	sort.SliceStable(r.Rows, func(i, j int) bool {
		a, b := r.Rows[i], r.Rows[j]
		for _, o := range sortPriority {
			if a.Totals[o] != b.Totals[o] {
				return a.Totals[o] > b.Totals[o]
			}
		}
		return false
	})
}

// jsonRow is the serialised form of a ReportRow
type jsonRow struct {
	Label     string            `json:"label"`
	Window    Window            `json:"window"`
	Count     int               `json:"count"`
	Positions []map[string]Cell `json:"positions"`
	Totals    map[string]Cell   `json:"totals"`
}

func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	rows := make([]jsonRow, 0, len(r.Rows))
	for _, row := range r.Rows {
		jr := jsonRow{Label: row.Label, Window: row.Window, Count: row.Count, Totals: map[string]Cell{}}
		for _, p := range row.Positions {
			pos := map[string]Cell{}
			for _, o := range Outcomes {
				pos[o.Key()] = Cell{Count: p[o], Total: r.Denominator}
			}
			jr.Positions = append(jr.Positions, pos)
		}
		for _, o := range Outcomes {
			jr.Totals[o.Key()] = Cell{Count: row.Totals[o], Total: r.Denominator}
		}
		rows = append(rows, jr)
	}
	return json.Marshal(struct {
		*plain
		Header []string  `json:"header"`
		Rows   []jsonRow `json:"rows"`
	}{(*plain)(r), r.Header(), rows})
}
