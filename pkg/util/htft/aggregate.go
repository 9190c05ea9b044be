package htft

import (
	"fmt"

	"github.com/richard-senior/htft/internal/logger"
)

// Outcome is one of the five conditions counted per window position.
// The declaration order is the column order of a report.
type Outcome int

const (
	Over15 Outcome = iota
	Over25
	Over35
	BothScored
	NeitherScored
	numOutcomes
)

// Outcomes lists every outcome in column order
var Outcomes = [numOutcomes]Outcome{Over15, Over25, Over35, BothScored, NeitherScored}

// sortPriority is the order in which row totals decide the ranking
var sortPriority = [numOutcomes]Outcome{BothScored, NeitherScored, Over15, Over25, Over35}

func (o Outcome) String() string {
	switch o {
	case Over15:
		return "Over 1.5"
	case Over25:
		return "Over 2.5"
	case Over35:
		return "Over 3.5"
	case BothScored:
		return "AM"
	case NeitherScored:
		return "AN"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Key is the snake case name used in JSON output
func (o Outcome) Key() string {
	switch o {
	case Over15:
		return "over15"
	case Over25:
		return "over25"
	case Over35:
		return "over35"
	case BothScored:
		return "bothScored"
	case NeitherScored:
		return "neitherScored"
	}
	return ""
}

// PositionStats holds the five counters of one window position
type PositionStats [numOutcomes]int

// found flags of a single window instance
type instanceFlags [numOutcomes]bool

// Aggregate builds the report for every retained window. denominator is the
// value every percentage is taken against, normally retained.Len().
func Aggregate(retained *WindowTally, denominator int) (*Report, error) {
	if retained == nil || retained.Len() == 0 {
		return nil, &InsufficientDataError{Kind: ErrInsufficientPatternOccurrences}
	}
	if denominator <= 0 {
		denominator = retained.Len()
	}

	windowSize := len(retained.Entries()[0].Window)
	report := &Report{
		AnchorOccurrences: retained.Anchors,
		WindowSize:        windowSize,
		Denominator:       denominator,
		Rows:              make([]*ReportRow, 0, retained.Len()),
	}

	for _, entry := range retained.Entries() {
		row, err := aggregateWindow(entry, windowSize)
		if err != nil {
			return nil, err
		}
		report.Rows = append(report.Rows, row)
	}

	if err := report.RecomputeTotals(); err != nil {
		return nil, err
	}
	report.Sort()
	logger.Debug("Aggregated", len(report.Rows), "windows of size", windowSize)
	return report, nil
}

// aggregateWindow walks every instance of one window. Each instance contributes
// at most one AM and one AN count, and at most one of the over thresholds,
// all at the first position where the condition holds.
func aggregateWindow(entry *WindowEntry, windowSize int) (*ReportRow, error) {
	row := &ReportRow{
		Window:    entry.Window,
		Label:     entry.Window.Label(),
		Count:     entry.Count,
		Positions: make([]PositionStats, windowSize),
	}

	for _, instance := range entry.Instances {
		if len(instance) != windowSize {
			return nil, fmt.Errorf("window %s has an instance of length %d, expected %d", row.Label, len(instance), windowSize)
		}
		var found instanceFlags

		for i, rec := range instance {
			score, err := rec.FullTime()
			if err != nil {
				return nil, fmt.Errorf("window %s position %d: %w", row.Label, i+1, err)
			}
			total := float64(score.Total())

			if !found[BothScored] && score.BothScored() {
				row.Positions[i][BothScored]++
				found[BothScored] = true

				if total > Config.Over1p5GoalsThreshold && total < Config.Over2p5GoalsThreshold {
					row.Positions[i][Over15]++
					found[Over15] = true
				}
				if total > Config.Over2p5GoalsThreshold && !found[Over15] && total < Config.Over3p5GoalsThreshold {
					row.Positions[i][Over25]++
					found[Over25] = true
				}
				if total > Config.Over3p5GoalsThreshold && !found[Over15] && !found[Over25] {
					row.Positions[i][Over35]++
					found[Over35] = true
				}
			}

			if !found[NeitherScored] && score.OneSided() {
				row.Positions[i][NeitherScored]++
				found[NeitherScored] = true
			}
		}

		for _, o := range Outcomes {
			if found[o] {
				row.Totals[o]++
			}
		}
	}
	return row, nil
}
