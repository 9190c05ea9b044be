package htft

import (
	"github.com/richard-senior/htft/internal/logger"
)

// Analyze runs the scan, threshold and aggregation steps over chronologically
// ordered, cleaned records
func Analyze(records []*MatchRecord, q AnchorQuery) (*Report, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	tally, err := Scan(records, q)
	if err != nil {
		return nil, err
	}

	retained := tally.Retain(q.MinOccurrences)
	logger.Debug("Windows seen", tally.Len(), "retained", retained.Len())
	if retained.Len() == 0 {
		return nil, &InsufficientDataError{
			Kind:     ErrInsufficientPatternOccurrences,
			Found:    tally.Best(),
			Required: q.MinOccurrences,
		}
	}

	report, err := Aggregate(retained, retained.Len())
	if err != nil {
		return nil, err
	}
	report.Query = q
	report.WindowCount = tally.Len()
	return report, nil
}

// AnalyzeTable analyses raw rows as they appear in a match log, most recent
// first. Both anchor labels must occur in the cleaned log.
func AnalyzeTable(rows []Row, q AnchorQuery) (*Report, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	records, stats := CleanRecords(Chronological(rows))
	if err := ObservedLabels(records).Validate(q.FirstHalfScore, q.FullTimeScore); err != nil {
		return nil, err
	}

	report, err := Analyze(records, q)
	if err != nil {
		return nil, err
	}
	report.Source = stats
	logger.Info("Analysis complete", q.String(), "rows", len(report.Rows))
	return report, nil
}
