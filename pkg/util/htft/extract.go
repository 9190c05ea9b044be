package htft

import (
	"errors"
	"strings"

	"github.com/richard-senior/htft/internal/logger"
)

// ExtractResult splits one cell of result text into its first-half and
// full-time scores. The cell holds the full-time block first and the
// first-half block second, separated by a blank line.
func ExtractResult(raw string) (firstHalf, fullTime string, err error) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	if text == Config.Placeholder {
		return "", "", ErrNoResult
	}

	blocks := strings.Split(text, Config.BlockDelimiter)
	if len(blocks) < 2 {
		return "", "", &MalformedScoreError{Raw: raw, Reason: "missing first-half block"}
	}
	fullTime = strings.TrimSpace(blocks[0])
	firstHalf = strings.TrimSpace(blocks[1])

	if strings.Contains(firstHalf, ".") || strings.Contains(fullTime, ".") {
		return "", "", &MalformedScoreError{Raw: raw, Reason: "decimal point in score"}
	}

	if firstHalf == Config.OtherAlias {
		firstHalf = OtherLabel
	}

	if firstHalf == "?" || fullTime == "?" {
		return "", "", ErrNoResult
	}

	if _, err := ParseScorePair(firstHalf); err != nil {
		return "", "", &MalformedScoreError{Raw: raw, Reason: "first-half " + err.Error()}
	}
	if _, err := ParseScorePair(fullTime); err != nil {
		return "", "", &MalformedScoreError{Raw: raw, Reason: "full-time " + err.Error()}
	}
	return firstHalf, fullTime, nil
}

// CleanRecords extracts the scores of every row, silently dropping the rows
// that cannot take part in an analysis. Order is preserved and Seq is the
// row's index in rows.
func CleanRecords(rows []Row) ([]*MatchRecord, CleanStats) {
	stats := CleanStats{Total: len(rows)}
	records := make([]*MatchRecord, 0, len(rows))

	for i, row := range rows {
		rec, err := NewMatchRecord(i, row)
		if err != nil {
			if errors.Is(err, ErrNoResult) {
				stats.NoResult++
			} else {
				stats.Malformed++
			}
			logger.Debug("Dropping row", i, row.MatchID, err)
			continue
		}
		records = append(records, rec)
	}

	stats.Kept = len(records)
	if stats.Kept < stats.Total {
		logger.Info("Dropped rows without usable scores", stats.Total-stats.Kept, "of", stats.Total)
	}
	return records, stats
}
