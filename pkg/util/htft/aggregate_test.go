package htft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tallyOf builds a tally whose instances carry the given full-time scores.
// Every instance of a window shares the window's identifiers.
func tallyOf(windows map[string][][]string, order ...string) *WindowTally {
	tally := NewWindowTally()
	seq := 0
	for _, id := range order {
		for _, scores := range windows[id] {
			instance := make([]*MatchRecord, len(scores))
			for i, s := range scores {
				instance[i] = rec(seq, id, "1x0", s)
				seq++
			}
			tally.Add(instance)
		}
	}
	tally.Anchors = seq
	return tally
}

func singleRow(t *testing.T, scores ...[]string) *ReportRow {
	t.Helper()
	report, err := Aggregate(tallyOf(map[string][][]string{"A": scores}, "A"), 0)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	return report.Rows[0]
}

func TestAggregateOver35AfterOneSided(t *testing.T) {
	row := singleRow(t, []string{"0x0", "2x2"})

	assert.Equal(t, 1, row.Positions[0][NeitherScored])
	assert.Equal(t, 1, row.Positions[1][BothScored])
	assert.Equal(t, 1, row.Positions[1][Over35])
	assert.Equal(t, 0, row.Positions[1][Over15])
	assert.Equal(t, 0, row.Positions[1][Over25])
}

func TestAggregateOver15BlocksLaterOver35(t *testing.T) {
	row := singleRow(t, []string{"1x1", "2x2"})

	assert.Equal(t, 1, row.Positions[0][BothScored])
	assert.Equal(t, 1, row.Positions[0][Over15])
	assert.Equal(t, 0, row.Positions[1][BothScored])
	assert.Equal(t, 0, row.Positions[1][Over35])
	assert.Equal(t, 0, row.Totals[Over35])
}

func TestAggregateThresholdBands(t *testing.T) {
	tests := []struct {
		score   string
		outcome Outcome
		fires   bool
	}{
		{"1x1", Over15, true},
		{"2x1", Over25, true},
		{"3x1", Over35, true},
		{"5x4", Over35, true},
		{"1x1", Over25, false},
		{"2x1", Over35, false},
	}
	for _, tt := range tests {
		t.Run(tt.score+" "+tt.outcome.String(), func(t *testing.T) {
			row := singleRow(t, []string{tt.score})
			assert.Equal(t, tt.fires, row.Positions[0][tt.outcome] == 1)
		})
	}
}

func TestAggregateOneSidedNeverCountsOver(t *testing.T) {
	row := singleRow(t, []string{"5x0"})

	assert.Equal(t, 1, row.Totals[NeitherScored])
	assert.Equal(t, 0, row.Totals[BothScored])
	assert.Equal(t, 0, row.Totals[Over15]+row.Totals[Over25]+row.Totals[Over35])
}

func TestAggregateCountsOncePerInstance(t *testing.T) {
	row := singleRow(t,
		[]string{"1x1", "2x1", "0x1"},
		[]string{"0x0", "1x0", "3x3"},
	)

	assert.Equal(t, 2, row.Count)
	assert.Equal(t, PositionStats{Over15: 1, BothScored: 1, NeitherScored: 1}, row.Positions[0])
	assert.Equal(t, PositionStats{}, row.Positions[1])
	assert.Equal(t, PositionStats{Over35: 1, BothScored: 1, NeitherScored: 1}, row.Positions[2])
	assert.Equal(t, 2, row.Totals[BothScored])
	assert.Equal(t, 2, row.Totals[NeitherScored])
	assert.Equal(t, 1, row.Totals[Over15])
	assert.Equal(t, 1, row.Totals[Over35])
}

func TestAggregateOverNeverExceedsBothScored(t *testing.T) {
	scores := [][]string{
		{"1x1", "2x2", "3x0"},
		{"2x2", "1x1", "0x0"},
		{"0x1", "2x1", "4x4"},
		{"0x0", "0x0", "0x0"},
		{"9x9", "1x2", "1x0"},
	}
	row := singleRow(t, scores...)

	for i, p := range row.Positions {
		assert.LessOrEqual(t, p[Over15]+p[Over25]+p[Over35], p[BothScored], "position %d", i+1)
	}
	assert.LessOrEqual(t, row.Totals[Over15]+row.Totals[Over25]+row.Totals[Over35], len(scores))
}

func TestAggregateEmptyTally(t *testing.T) {
	_, err := Aggregate(NewWindowTally(), 0)
	assert.ErrorIs(t, err, ErrInsufficientPatternOccurrences)
}

func TestAggregateDenominatorDefaultsToRetainedKeys(t *testing.T) {
	tally := tallyOf(map[string][][]string{
		"A": {{"1x1"}, {"0x0"}},
		"B": {{"2x1"}},
		"C": {{"0x3"}},
	}, "A", "B", "C")

	report, err := Aggregate(tally, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Denominator)
	assert.Equal(t, 1, report.WindowSize)
	assert.Equal(t, 4, report.AnchorOccurrences)
}

func TestAggregateSortsByTotals(t *testing.T) {
	tally := tallyOf(map[string][][]string{
		"onesided": {{"1x0"}, {"2x0"}},
		"both":     {{"1x1"}},
		"both2":    {{"2x2"}, {"1x1"}},
		"tie":      {{"1x1"}},
	}, "onesided", "both", "both2", "tie")

	report, err := Aggregate(tally, 0)
	require.NoError(t, err)

	labels := make([]string, len(report.Rows))
	for i, r := range report.Rows {
		labels[i] = r.Label
	}
	// "both" and "tie" are equal on every key and keep their order
	assert.Equal(t, []string{"(both2)", "(both)", "(tie)", "(onesided)"}, labels)
}

func TestOutcomeNames(t *testing.T) {
	assert.Equal(t, "AM", BothScored.String())
	assert.Equal(t, "AN", NeitherScored.String())
	assert.Equal(t, "Over 2.5", Over25.String())
	assert.Equal(t, "over35", Over35.Key())
}
