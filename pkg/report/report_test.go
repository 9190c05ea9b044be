package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/richard-senior/htft/pkg/util/htft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(t *testing.T) *htft.Report {
	t.Helper()
	ids := []string{"A", "B", "A", "B", "A"}
	scores := []string{"1x1", "0x0", "2x2", "3x0", "2x1"}

	tally := htft.NewWindowTally()
	for i, id := range ids {
		tally.Add([]*htft.MatchRecord{{Seq: i, MatchID: id, FirstHalfScore: "1x0", FullTimeScore: scores[i]}})
	}
	report, err := htft.Aggregate(tally, 0)
	require.NoError(t, err)
	report.Query = htft.AnchorQuery{FirstHalfScore: "1x0", FullTimeScore: "2x0", MinOccurrences: 1, WindowSize: 1}
	report.WindowCount = tally.Len()
	return report
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "MD": FormatMarkdown, "txt": FormatText, "html": FormatHTML, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestHTML(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, HTML(buf, sampleReport(t)))

	out := buf.String()
	assert.Contains(t, out, "<th>Matches after</th>")
	assert.Contains(t, out, "<th>Total AM</th>")
	assert.Contains(t, out, "<td>(A)</td>")
	assert.Contains(t, out, `data-count="3"`)
	assert.Contains(t, out, "3/2 (150.00%)")
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(sampleReport(t))
	require.NoError(t, err)

	assert.Contains(t, md, "Analysis result")
	assert.Contains(t, md, "Matches after")
	assert.Contains(t, md, "(A)")
	assert.Contains(t, md, "(B)")
	assert.Contains(t, md, "|")
	assert.NotContains(t, md, "<td>")
}

func TestText(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Text(buf, sampleReport(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "First half 1x0")
	assert.True(t, strings.HasPrefix(lines[1], "Matches after"))
	assert.True(t, strings.HasPrefix(lines[2], "(A)"))
	assert.True(t, strings.HasPrefix(lines[3], "(B)"))
}

func TestRenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Render(buf, sampleReport(t), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 2, decoded["denominator"])
	assert.Len(t, decoded["rows"], 2)
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, sampleReport(t), Format("pdf")))
}
