package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Partidas,Resultado\n")
	for i := 0; i < 4; i++ {
		b.WriteString(fmt.Sprintf("Club %c - Rival,\"3x1\n\n1x1\"\n", 'A'+i%2))
	}
	path := filepath.Join(t.TempDir(), "log.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func process(t *testing.T, request map[string]any) map[string]any {
	t.Helper()
	input, err := json.Marshal(request)
	require.NoError(t, err)
	out, err := ProcessRequest(input)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	return doc
}

func TestProcessAnalyze(t *testing.T) {
	doc := process(t, map[string]any{
		"query":          "analyze",
		"requestId":      "r1",
		"source":         writeCSV(t),
		"firstHalfScore": "1x1",
		"fullTimeScore":  "3x1",
		"minOccurrences": 2,
	})
	assert.Equal(t, "r1", doc["requestId"])
	assert.NotContains(t, doc, "error")

	report := doc["context"].(map[string]any)["report"].(map[string]any)
	assert.EqualValues(t, 4, report["anchorOccurrences"])
	assert.EqualValues(t, 2, report["denominator"])

	rows := report["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	totals := first["totals"].(map[string]any)
	assert.EqualValues(t, 2, totals["bothScored"].(map[string]any)["count"])
	assert.EqualValues(t, 2, totals["over35"].(map[string]any)["count"])
}

func TestProcessValues(t *testing.T) {
	doc := process(t, map[string]any{"query": "values", "source": writeCSV(t)})

	values := doc["context"].(map[string]any)["values"].(map[string]any)
	labels := values["labels"].(map[string]any)
	assert.Equal(t, []any{"1x1"}, labels["firstHalf"])
	assert.Equal(t, []any{"3x1"}, labels["fullTime"])
}

func TestProcessErrors(t *testing.T) {
	source := writeCSV(t)
	tests := []struct {
		name    string
		request map[string]any
		code    string
	}{
		{"unknown query", map[string]any{"query": "predict"}, "invalid_request"},
		{"missing labels", map[string]any{"query": "analyze", "source": source}, "invalid_request"},
		{"values without source", map[string]any{"query": "values"}, "invalid_request"},
		{"too few anchors", map[string]any{"query": "analyze", "source": source, "firstHalfScore": "1x1", "fullTimeScore": "3x1"}, "insufficient_data"},
		{"unknown label", map[string]any{"query": "analyze", "source": source, "firstHalfScore": "1x1", "fullTimeScore": "3x2"}, "unknown_label"},
		{"missing file", map[string]any{"query": "analyze", "source": filepath.Join(t.TempDir(), "none.csv"), "firstHalfScore": "1x1", "fullTimeScore": "3x1"}, "analysis_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := process(t, tt.request)
			errDoc, ok := doc["error"].(map[string]any)
			require.True(t, ok, "expected an error response")
			assert.Equal(t, tt.code, errDoc["code"])
			assert.NotEmpty(t, errDoc["message"])
		})
	}
}

func TestProcessInvalidJSON(t *testing.T) {
	out, err := ProcessRequest([]byte("{"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"invalid_request"`)
}
