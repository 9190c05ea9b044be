package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/richard-senior/htft/pkg/matchlog"
	"github.com/richard-senior/htft/pkg/util/htft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTable has six 0x0 / 1x0 anchors, most recent first, alternating
// between two fixtures, plus one unplayed match
func testTable(t *testing.T) *matchlog.Table {
	t.Helper()
	records := [][]string{{"Partidas", "Resultado"}}
	for i := 0; i < 6; i++ {
		fixture := "North - South"
		if i%2 == 1 {
			fixture = "South - North"
		}
		records = append(records, []string{fixture, "1x0\n\n0x0"})
	}
	records = append(records, []string{"East - West", "?\n\n?"})
	table, err := matchlog.NewTable("memory", records, 0)
	require.NoError(t, err)
	return table
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

func TestStatus(t *testing.T) {
	h := Handler([]string{"*"}, NewAPIHandler(testTable(t), ""))

	rec := do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode(t, rec)
	assert.Equal(t, "ok", doc["status"])
	assert.Equal(t, true, doc["loaded"])
	assert.Equal(t, "memory", doc["source"])
}

func TestValuesFromSnapshot(t *testing.T) {
	h := Handler([]string{"*"}, NewAPIHandler(testTable(t), ""))

	rec := do(t, h, http.MethodGet, "/values", "")
	require.Equal(t, http.StatusOK, rec.Code)
	labels := decode(t, rec)["labels"].(map[string]any)
	assert.Equal(t, []any{"0x0"}, labels["firstHalf"])
	assert.Equal(t, []any{"1x0"}, labels["fullTime"])
}

func TestValuesWithoutTable(t *testing.T) {
	h := Handler([]string{"*"}, NewAPIHandler(nil, ""))

	rec := do(t, h, http.MethodGet, "/values", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysis(t *testing.T) {
	h := Handler([]string{"*"}, NewAPIHandler(testTable(t), ""))

	rec := do(t, h, http.MethodPost, "/analysis",
		`{"firstHalfScore":"0x0","fullTimeScore":"1x0","minOccurrences":2,"windowSize":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	doc := decode(t, rec)
	assert.EqualValues(t, 6, doc["anchorOccurrences"])
	assert.EqualValues(t, 2, doc["denominator"])
	rows := doc["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "(South - North, North - South)", rows[0].(map[string]any)["label"])
}

func TestAnalysisFormats(t *testing.T) {
	h := Handler([]string{"*"}, NewAPIHandler(testTable(t), ""))
	body := `{"firstHalfScore":"0x0","fullTimeScore":"1x0","minOccurrences":3}`

	rec := do(t, h, http.MethodPost, "/analysis?format=html", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table")

	rec = do(t, h, http.MethodPost, "/analysis?format=text", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "(North - South)")

	rec = do(t, h, http.MethodPost, "/analysis?format=pdf", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisErrorStatus(t *testing.T) {
	h := Handler([]string{"*"}, NewAPIHandler(testTable(t), ""))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing labels", `{"firstHalfScore":"0x0"}`, http.StatusBadRequest},
		{"window too large", `{"firstHalfScore":"0x0","fullTimeScore":"1x0","windowSize":6}`, http.StatusBadRequest},
		{"unknown label", `{"firstHalfScore":"0x0","fullTimeScore":"1x1"}`, http.StatusBadRequest},
		{"too few anchors", `{"firstHalfScore":"0x0","fullTimeScore":"1x0"}`, http.StatusUnprocessableEntity},
		{"no repeats", `{"firstHalfScore":"0x0","fullTimeScore":"1x0","minOccurrences":4}`, http.StatusUnprocessableEntity},
		{"source without data dir", `{"source":"log.pdf","firstHalfScore":"0x0","fullTimeScore":"1x0"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/analysis", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestInsufficientDataCarriesCounts(t *testing.T) {
	h := Handler([]string{"*"}, NewAPIHandler(testTable(t), ""))

	rec := do(t, h, http.MethodPost, "/analysis", `{"firstHalfScore":"0x0","fullTimeScore":"1x0"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	doc := decode(t, rec)
	assert.EqualValues(t, 6, doc["found"])
	assert.EqualValues(t, 50, doc["required"])
}

func TestCORS(t *testing.T) {
	h := Handler([]string{"https://example.org"}, NewAPIHandler(testTable(t), ""))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://elsewhere.org")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	h := Handler(nil, NewAPIHandler(testTable(t), ""))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://elsewhere.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// dataDir holds log.db, imported from testTable
func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := matchlog.Import(testTable(t), filepath.Join(dir, "log.db"))
	require.NoError(t, err)
	return dir
}

func TestRequestSourcesStayInDataDir(t *testing.T) {
	dir := dataDir(t)
	outside := filepath.Join(t.TempDir(), "made", "here.db")
	h := Handler(nil, NewAPIHandler(testTable(t), dir))

	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"startup source", "memory", http.StatusOK},
		{"relative", "log.db", http.StatusOK},
		{"absolute inside", filepath.Join(dir, "log.db"), http.StatusOK},
		{"missing inside", "none.db", http.StatusNotFound},
		{"unsupported inside", "log.pdf", http.StatusBadRequest},
		{"outside", outside, http.StatusForbidden},
		{"parent", "../log.db", http.StatusForbidden},
		{"system file", "/etc/passwd", http.StatusForbidden},
		{"url", "http://127.0.0.1:1/log.html", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/values?source="+url.QueryEscape(tt.source), "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			body := fmt.Sprintf(`{"source":%q,"firstHalfScore":"0x0","fullTimeScore":"1x0","minOccurrences":3}`, tt.source)
			rec = do(t, h, http.MethodPost, "/analysis", body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	_, err := os.Stat(filepath.Dir(outside))
	assert.True(t, os.IsNotExist(err), "no file may be created outside the data dir")
	_, err = os.Stat(filepath.Join(dir, "none.db"))
	assert.True(t, os.IsNotExist(err), "a missing store must not be created")
}

func TestStartupSourceOnlyWithoutDataDir(t *testing.T) {
	h := Handler(nil, NewAPIHandler(testTable(t), ""))

	rec := do(t, h, http.MethodGet, "/values?source=memory", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/values?source="+url.QueryEscape(filepath.Join(t.TempDir(), "x.db")), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConcurrentStoreRequests(t *testing.T) {
	dir := dataDir(t)
	other := &matchlog.Table{Source: "other", Rows: testTable(t).Rows[:2]}
	_, err := matchlog.Import(other, filepath.Join(dir, "other.db"))
	require.NoError(t, err)
	h := Handler(nil, NewAPIHandler(nil, dir))

	var wg sync.WaitGroup
	codes := make(chan int, 40)
	for i := 0; i < 40; i++ {
		source := []string{"log.db", "other.db"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, h, http.MethodGet, "/values?source="+source, "")
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusCode(fmt.Errorf("%w: x", matchlog.ErrSourceNotAllowed)))
	assert.Equal(t, http.StatusNotFound, StatusCode(fmt.Errorf("%w: x", htft.ErrStoreNotFound)))
	assert.Equal(t, http.StatusNotFound, StatusCode(fmt.Errorf("open: %w", os.ErrNotExist)))
	assert.Equal(t, http.StatusBadRequest, StatusCode(fmt.Errorf("%w: x", matchlog.ErrUnsupportedSource)))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(fmt.Errorf("boom")))
}
