// Package report renders analysis reports as HTML, Markdown, plain text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/richard-senior/htft/pkg/util/htft"
)

// Format names an output format
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Formats lists every supported format
var Formats = []Format{FormatMarkdown, FormatText, FormatHTML, FormatJSON}

// ParseFormat accepts a format name or a common alias
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "table":
		return FormatText, nil
	case "html", "htm":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Render writes r to w in format f
func Render(w io.Writer, r *htft.Report, f Format) error {
	switch f {
	case FormatHTML:
		return HTML(w, r)
	case FormatMarkdown:
		md, err := Markdown(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md+"\n")
		return err
	case FormatText:
		return Text(w, r)
	case FormatJSON:
		return JSON(w, r)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// JSON writes the report as indented JSON
func JSON(w io.Writer, r *htft.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Summary is the one line description shown above a report
func Summary(r *htft.Report) string {
	return fmt.Sprintf("First half %s, full time %s: %d occurrences, %d distinct sequences of %d, %d repeated at least %d times",
		r.Query.FirstHalfScore, r.Query.FullTimeScore, r.AnchorOccurrences,
		r.WindowCount, r.WindowSize, r.Denominator, r.Query.MinOccurrences)
}
