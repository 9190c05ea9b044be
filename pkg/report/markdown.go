package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/util/htft"
)

var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown renders the report HTML and converts it to a Markdown table
func Markdown(r *htft.Report) (string, error) {
	var buf bytes.Buffer
	if err := HTML(&buf, r); err != nil {
		return "", err
	}

	md, err := markdownConverter.ConvertString(buf.String())
	if err != nil {
		logger.Error("Failed to convert HTML to Markdown:", err)
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
