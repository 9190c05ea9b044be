package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/matchlog"
	"github.com/richard-senior/htft/pkg/protocol"
	"github.com/richard-senior/htft/pkg/report"
	"github.com/richard-senior/htft/pkg/util/htft"
)

func intPtr(i int) *int { return &i }

func PatternAnalysisTool() protocol.Tool {
	return protocol.Tool{
		Name: "htft_pattern_analysis",
		Description: `
		Analyses a chronological football match log for a half-time/full-time result pattern.
		Every match whose first-half and full-time scores equal the requested pair is an anchor occurrence.
		Sequences of consecutive anchor occurrences are counted and, for the sequences repeating at least
		minOccurrences times, reports how often both teams scored (AM), at least one side did not score (AN)
		and total goals went over 1.5, 2.5 or 3.5 at each position of the sequence.
		Use htft_score_values first to find the score labels present in the log.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"source": {
					Type:        "string",
					Description: "Path or http(s) URL of the match log (.xlsx, .csv, .html or a .db match store)",
				},
				"firstHalfScore": {
					Type:        "string",
					Description: "First-half score label, eg. 1x0. '9x9' selects results entered as 'other'",
				},
				"fullTimeScore": {
					Type:        "string",
					Description: "Full-time score label, eg. 2x0",
				},
				"minOccurrences": {
					Type:        "integer",
					Description: "Minimum number of anchor occurrences and of sequence repeats (default 50)",
					Minimum:     intPtr(1),
				},
				"windowSize": {
					Type:        "integer",
					Description: "Number of consecutive matches in a sequence (default 1)",
					Minimum:     intPtr(1),
					Maximum:     intPtr(htft.GetMaxWindowSize()),
				},
				"format": {
					Type:        "string",
					Description: "Report format for the text content",
					Enum:        []string{"markdown", "text", "html", "json"},
				},
			},
			Required: []string{"source", "firstHalfScore", "fullTimeScore"},
		},
	}
}

// HandlePatternAnalysisTool runs an analysis. Insufficient data is reported
// as a tool result flagged as an error so the message reaches the user.
func HandlePatternAnalysisTool(params any) (any, error) {
	var req struct {
		matchlog.AnalysisRequest
		Format string `json:"format"`
	}
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.Source == "" {
		return nil, fmt.Errorf("%w: no source parameter was sent", htft.ErrInvalidRequest)
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", htft.ErrInvalidRequest, err)
	}

	logger.Info("Pattern analysis requested", req.Source, req.FirstHalfScore, req.FullTimeScore)
	rep, err := req.Run(context.Background(), nil)
	if err != nil {
		if htft.IsReported(err) {
			return &protocol.ToolResult{
				Content: []protocol.TextContent{{Type: "text", Text: err.Error()}},
				IsError: true,
			}, nil
		}
		return nil, err
	}

	var buf strings.Builder
	if err := report.Render(&buf, rep, format); err != nil {
		return nil, err
	}
	return protocol.NewTextResult(buf.String(), rep), nil
}

func ScoreValuesTool() protocol.Tool {
	return protocol.Tool{
		Name: "htft_score_values",
		Description: `
		Lists the distinct first-half and full-time score labels found in a football match log,
		in the order they first occur (oldest match first). These are the only values
		htft_pattern_analysis accepts for firstHalfScore and fullTimeScore.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"source": {
					Type:        "string",
					Description: "Path or http(s) URL of the match log (.xlsx, .csv, .html or a .db match store)",
				},
			},
			Required: []string{"source"},
		},
	}
}

// ScoreValues is the result of htft_score_values
type ScoreValues struct {
	Source string          `json:"source"`
	Labels *htft.Labels    `json:"labels"`
	Rows   htft.CleanStats `json:"rows"`
}

func HandleScoreValuesTool(params any) (any, error) {
	var req struct {
		Source string `json:"source"`
	}
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.Source == "" {
		return nil, fmt.Errorf("%w: no source parameter was sent", htft.ErrInvalidRequest)
	}

	values, err := LoadScoreValues(context.Background(), req.Source)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("First-half results: %s\nFull-time results: %s",
		strings.Join(values.Labels.FirstHalf, ", "), strings.Join(values.Labels.FullTime, ", "))
	return protocol.NewTextResult(text, values), nil
}

// LoadScoreValues loads source and collects its score labels
func LoadScoreValues(ctx context.Context, source string) (*ScoreValues, error) {
	table, err := matchlog.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return ValuesOf(table), nil
}

// ValuesOf lists the score labels observed in a loaded table
func ValuesOf(table *matchlog.Table) *ScoreValues {
	records, stats := table.Records()
	return &ScoreValues{Source: table.Source, Labels: htft.ObservedLabels(records), Rows: stats}
}

// decodeParams converts the loosely typed tool arguments into v
func decodeParams(params any, v any) error {
	if params == nil {
		return fmt.Errorf("%w: no params given", htft.ErrInvalidRequest)
	}
	var data []byte
	switch p := params.(type) {
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	default:
		var err error
		if data, err = json.Marshal(params); err != nil {
			return fmt.Errorf("failed to marshal params: %v", err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid parameters: %v", htft.ErrInvalidRequest, err)
	}
	return nil
}
