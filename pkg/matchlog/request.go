package matchlog

import (
	"context"
	"fmt"

	"github.com/richard-senior/htft/pkg/util/htft"
)

// AnalysisRequest is an analysis as requested over one of the front ends.
// Omitted numeric parameters take the configured defaults.
type AnalysisRequest struct {
	Source         string `json:"source,omitempty"`
	FirstHalfScore string `json:"firstHalfScore"`
	FullTimeScore  string `json:"fullTimeScore"`
	MinOccurrences *int   `json:"minOccurrences,omitempty"`
	WindowSize     *int   `json:"windowSize,omitempty"`
}

// Query converts the request to an anchor query
func (r AnalysisRequest) Query() (htft.AnchorQuery, error) {
	if r.FirstHalfScore == "" || r.FullTimeScore == "" {
		return htft.AnchorQuery{}, fmt.Errorf("%w: both firstHalfScore and fullTimeScore are required", htft.ErrInvalidRequest)
	}
	q := htft.NewAnchorQuery(r.FirstHalfScore, r.FullTimeScore)
	if r.MinOccurrences != nil {
		q.MinOccurrences = *r.MinOccurrences
	}
	if r.WindowSize != nil {
		q.WindowSize = *r.WindowSize
	}
	return q, q.Validate()
}

// Run analyses table, or loads the request's source when table is nil
func (r AnalysisRequest) Run(ctx context.Context, table *Table) (*htft.Report, error) {
	q, err := r.Query()
	if err != nil {
		return nil, err
	}
	if table == nil {
		if r.Source == "" {
			return nil, fmt.Errorf("%w: no source given", htft.ErrInvalidRequest)
		}
		if table, err = Load(ctx, r.Source); err != nil {
			return nil, err
		}
	}
	return htft.AnalyzeTable(table.Rows, q)
}
