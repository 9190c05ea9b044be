package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/matchlog"
	"github.com/richard-senior/htft/pkg/tools"
	"github.com/richard-senior/htft/pkg/util/htft"
)

// Version is reported in the metadata of every response
const Version = "1.0.0"

// Queries understood by ProcessRequest
const (
	QueryAnalyze = "analyze"
	QueryValues  = "values"
)

// Request is a single batch request. Query selects what to do; the remaining
// fields are those of an analysis request.
type Request struct {
	Query     string `json:"query"`
	RequestID string `json:"requestId"`
	matchlog.AnalysisRequest
}

// Response is the answer to a successful request
type Response struct {
	RequestID string         `json:"requestId,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// createErrorResponse creates an error response
func createErrorResponse(code, message, requestID string) ([]byte, error) {
	var response ErrorResponse
	response.RequestID = requestID
	response.Error.Code = code
	response.Error.Message = message

	return json.MarshalIndent(response, "", "  ")
}

// errorCode classifies err for an error response
func errorCode(err error) string {
	switch {
	case errors.Is(err, htft.ErrInsufficientAnchorOccurrences), errors.Is(err, htft.ErrInsufficientPatternOccurrences):
		return "insufficient_data"
	case errors.Is(err, htft.ErrUnknownLabel):
		return "unknown_label"
	case htft.IsInvalidInput(err):
		return "invalid_request"
	}
	return "analysis_error"
}

// ProcessRequest processes one JSON request and returns the JSON response.
// Failures of the request itself are reported in the returned document; the
// error is only set when no response could be produced.
func ProcessRequest(input []byte) ([]byte, error) {
	return ProcessRequestContext(context.Background(), input)
}

// ProcessRequestContext is ProcessRequest with a context for loading the source
func ProcessRequestContext(ctx context.Context, input []byte) ([]byte, error) {
	var request Request
	if err := json.Unmarshal(input, &request); err != nil {
		logger.Error("Failed to parse input JSON", err)
		return createErrorResponse("invalid_request", fmt.Sprintf("Invalid JSON: %v", err), request.RequestID)
	}

	logger.Info("Processing request", request.Query)

	var result map[string]any
	var err error
	switch request.Query {
	case QueryAnalyze:
		result, err = analyze(ctx, request)
	case QueryValues:
		result, err = values(ctx, request)
	default:
		return createErrorResponse("invalid_request",
			fmt.Sprintf("unknown query %q, expected %q or %q", request.Query, QueryAnalyze, QueryValues), request.RequestID)
	}
	if err != nil {
		logger.Warn("Request failed", request.RequestID, err)
		return createErrorResponse(errorCode(err), err.Error(), request.RequestID)
	}

	response := Response{
		RequestID: request.RequestID,
		Context:   result,
		Metadata: map[string]any{
			"version": Version,
			"query":   request.Query,
		},
	}
	jsonResult, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal response to JSON", err)
		return createErrorResponse("internal_error", "Failed to create response", request.RequestID)
	}
	return jsonResult, nil
}

func analyze(ctx context.Context, request Request) (map[string]any, error) {
	rep, err := request.AnalysisRequest.Run(ctx, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{"report": rep}, nil
}

func values(ctx context.Context, request Request) (map[string]any, error) {
	if request.Source == "" {
		return nil, fmt.Errorf("%w: no source given", htft.ErrInvalidRequest)
	}
	v, err := tools.LoadScoreValues(ctx, request.Source)
	if err != nil {
		return nil, err
	}
	return map[string]any{"values": v}, nil
}
