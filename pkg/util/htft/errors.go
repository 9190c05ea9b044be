package htft

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoResult marks a match whose result was never recorded ("?" placeholders)
	ErrNoResult = errors.New("no result recorded")
	// ErrMalformedScore marks result text that does not hold two HxA scores
	ErrMalformedScore = errors.New("malformed score")

	ErrInvalidRequest                 = errors.New("invalid request")
	ErrInvalidWindowSize              = errors.New("invalid window size")
	ErrInvalidMinOccurrences          = errors.New("invalid minimum occurrences")
	ErrInsufficientAnchorOccurrences  = errors.New("insufficient anchor occurrences")
	ErrInsufficientPatternOccurrences = errors.New("insufficient pattern occurrences")
	ErrUnknownLabel                   = errors.New("unknown score label")
	ErrInconsistentTotals             = errors.New("report totals are inconsistent")
)

// MalformedScoreError is raised while extracting a single row. It never leaves
// CleanRecords; the row is dropped instead.
type MalformedScoreError struct {
	Raw    string
	Reason string
}

func (e *MalformedScoreError) Error() string {
	return fmt.Sprintf("malformed score %q: %s", e.Raw, e.Reason)
}

func (e *MalformedScoreError) Unwrap() error {
	return ErrMalformedScore
}

// InsufficientDataError is a reported, non-fatal outcome: the data set does not
// support the requested analysis. Kind is ErrInsufficientAnchorOccurrences or
// ErrInsufficientPatternOccurrences.
type InsufficientDataError struct {
	Kind     error
	Found    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	if errors.Is(e.Kind, ErrInsufficientPatternOccurrences) {
		return fmt.Sprintf("no pattern of matches repeated at least %d times (most frequent repeated %d times)", e.Required, e.Found)
	}
	return fmt.Sprintf("insufficient number of matching matches: found %d, need at least %d", e.Found, e.Required)
}

func (e *InsufficientDataError) Unwrap() error {
	return e.Kind
}

// InvalidWindowSizeError is returned for a window size outside 1..Max
type InvalidWindowSizeError struct {
	Size int
	Max  int
}

func (e *InvalidWindowSizeError) Error() string {
	return fmt.Sprintf("window size must be between 1 and %d, got %d", e.Max, e.Size)
}

func (e *InvalidWindowSizeError) Unwrap() error {
	return ErrInvalidWindowSize
}

// UnknownLabelError is returned when a requested score label was never observed
type UnknownLabelError struct {
	Dimension   string
	Label       string
	Suggestions []string
}

func (e *UnknownLabelError) Error() string {
	msg := fmt.Sprintf("%s result %q does not occur in the match log", e.Dimension, e.Label)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *UnknownLabelError) Unwrap() error {
	return ErrUnknownLabel
}

// IsNoResult is true for a match that has no recorded result
func IsNoResult(err error) bool {
	return errors.Is(err, ErrNoResult)
}

// IsReported is true for conditions that must be shown to the user as a
// message rather than treated as a failure
func IsReported(err error) bool {
	return errors.Is(err, ErrInsufficientAnchorOccurrences) || errors.Is(err, ErrInsufficientPatternOccurrences)
}

// IsInvalidInput is true for errors caused by the request rather than the data
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidWindowSize) ||
		errors.Is(err, ErrInvalidMinOccurrences) || errors.Is(err, ErrUnknownLabel)
}
