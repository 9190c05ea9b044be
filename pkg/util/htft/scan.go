package htft

import (
	"fmt"
	"strings"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/samber/lo"
)

// AnchorQuery selects the half-time/full-time combination to look for and
// how windows following it are counted
type AnchorQuery struct {
	FirstHalfScore string `json:"firstHalfScore"`
	FullTimeScore  string `json:"fullTimeScore"`
	MinOccurrences int    `json:"minOccurrences"`
	WindowSize     int    `json:"windowSize"`
}

// NewAnchorQuery returns a query for the given labels using the configured defaults
func NewAnchorQuery(firstHalf, fullTime string) AnchorQuery {
	return AnchorQuery{
		FirstHalfScore: firstHalf,
		FullTimeScore:  fullTime,
		MinOccurrences: Config.DefaultMinOccurrences,
		WindowSize:     Config.DefaultWindowSize,
	}
}

// Validate checks the numeric parameters of the query
func (q AnchorQuery) Validate() error {
	if limit := GetMaxWindowSize(); q.WindowSize < 1 || q.WindowSize > limit {
		return &InvalidWindowSizeError{Size: q.WindowSize, Max: limit}
	}
	if q.MinOccurrences < 1 {
		return fmt.Errorf("%w: must be a positive integer, got %d", ErrInvalidMinOccurrences, q.MinOccurrences)
	}
	return nil
}

// Matches reports whether r is an anchor occurrence
func (q AnchorQuery) Matches(r *MatchRecord) bool {
	return r.FirstHalfScore == q.FirstHalfScore && r.FullTimeScore == q.FullTimeScore
}

func (q AnchorQuery) String() string {
	return fmt.Sprintf("HT %s / FT %s (min %d, window %d)", q.FirstHalfScore, q.FullTimeScore, q.MinOccurrences, q.WindowSize)
}

// Window is an ordered sequence of match identifiers. Order matters and the
// same identifier may appear more than once.
type Window []string

// Key is an unambiguous map key for the window
func (w Window) Key() string {
	return strings.Join(w, "\x1f")
}

// Label is the display form of the window
func (w Window) Label() string {
	return "(" + strings.Join(w, ", ") + ")"
}

// Equal compares two windows position by position
func (w Window) Equal(o Window) bool {
	if len(w) != len(o) {
		return false
	}
	for i := range w {
		if w[i] != o[i] {
			return false
		}
	}
	return true
}

// WindowEntry is one distinct window with every concrete occurrence of it
type WindowEntry struct {
	Window    Window
	Count     int
	Instances [][]*MatchRecord
}

// WindowTally counts distinct windows in the order they were first seen
type WindowTally struct {
	// number of anchor occurrences the tally was built from
	Anchors int

	entries []*WindowEntry
	index   map[string]int
}

// NewWindowTally returns an empty tally
func NewWindowTally() *WindowTally {
	return &WindowTally{index: make(map[string]int)}
}

// Add records one occurrence of the window formed by instance
func (t *WindowTally) Add(instance []*MatchRecord) {
	w := Window(lo.Map(instance, func(r *MatchRecord, _ int) string { return r.MatchID }))
	owned := append([]*MatchRecord(nil), instance...)

	key := w.Key()
	if i, ok := t.index[key]; ok {
		t.entries[i].Count++
		t.entries[i].Instances = append(t.entries[i].Instances, owned)
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, &WindowEntry{Window: w, Count: 1, Instances: [][]*MatchRecord{owned}})
}

// Len is the number of distinct windows
func (t *WindowTally) Len() int {
	return len(t.entries)
}

// Entries returns the distinct windows in first-seen order
func (t *WindowTally) Entries() []*WindowEntry {
	return t.entries
}

// Count returns how often w was seen, zero if never
func (t *WindowTally) Count(w Window) int {
	if i, ok := t.index[w.Key()]; ok {
		return t.entries[i].Count
	}
	return 0
}

// Counts returns window label to repeat count
func (t *WindowTally) Counts() map[string]int {
	return lo.SliceToMap(t.entries, func(e *WindowEntry) (string, int) { return e.Window.Label(), e.Count })
}

// Best is the highest repeat count in the tally
func (t *WindowTally) Best() int {
	best := 0
	for _, e := range t.entries {
		best = max(best, e.Count)
	}
	return best
}

// Retain returns a new tally holding only windows seen at least min times
func (t *WindowTally) Retain(min int) *WindowTally {
	out := NewWindowTally()
	out.Anchors = t.Anchors
	for _, e := range t.entries {
		if e.Count >= min {
			out.index[e.Window.Key()] = len(out.entries)
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// FilterAnchor keeps the anchor occurrences of q, preserving order
func FilterAnchor(records []*MatchRecord, q AnchorQuery) []*MatchRecord {
	return lo.Filter(records, func(r *MatchRecord, _ int) bool { return q.Matches(r) })
}

// Scan finds every anchor occurrence in the chronologically ordered records
// and tallies the windows of consecutive anchor occurrences. Windows are drawn
// from the filtered sequence itself, not from all matches that follow an anchor.
func Scan(records []*MatchRecord, q AnchorQuery) (*WindowTally, error) {
	if limit := GetMaxWindowSize(); q.WindowSize < 1 || q.WindowSize > limit {
		return nil, &InvalidWindowSizeError{Size: q.WindowSize, Max: limit}
	}

	anchors := FilterAnchor(records, q)
	logger.Debug("Anchor occurrences for", q.String(), len(anchors))
	if len(anchors) < q.MinOccurrences {
		return nil, &InsufficientDataError{
			Kind:     ErrInsufficientAnchorOccurrences,
			Found:    len(anchors),
			Required: q.MinOccurrences,
		}
	}

	tally := NewWindowTally()
	tally.Anchors = len(anchors)
	for i := 0; i+q.WindowSize <= len(anchors); i++ {
		tally.Add(anchors[i : i+q.WindowSize])
	}
	return tally, nil
}
