package htft

import (
	"fmt"
	"strconv"
	"strings"
)

// OtherLabel is the categorical first-half label for results entered as "oth".
// It looks like a score but is only ever compared as a string.
const OtherLabel = "9x9"

// ScorePair is a parsed "<home>x<away>" score
type ScorePair struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// ParseScorePair parses a score of the exact form "<home>x<away>" where both
// sides are non-negative integers without sign or surrounding space
func ParseScorePair(s string) (ScorePair, error) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return ScorePair{}, &MalformedScoreError{Raw: s, Reason: "expected <home>x<away>"}
	}
	home, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return ScorePair{}, &MalformedScoreError{Raw: s, Reason: "home goals are not a non-negative integer"}
	}
	away, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return ScorePair{}, &MalformedScoreError{Raw: s, Reason: "away goals are not a non-negative integer"}
	}
	return ScorePair{Home: int(home), Away: int(away)}, nil
}

// Total returns the number of goals in the match
func (p ScorePair) Total() int {
	return p.Home + p.Away
}

// BothScored is the AM condition: both sides scored at least once
func (p ScorePair) BothScored() bool {
	return p.Home >= 1 && p.Away >= 1
}

// OneSided is the AN condition: at least one side did not score
func (p ScorePair) OneSided() bool {
	return p.Home < 1 || p.Away < 1
}

func (p ScorePair) String() string {
	return fmt.Sprintf("%dx%d", p.Home, p.Away)
}
