package htft

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

const maxSuggestions = 3

// Labels holds the score labels observed in a cleaned match log. They are the
// only values an anchor query may select.
type Labels struct {
	FirstHalf []string `json:"firstHalf"`
	FullTime  []string `json:"fullTime"`
}

// ObservedLabels returns the distinct first-half and full-time labels of
// records in first-seen order
func ObservedLabels(records []*MatchRecord) *Labels {
	return &Labels{
		FirstHalf: lo.Uniq(lo.Map(records, func(r *MatchRecord, _ int) string { return r.FirstHalfScore })),
		FullTime:  lo.Uniq(lo.Map(records, func(r *MatchRecord, _ int) string { return r.FullTimeScore })),
	}
}

// Validate checks both labels of an anchor against the observed values
func (l *Labels) Validate(firstHalf, fullTime string) error {
	if !lo.Contains(l.FirstHalf, firstHalf) {
		return &UnknownLabelError{Dimension: "first-half", Label: firstHalf, Suggestions: Suggest(firstHalf, l.FirstHalf)}
	}
	if !lo.Contains(l.FullTime, fullTime) {
		return &UnknownLabelError{Dimension: "full-time", Label: fullTime, Suggestions: Suggest(fullTime, l.FullTime)}
	}
	return nil
}

// Suggest returns up to three candidates resembling label, best first.
// Subsequence matches are preferred; otherwise candidates within a small
// edit distance are returned.
func Suggest(label string, candidates []string) []string {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return nil
	}

	ranks := fuzzy.RankFindFold(needle, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		out := lo.Map(ranks, func(r fuzzy.Rank, _ int) string { return r.Target })
		return lo.Subset(out, 0, maxSuggestions)
	}

	type near struct {
		target   string
		distance int
	}
	var nearby []near
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(needle, strings.ToLower(c)); d <= 2 {
			nearby = append(nearby, near{c, d})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].distance < nearby[j].distance })
	out := lo.Map(nearby, func(n near, _ int) string { return n.target })
	return lo.Subset(out, 0, maxSuggestions)
}
