package htft

import "testing"

// rec builds a cleaned record without going through the extractor
func rec(seq int, id, firstHalf, fullTime string) *MatchRecord {
	return &MatchRecord{Seq: seq, MatchID: id, FirstHalfScore: firstHalf, FullTimeScore: fullTime}
}

// resultText encodes scores the way a match log cell holds them
func resultText(firstHalf, fullTime string) string {
	return fullTime + "\n\n" + firstHalf
}

func withConfig(t *testing.T, mutate func(*HtftConfig)) {
	t.Helper()
	prev := Config
	cfg := DefaultHtftConfig()
	mutate(cfg)
	UpdateConfig(cfg)
	t.Cleanup(func() { UpdateConfig(prev) })
}
