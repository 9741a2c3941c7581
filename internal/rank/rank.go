// Package rank orders candidate records by match score.
package rank

import (
	"sort"

	"github.com/archway-labs/scout-cli/internal/model"
)

// Rank normalizes scores, sorts descending by match score, and truncates to
// targetCount (0 means no truncation). The sort is stable so equal scores
// keep their discovery order, and truncation is the only filtering applied:
// low scores are surfaced, never hidden.
func Rank(records []model.CandidateRecord, targetCount int) []model.CandidateRecord {
	for i := range records {
		records[i].Normalize()
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].MatchScore > records[j].MatchScore
	})

	if targetCount > 0 && len(records) > targetCount {
		records = records[:targetCount]
	}
	return records
}
