package learning

import (
	"fmt"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

// evaluation gathers everything the candidate preconditions inspect, computed
// once per document before ranking.
type evaluation struct {
	doc        policy.Document
	chunks     []policy.Chunk
	hashes     []string
	skeleton   string
	versionKey string

	templateID    string
	templateScore float64

	prior        *policy.DocumentVersion
	versionScore float64

	cachedChunks int
}

// candidate binds a strategy to its applicability test.  Candidates are
// evaluated in rank order; the first applicable one is selected and the
// rest form the fallback ladder.
type candidate struct {
	strategy   policy.Strategy
	applicable func(*evaluation) (bool, float64, string)
}

// rankedCandidates returns the cost ladder from cheapest to most expensive.
// FULL is last and unconditionally applicable, so selection always
// succeeds.
func rankedCandidates(templateThreshold, incrementalThreshold float64) []candidate {
	return []candidate{
		{
			strategy: policy.StrategyTemplate,
			applicable: func(ev *evaluation) (bool, float64, string) {
				if ev.templateID == "" || ev.templateScore < templateThreshold {
					return false, 0, ""
				}
				return true, ev.templateScore,
					fmt.Sprintf("template %s matched at %.2f", ev.templateID, ev.templateScore)
			},
		},
		{
			strategy: policy.StrategyIncremental,
			applicable: func(ev *evaluation) (bool, float64, string) {
				if ev.prior == nil || ev.versionScore < incrementalThreshold {
					return false, 0, ""
				}
				return true, ev.versionScore,
					fmt.Sprintf("prior version of %s matched at %.2f", ev.versionKey, ev.versionScore)
			},
		},
		{
			strategy: policy.StrategyChunking,
			applicable: func(ev *evaluation) (bool, float64, string) {
				if len(ev.chunks) == 0 || ev.cachedChunks == 0 {
					return false, 0, ""
				}
				return true, 0, fmt.Sprintf("%d of %d chunks already cached",
					ev.cachedChunks, len(ev.chunks))
			},
		},
		{
			strategy: policy.StrategyFull,
			applicable: func(ev *evaluation) (bool, float64, string) {
				return true, 0, "full processing"
			},
		},
	}
}
