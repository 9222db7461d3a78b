package detect

import (
	"github.com/thehowl/cherrysniff/pkg/cherry"
	"github.com/thehowl/cherrysniff/pkg/gitdiff"
)

// ExactDiffMatcher groups commits by the structural hash of their diff
// (hunk bodies and paths, ignoring headers and start positions) and emits
// every distinct pair within a group of 2 or more as a confirmed match.
type ExactDiffMatcher struct{}

// NewExactDiffMatcher returns a ready-to-use ExactDiffMatcher.
func NewExactDiffMatcher() *ExactDiffMatcher { return &ExactDiffMatcher{} }

// Name implements Method.
func (e *ExactDiffMatcher) Name() Kind { return ExactDiffMatch }

// Search implements Method.
func (e *ExactDiffMatcher) Search(commits []gitdiff.Commit) ([]Result, error) {
	groups := make(map[uint64][]int)
	for i, c := range commits {
		if c.Diff == nil {
			continue
		}
		h := c.Diff.StructuralHash()
		groups[h] = append(groups[h], i)
	}

	var results []Result
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := commits[members[i]], commits[members[j]]
				if a.ID == b.ID {
					continue
				}
				o := cherry.Orient(
					cherry.Commit{ID: a.ID, Timestamp: a.Timestamp},
					cherry.Commit{ID: b.ID, Timestamp: b.Timestamp},
				)
				results = append(results, Result{
					SearchMethod: ExactDiffMatch,
					Source:       o.Source.ID,
					Target:       o.Target.ID,
					Score:        1.0,
				})
			}
		}
	}
	return results, nil
}
