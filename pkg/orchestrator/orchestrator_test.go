package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/cherrysniff/pkg/detect"
	"github.com/thehowl/cherrysniff/pkg/gitdiff"
)

func diffFromText(text string) *gitdiff.Diff {
	return gitdiff.New([]gitdiff.Hunk{{
		OldFile: "a.go", NewFile: "a.go", Header: "@@ -1,1 +1,1 @@",
		Body: []gitdiff.Line{{Content: text, LineType: gitdiff.Addition}},
	}})
}

func TestSearchFindsIdenticalDiffPair(t *testing.T) {
	base := "identical payload shared between both commits for the test"
	commits := []gitdiff.Commit{
		{ID: "a", Timestamp: 1, Diff: diffFromText(base)},
		{ID: "b", Timestamp: 2, Diff: diffFromText(base)},
		{ID: "c", Timestamp: 3, Diff: diffFromText("something else entirely different")},
	}

	o := New(Config{Arity: 3, SignatureSize: 20, BandSize: 5, Threshold: 0.5, Seed: 1, Workers: 2})
	results, err := o.Search(context.Background(), commits)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Source)
	assert.Equal(t, "b", results[0].Target)
}

func TestSearchResultIsOrderIndependentOfWorkerCount(t *testing.T) {
	base := "shared payload across commits used to validate determinism here"
	mk := func() []gitdiff.Commit {
		return []gitdiff.Commit{
			{ID: "a", Timestamp: 1, Diff: diffFromText(base)},
			{ID: "b", Timestamp: 2, Diff: diffFromText(base)},
		}
	}

	o1 := New(Config{Arity: 3, SignatureSize: 16, BandSize: 4, Threshold: 0.3, Seed: 7, Workers: 1})
	o2 := New(Config{Arity: 3, SignatureSize: 16, BandSize: 4, Threshold: 0.3, Seed: 7, Workers: 8})

	r1, err := o1.Search(context.Background(), mk())
	require.NoError(t, err)
	r2, err := o2.Search(context.Background(), mk())
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestSearchAllMergesAcrossDetectors(t *testing.T) {
	d := diffFromText("payload")
	commits := []gitdiff.Commit{
		{ID: "a", Timestamp: 1, Diff: d, Message: "initial"},
		{ID: "b", Timestamp: 2, Diff: d, Message: "(cherry picked from commit a)"},
	}

	o := New(Config{Arity: 3, SignatureSize: 8, BandSize: 2, Threshold: 0.5, Seed: 3})
	results, err := o.SearchAll(context.Background(), commits, []detect.Kind{detect.MessageScan, detect.ExactDiffMatch})
	require.NoError(t, err)

	kinds := make(map[detect.Kind]int)
	for _, r := range results {
		kinds[r.SearchMethod]++
	}
	assert.Equal(t, 1, kinds[detect.MessageScan])
	assert.Equal(t, 1, kinds[detect.ExactDiffMatch])
}
