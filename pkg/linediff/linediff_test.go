package linediff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/cherrysniff/pkg/gitdiff"
)

func TestLinesIdenticalTextsProduceNoHunks(t *testing.T) {
	same := []byte("package a\nfunc f() {}\n")
	d := Lines("a.go", same, "a.go", same)
	assert.Empty(t, d.Hunks)
}

func TestLinesDetectsASingleChangedLine(t *testing.T) {
	old := []byte("package a\nfunc old() {}\n")
	new := []byte("package a\nfunc new() {}\n")
	d := Lines("a.go", old, "a.go", new)

	require.NotEmpty(t, d.Hunks)

	var additions, deletions, context int
	for _, h := range d.Hunks {
		for _, l := range h.Body {
			switch l.LineType {
			case gitdiff.Addition:
				additions++
			case gitdiff.Deletion:
				deletions++
			case gitdiff.Context:
				context++
			}
		}
	}
	assert.Equal(t, 1, additions)
	assert.Equal(t, 1, deletions)
	assert.Equal(t, 1, context)
}

func TestLinesAnchorsOnUniqueLines(t *testing.T) {
	// "unique" anchors a and d; the swapped middle block should show up as a
	// single delete+insert pair rather than many spurious small edits.
	old := []byte("a\nb\nc\nd\n")
	new := []byte("a\nx\ny\nd\n")
	d := Lines("f", old, "f", new)

	var deletions, additions int
	for _, h := range d.Hunks {
		for _, l := range h.Body {
			switch l.LineType {
			case gitdiff.Deletion:
				deletions++
			case gitdiff.Addition:
				additions++
			}
		}
	}
	assert.Equal(t, 2, deletions)
	assert.Equal(t, 2, additions)
}

func TestLinesShiftedChangeWithExtraInsertionProducesDistinctDiff(t *testing.T) {
	old := []byte("a\nb\nc\n")
	new1 := []byte("a\nz\nc\n")
	new2 := []byte("q\nq\na\nz\nc\n") // shifted, so start positions differ

	d1 := Lines("f", old, "f", new1)
	d2 := Lines("f", old, "f", new2)

	// Their bodies differ (d2 has an extra leading insertion), so they must
	// not compare equal; both must still produce non-empty diffs.
	require.NotEmpty(t, d1.Hunks)
	require.NotEmpty(t, d2.Hunks)
	assert.False(t, d1.Equal(d2))
}
