package gitdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleHunk(oldStart, newStart int, header string) Hunk {
	return Hunk{
		OldFile:  "a.go",
		NewFile:  "a.go",
		OldStart: oldStart,
		NewStart: newStart,
		Header:   header,
		Body: []Line{
			{Content: "package a\n", LineType: Context},
			{Content: "func old() {}\n", LineType: Deletion},
			{Content: "func new() {}\n", LineType: Addition},
		},
	}
}

func TestCanonicalTextShape(t *testing.T) {
	d := New([]Hunk{simpleHunk(1, 1, "@@ -1,3 +1,3 @@")})
	text := d.CanonicalText()
	assert.Contains(t, text, "--- a.go\n")
	assert.Contains(t, text, "+++ a.go\n")
	assert.Contains(t, text, "@@ -1,3 +1,3 @@\n")
	assert.Contains(t, text, " package a\n")
	assert.Contains(t, text, "-func old() {}\n")
	assert.Contains(t, text, "+func new() {}\n")
}

func TestCanonicalTextUsesNoneForMissingFiles(t *testing.T) {
	h := simpleHunk(1, 1, "@@ -1,3 +1,3 @@")
	h.OldFile = ""
	d := New([]Hunk{h})
	assert.Contains(t, d.CanonicalText(), "--- None\n")
}

func TestEqualityIgnoresHeaderAndStarts(t *testing.T) {
	a := New([]Hunk{simpleHunk(1, 1, "@@ -1,3 +1,3 @@")})
	b := New([]Hunk{simpleHunk(99, 42, "@@ -99,3 +42,3 @@")})
	assert.True(t, a.Equal(b), "diffs with identical bodies but different headers/starts must compare equal")
	assert.Equal(t, a.StructuralHash(), b.StructuralHash())
}

func TestEqualityDependsOnBody(t *testing.T) {
	a := New([]Hunk{simpleHunk(1, 1, "@@ -1,3 +1,3 @@")})
	h := simpleHunk(1, 1, "@@ -1,3 +1,3 @@")
	h.Body = append(h.Body, Line{Content: "extra\n", LineType: Addition})
	b := New([]Hunk{h})
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.StructuralHash(), b.StructuralHash())
}

func TestHunksAreSortedIntoTotalOrder(t *testing.T) {
	h1 := simpleHunk(10, 10, "@@ -10,3 +10,3 @@")
	h1.OldFile, h1.NewFile = "z.go", "z.go"
	h2 := simpleHunk(1, 1, "@@ -1,3 +1,3 @@")
	h2.OldFile, h2.NewFile = "a.go", "a.go"

	d := New([]Hunk{h1, h2})
	require.Len(t, d.Hunks, 2)
	assert.Equal(t, "a.go", d.Hunks[0].OldFile)
	assert.Equal(t, "z.go", d.Hunks[1].OldFile)
}

func TestLineEqualRequiresTypeAndContent(t *testing.T) {
	a := Line{Content: "x\n", LineType: Addition}
	b := Line{Content: "x\n", LineType: Deletion}
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(Line{Content: "x\n", LineType: Addition}))
}
