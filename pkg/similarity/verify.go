package similarity

import (
	"strings"
	"sync"

	"github.com/thehowl/cherrysniff/pkg/gitdiff"
)

// CountedLine is one body line of a diff, annotated with the 1-based
// occurrence index of its (content, line type) pair in iteration order, so
// that repeated identical lines contribute their full multiplicity to
// similarity instead of collapsing into one set member.
type CountedLine struct {
	Content  string
	LineType gitdiff.LineType
	Count    int
}

func isChangeType(t gitdiff.LineType) bool {
	switch t {
	case gitdiff.Addition, gitdiff.Deletion, gitdiff.AddEofnl, gitdiff.DelEofnl:
		return true
	default:
		return false
	}
}

func isInformationalType(t gitdiff.LineType) bool {
	switch t {
	case gitdiff.FileHdr, gitdiff.HunkHdr, gitdiff.Binary:
		return true
	default:
		return false
	}
}

// CountedLines returns L(d): every non-informational body line of d, with
// occurrence counts assigned in iteration order.
func CountedLines(d *gitdiff.Diff) []CountedLine {
	seen := make(map[string]int)
	var out []CountedLine
	for _, h := range d.Hunks {
		for _, l := range h.Body {
			if isInformationalType(l.LineType) {
				continue
			}
			content := strings.TrimSpace(l.Content)
			key := string(l.LineType) + "\x00" + content
			seen[key]++
			out = append(out, CountedLine{Content: content, LineType: l.LineType, Count: seen[key]})
		}
	}
	return out
}

// ChangesOnly filters L(d) down to C(d): lines whose type is an Addition,
// Deletion, AddEofnl or DelEofnl.
func ChangesOnly(lines []CountedLine) []CountedLine {
	var out []CountedLine
	for _, l := range lines {
		if isChangeType(l.LineType) {
			out = append(out, l)
		}
	}
	return out
}

func jaccard(a, b []CountedLine) float64 {
	setA := make(map[CountedLine]struct{}, len(a))
	for _, l := range a {
		setA[l] = struct{}{}
	}
	setB := make(map[CountedLine]struct{}, len(b))
	for _, l := range b {
		setB[l] = struct{}{}
	}

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	inter := 0
	for l := range setA {
		if _, ok := setB[l]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Verifier computes the verification-stage similarity for candidate pairs,
// memoising each commit's L(d) within a single search.
type Verifier struct {
	mu    sync.Mutex
	cache map[string][]CountedLine
}

// NewVerifier returns an empty Verifier ready to score candidate pairs.
func NewVerifier() *Verifier {
	return &Verifier{cache: make(map[string][]CountedLine)}
}

func (v *Verifier) linesOf(id string, d *gitdiff.Diff) []CountedLine {
	v.mu.Lock()
	defer v.mu.Unlock()
	if lines, ok := v.cache[id]; ok {
		return lines
	}
	lines := CountedLines(d)
	v.cache[id] = lines
	return lines
}

// Similarity computes sim(a,b) = (J(C(a),C(b)) + J(L(a),L(b))) / 2, where a
// and b are identified by commit ID (for the L(d) cache) and their diffs.
func (v *Verifier) Similarity(idA string, diffA *gitdiff.Diff, idB string, diffB *gitdiff.Diff) float64 {
	linesA := v.linesOf(idA, diffA)
	linesB := v.linesOf(idB, diffB)

	changesJ := jaccard(ChangesOnly(linesA), ChangesOnly(linesB))
	allJ := jaccard(linesA, linesB)
	return (changesJ + allJ) / 2
}

// Confirmed reports whether sim(a,b) exceeds threshold.
func (v *Verifier) Confirmed(idA string, diffA *gitdiff.Diff, idB string, diffB *gitdiff.Diff, threshold float64) (float64, bool) {
	sim := v.Similarity(idA, diffA, idB, diffB)
	return sim, sim > threshold
}
