// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linediff implements a basic diff algorithm equivalent to patience
// diff, adapted from Go's internal/diff (itself a fork of
// <https://cs.opensource.google/go/x/tools/+/master:internal/diffp/>).
//
// It is used as a fallback hunk synthesizer: when a commit's parent diff is
// unavailable from the VCS but both blob contents are, Lines turns the two
// texts directly into a *gitdiff.Diff with the same hunk shape git itself
// would produce.
package linediff

import (
	"bytes"
	"sort"
	"strings"

	"github.com/thehowl/cherrysniff/pkg/gitdiff"
)

// pair is a pair of values tracked for both the x and y side of a diff.
// It is typically a pair of line indexes.
type pair struct{ x, y int }

// Options controls Lines.
type Options struct {
	// Normal, if set, normalizes each line before comparison (e.g. to ignore
	// trailing whitespace). Display content is unaffected.
	Normal func(s string) string
	// Context is the number of unchanged lines of context kept around each
	// change. Lines uses 3 when Context is zero.
	Context int
}

// Lines returns an anchored diff of old and new as a *gitdiff.Diff, in the
// same hunk shape a unified diff would use. If old and new are identical,
// the returned Diff has no hunks.
//
// Unix diff implementations typically look for a diff with
// the smallest number of lines inserted and removed,
// which can in the worst case take time quadratic in the
// number of lines in the texts. As a result, many implementations
// either can be made to run for a long time or cut off the search
// after a predetermined amount of work.
//
// In contrast, this implementation looks for a diff with the
// smallest number of "unique" lines inserted and removed,
// where unique means a line that appears just once in both old and new.
// We call this an "anchored diff" because the unique lines anchor
// the chosen matching regions. An anchored diff is usually clearer
// than a standard diff, because the algorithm does not try to
// reuse unrelated blank lines or closing braces.
// The algorithm also guarantees to run in O(n log n) time
// instead of the standard O(n²) time.
func Lines(oldName string, old []byte, newName string, new []byte) *gitdiff.Diff {
	return LinesWithOptions(oldName, old, newName, new, Options{Context: 3})
}

// LinesWithOptions is Lines with explicit Options.
func LinesWithOptions(oldName string, old []byte, newName string, new []byte, opts Options) *gitdiff.Diff {
	if opts.Context == 0 {
		opts.Context = 3
	}

	b := gitdiff.NewBuilder()
	if bytes.Equal(old, new) {
		return b.Build()
	}

	delta := gitdiff.DeltaEndpoints{OldFile: oldName, NewFile: newName}
	xDisp, x := splitLines(old, opts.Normal)
	yDisp, y := splitLines(new, opts.Normal)

	// Loop over matches to consider,
	// expanding each match to include surrounding lines,
	// and then emitting diff chunks.
	// To avoid setup/teardown cases outside the loop,
	// tgs returns a leading {0,0} and trailing {len(x), len(y)} pair
	// in the sequence of matches.
	var (
		done  pair     // emitted up to x[:done.x] and y[:done.y]
		chunk pair     // start lines of current chunk
		count pair     // number of lines from each side in current chunk
		ctext []string // raw (un-prefixed) lines queued for the current chunk, paired with their origin below
		ctype []byte   // origin byte parallel to ctext
	)

	flush := func() {
		if len(ctext) == 0 {
			return
		}
		if count.x > 0 {
			chunk.x++
		}
		if count.y > 0 {
			chunk.y++
		}
		desc := gitdiff.HunkDescriptor{
			OldStart: chunk.x,
			NewStart: chunk.y,
			Header:   hunkHeaderKey(chunk.x, count.x, chunk.y, count.y),
		}
		for i, content := range ctext {
			b.AddLine(delta, desc, ctype[i], content)
		}
		count.x, count.y = 0, 0
		ctext, ctype = ctext[:0], ctype[:0]
	}

	for _, m := range tgs(x, y) {
		if m.x < done.x {
			continue
		}

		start := m
		for start.x > done.x && start.y > done.y && x[start.x-1] == y[start.y-1] {
			start.x--
			start.y--
		}
		end := m
		for end.x < len(x) && end.y < len(y) && x[end.x] == y[end.y] {
			end.x++
			end.y++
		}

		for _, s := range xDisp[done.x:start.x] {
			count.x++
			ctext = append(ctext, s)
			ctype = append(ctype, byte(gitdiff.Deletion))
		}
		for _, s := range yDisp[done.y:start.y] {
			count.y++
			ctext = append(ctext, s)
			ctype = append(ctype, byte(gitdiff.Addition))
		}

		if (end.x < len(x) || end.y < len(y)) &&
			(end.x-start.x < opts.Context || (len(ctext) > 0 && end.x-start.x < 2*opts.Context)) {
			for _, s := range xDisp[start.x:end.x] {
				count.x++
				count.y++
				ctext = append(ctext, s)
				ctype = append(ctype, byte(gitdiff.Context))
			}
			done = end
			continue
		}

		if len(ctext) > 0 {
			n := end.x - start.x
			if n > opts.Context {
				n = opts.Context
			}
			for _, s := range xDisp[start.x : start.x+n] {
				count.x++
				count.y++
				ctext = append(ctext, s)
				ctype = append(ctype, byte(gitdiff.Context))
			}
			done = pair{start.x + n, start.y + n}
			flush()
		}

		if end.x >= len(x) && end.y >= len(y) {
			break
		}

		chunk = pair{end.x - opts.Context, end.y - opts.Context}
		for _, s := range xDisp[chunk.x:end.x] {
			count.x++
			count.y++
			ctext = append(ctext, s)
			ctype = append(ctype, byte(gitdiff.Context))
		}
		done = end
	}

	return b.Build()
}

// hunkHeaderKey mirrors the unified-diff "@@ -o,c +o,c @@" header used to key
// hunks fed through the Builder; its exact rendering does not matter since
// gitdiff.Diff equality ignores headers and start positions.
func hunkHeaderKey(oldStart, oldCount, newStart, newCount int) string {
	var b strings.Builder
	b.WriteString("@@ -")
	writeInt(&b, oldStart)
	b.WriteByte(',')
	writeInt(&b, oldCount)
	b.WriteString(" +")
	writeInt(&b, newStart)
	b.WriteByte(',')
	writeInt(&b, newCount)
	b.WriteString(" @@")
	return b.String()
}

func writeInt(b *strings.Builder, n int) {
	if n == 0 {
		b.WriteByte('0')
		return
	}
	if n < 0 {
		b.WriteByte('-')
		n = -n
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	b.Write(digits[i:])
}

// splitLines returns the lines in x, each carrying its trailing newline
// (unlike vcs.ParseUnifiedDiff, whose line content has none). A missing
// final newline is noted the way BSD/GNU diff notes it, by appending a
// "\ No newline at end of file" marker to the last line's content.
func splitLines(x []byte, normal func(s string) string) ([]string, []string) {
	raw := strings.Split(string(x), "\n")
	var disp []string
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
		for _, s := range raw {
			disp = append(disp, s+"\n")
		}
	} else {
		for _, s := range raw[:len(raw)-1] {
			disp = append(disp, s+"\n")
		}
		disp = append(disp, raw[len(raw)-1]+"\n\\ No newline at end of file\n")
	}
	if normal == nil {
		return disp, disp
	}
	cmp := make([]string, len(disp))
	for i, s := range disp {
		cmp[i] = normal(s)
	}
	return disp, cmp
}

// tgs returns the pairs of indexes of the longest common subsequence
// of unique lines in x and y, where a unique line is one that appears
// once in x and once in y.
//
// The longest common subsequence algorithm is as described in
// Thomas G. Szymanski, "A Special Case of the Maximal Common
// Subsequence Problem," Princeton TR #170 (January 1975),
// available at https://research.swtch.com/tgs170.pdf.
func tgs(x, y []string) []pair {
	m := make(map[string]int)
	for _, s := range x {
		if c := m[s]; c > -2 {
			m[s] = c - 1
		}
	}
	for _, s := range y {
		if c := m[s]; c > -8 {
			m[s] = c - 4
		}
	}

	var xi, yi, inv []int
	for i, s := range y {
		if m[s] == -1+-4 {
			m[s] = len(yi)
			yi = append(yi, i)
		}
	}
	for i, s := range x {
		if j, ok := m[s]; ok && j >= 0 {
			xi = append(xi, i)
			inv = append(inv, j)
		}
	}

	J := inv
	n := len(xi)
	T := make([]int, n)
	L := make([]int, n)
	for i := range T {
		T[i] = n + 1
	}
	for i := 0; i < n; i++ {
		k := sort.Search(n, func(k int) bool {
			return T[k] >= J[i]
		})
		T[k] = J[i]
		L[i] = k + 1
	}
	k := 0
	for _, v := range L {
		if k < v {
			k = v
		}
	}
	seq := make([]pair, 2+k)
	seq[1+k] = pair{len(x), len(y)}
	lastj := n
	for i := n - 1; i >= 0; i-- {
		if L[i] == k && J[i] < lastj {
			seq[k] = pair{xi[i], yi[J[i]]}
			k--
		}
	}
	seq[0] = pair{0, 0}
	return seq
}
