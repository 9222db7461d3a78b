// Package similarity implements the shingling, vocabulary, MinHash and LSH
// pipeline used to find near-duplicate diffs sub-quadratically.
package similarity

// EmptySentinel is emitted as the sole shingle of a diff whose canonical text
// is too short to produce any window.
const EmptySentinel = "EMPTY"

// DefaultArity is the byte-window width used when none is configured.
const DefaultArity = 3

// Shingles splits text into fixed-width byte windows of the given arity,
// producing max(0, n-k) windows for a text of length n. A text no longer
// than arity produces the single sentinel shingle.
func Shingles(text string, arity int) []string {
	n := len(text)
	count := n - arity
	if arity <= 0 || count <= 0 {
		return []string{EmptySentinel}
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, text[i:i+arity])
	}
	return out
}

// LineShingles is the line-window ablation variant: each shingle is a window
// of `arity` consecutive lines (split on '\n') rather than raw bytes.
func LineShingles(text string, arity int) []string {
	lines := splitLinesKeepEnds(text)
	if arity <= 0 || len(lines) < arity {
		return []string{EmptySentinel}
	}
	out := make([]string, 0, len(lines)-arity+1)
	for i := 0; i+arity <= len(lines); i++ {
		out = append(out, joinStrings(lines[i:i+arity]))
	}
	return out
}

func splitLinesKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func joinStrings(ss []string) string {
	total := 0
	for _, s := range ss {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range ss {
		buf = append(buf, s...)
	}
	return string(buf)
}
