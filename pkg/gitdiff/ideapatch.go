package gitdiff

import (
	"fmt"
	"strings"
)

// ideaSeparatorRune and ideaSeparatorLen describe the 67-'=' line
// IDE-exported patches use to separate per-file diff segments.
const ideaSeparatorRune = '='
const ideaSeparatorLen = 67

// findPathToken returns the whitespace-delimited token of line that starts
// with prefix ("a/" or "b/"), discarding any trailing IDEA revision
// metadata such as "\t(revision 3d4a...)". Falls back to the trimmed
// remainder of the "---"/"+++" marker if no such token is present.
func findPathToken(line, prefix string) string {
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, prefix) {
			return field
		}
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "---"), "+++"))
}

func isIdeaSeparator(line string) bool {
	if len(line) != ideaSeparatorLen {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != ideaSeparatorRune {
			return false
		}
	}
	return true
}

// ParseIdeaPatch parses a text patch in the IDE-export form: segments
// separated by 67 '=' characters, each segment beginning with a "diff"
// line, followed by "---"/"+++" file headers and "@@ ... @@" hunk headers.
//
// Lines beginning with "@@ " and ending with " @@" open a new hunk; other
// lines' first character selects a LineType, defaulting to Context if
// unknown; the remainder becomes content. OldStart and NewStart are set to
// zero, since this format does not reliably expose them.
//
// "--- "/"+++ " lines carry IDE-specific revision metadata after the path
// (e.g. "a/src/main.rs\t(revision 3d4a...)"); only the "a/"/"b/" path token
// is kept, matching the original's split_whitespace().find(starts_with)
// extraction, so a diff parsed from an IDE export hashes and canonicalises
// the same as the equivalent diff parsed from a plain VCS patch stream.
func ParseIdeaPatch(text string) *Diff {
	b := NewBuilder()

	var (
		delta        DeltaEndpoints
		currentHdr   string
		fileSegments int
	)

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		switch {
		case isIdeaSeparator(line):
			continue
		case strings.HasPrefix(line, "diff"):
			fileSegments++
			delta = DeltaEndpoints{}
			currentHdr = fmt.Sprintf("__file_header_%d__", fileSegments)
			b.AddLine(delta, HunkDescriptor{Header: currentHdr}, byte(FileHdr), line)
		case strings.HasPrefix(line, "--- "):
			delta.OldFile = findPathToken(line, "a/")
			b.AddLine(delta, HunkDescriptor{Header: currentHdr}, byte(FileHdr), "--- "+delta.OldFile)
		case strings.HasPrefix(line, "+++ "):
			delta.NewFile = findPathToken(line, "b/")
			b.AddLine(delta, HunkDescriptor{Header: currentHdr}, byte(FileHdr), "+++ "+delta.NewFile)
		case strings.HasPrefix(line, "@@ ") && strings.HasSuffix(line, " @@"):
			currentHdr = line
			b.AddLine(delta, HunkDescriptor{Header: currentHdr, OldStart: 0, NewStart: 0}, byte(HunkHdr), line)
		case line == "":
			continue
		default:
			origin := line[0]
			lt, ok := knownLineTypes[origin]
			content := line
			if ok {
				content = line[1:]
			} else {
				lt = Context
			}
			b.AddLine(delta, HunkDescriptor{Header: currentHdr}, byte(lt), content)
		}
	}

	return b.Build()
}
