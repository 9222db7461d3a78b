package gitdiff

import "github.com/thehowl/cherrysniff/pkg/cherryerr"

// DeltaEndpoints names the two sides of a file touched by a hunk. Either
// side may be empty for file creation or deletion.
type DeltaEndpoints struct {
	OldFile string
	NewFile string
}

// HunkDescriptor carries the informational fields of a hunk header as
// reported by the patch-stream collaborator.
type HunkDescriptor struct {
	OldStart int
	NewStart int
	Header   string
}

// knownLineTypes enumerates the origin characters the builder accepts.
// Anything else is a DiffParse error.
var knownLineTypes = map[byte]LineType{
	byte(Context):      Context,
	byte(Addition):     Addition,
	byte(Deletion):     Deletion,
	byte(ContextEofnl): ContextEofnl,
	byte(AddEofnl):     AddEofnl,
	byte(DelEofnl):     DelEofnl,
	byte(FileHdr):      FileHdr,
	byte(HunkHdr):      HunkHdr,
	byte(Binary):       Binary,
}

// Builder incrementally constructs a Diff from a per-commit patch stream: one
// call per line, carrying the delta endpoints, the hunk descriptor the line
// belongs to, the line's origin character, and its verbatim content.
//
// Lines are grouped by the hunk header string they arrive with. HunkHdr
// origin lines open/identify a group but are excluded from its body. After
// the stream ends, Build sorts the accumulated hunks into the diff's total
// order and returns the resulting Diff.
type Builder struct {
	order []string
	hunks map[string]*Hunk
}

// NewBuilder returns an empty Builder ready to accept AddLine calls.
func NewBuilder() *Builder {
	return &Builder{hunks: make(map[string]*Hunk)}
}

// AddLine ingests a single patch-stream line. origin is the raw line-origin
// character (' ', '+', '-', '=', '>', '<', 'F', 'H', 'B'); an unrecognised
// character surfaces a DiffParse error and the line is not ingested.
func (b *Builder) AddLine(delta DeltaEndpoints, desc HunkDescriptor, origin byte, content string) error {
	lt, ok := knownLineTypes[origin]
	if !ok {
		return cherryerr.New(cherryerr.DiffParse, "unknown line origin character")
	}

	h, ok := b.hunks[desc.Header]
	if !ok {
		h = &Hunk{
			OldFile:  delta.OldFile,
			NewFile:  delta.NewFile,
			OldStart: desc.OldStart,
			NewStart: desc.NewStart,
			Header:   desc.Header,
		}
		b.hunks[desc.Header] = h
		b.order = append(b.order, desc.Header)
	}

	if lt == HunkHdr {
		return nil
	}
	h.Body = append(h.Body, Line{Content: content, LineType: lt})
	return nil
}

// Build finalises the accumulated hunks into a Diff, sorting them into the
// total order defined by (OldFile, NewFile, OldStart, NewStart) and
// synthesising the canonical text.
func (b *Builder) Build() *Diff {
	hunks := make([]Hunk, 0, len(b.order))
	for _, header := range b.order {
		hunks = append(hunks, *b.hunks[header])
	}
	return New(hunks)
}
