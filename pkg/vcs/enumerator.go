// Package vcs enumerates commits and their first-parent diffs out of a
// version-control system, for feeding into the similarity-search core.
package vcs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/thehowl/cherrysniff/pkg/cherryerr"
	"github.com/thehowl/cherrysniff/pkg/gitdiff"
	"github.com/thehowl/cherrysniff/pkg/linediff"
)

// RepoLocation names where a repository lives: either a local path or a
// remote clone URL.
type RepoLocation struct {
	Path string // set for a local filesystem repository
	URL  string // set for a repository that must first be cloned
}

// Enumerator lists commits from a VCS, with their first-parent diff (or, for
// root commits, their diff against an empty tree) already computed.
type Enumerator interface {
	Enumerate(ctx context.Context, loc RepoLocation) ([]gitdiff.Commit, error)
}

// GitCLIEnumerator shells out to the system `git` binary, avoiding a cgo
// dependency on libgit2 while keeping the same commit/diff shape.
type GitCLIEnumerator struct {
	// GitBinary overrides the binary name/path; defaults to "git".
	GitBinary string
}

// NewGitCLIEnumerator returns a ready-to-use GitCLIEnumerator.
func NewGitCLIEnumerator() *GitCLIEnumerator {
	return &GitCLIEnumerator{GitBinary: "git"}
}

func (g *GitCLIEnumerator) binary() string {
	if g.GitBinary == "" {
		return "git"
	}
	return g.GitBinary
}

const logFieldSep = "\x1f" // ASCII unit separator; never appears in commit metadata
const logRecordSep = "\x1e"

// Enumerate implements Enumerator. loc.Path must point at a local working
// copy or bare repository (cloning a remote loc.URL is a collaborator
// concern, not performed here).
func (g *GitCLIEnumerator) Enumerate(ctx context.Context, loc RepoLocation) ([]gitdiff.Commit, error) {
	if loc.Path == "" {
		return nil, cherryerr.New(cherryerr.RepoLoad, "vcs: no local repository path given")
	}

	format := strings.Join([]string{"%H", "%P", "%an", "%ae", "%cn", "%ce", "%ct", "%B"}, logFieldSep) + logRecordSep
	cmd := exec.CommandContext(ctx, g.binary(), "log", "--first-parent", "--date-order", "--format="+format)
	cmd.Dir = loc.Path

	out, err := cmd.Output()
	if err != nil {
		return nil, cherryerr.Wrap(cherryerr.RepoLoad, "vcs: git log failed", err)
	}

	commits, err := parseLog(out)
	if err != nil {
		return nil, err
	}

	for i := range commits {
		diff, err := g.diffFor(ctx, loc.Path, commits[i])
		if err != nil {
			// Per-commit diff parse failures are recoverable: the commit is
			// kept with an empty diff rather than aborting the whole walk.
			commits[i].Diff = gitdiff.New(nil)
			continue
		}
		commits[i].Diff = diff
	}
	return commits, nil
}

func parseLog(out []byte) ([]gitdiff.Commit, error) {
	var commits []gitdiff.Commit
	records := strings.Split(string(out), logRecordSep)
	for _, rec := range records {
		rec = strings.TrimPrefix(rec, "\n")
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := strings.SplitN(rec, logFieldSep, 8)
		if len(fields) != 8 {
			return nil, cherryerr.New(cherryerr.RepoLoad, "vcs: malformed git log record")
		}

		ts, err := strconv.ParseInt(fields[6], 10, 64)
		if err != nil {
			return nil, cherryerr.Wrap(cherryerr.RepoLoad, "vcs: malformed commit timestamp", err)
		}

		var parents []string
		if fields[1] != "" {
			parents = strings.Fields(fields[1])
		}

		commits = append(commits, gitdiff.Commit{
			ID:        fields[0],
			ParentIDs: parents,
			Author:    gitdiff.Identity{Name: fields[2], Email: fields[3]},
			Committer: gitdiff.Identity{Name: fields[4], Email: fields[5]},
			Timestamp: ts,
			Message:   strings.TrimSuffix(fields[7], "\n"),
		})
	}
	return commits, nil
}

func (g *GitCLIEnumerator) diffFor(ctx context.Context, dir string, c gitdiff.Commit) (*gitdiff.Diff, error) {
	parentRef := emptyTreeOID
	if len(c.ParentIDs) > 0 {
		parentRef = c.ParentIDs[0]
	}

	cmd := exec.CommandContext(ctx, g.binary(), "diff", parentRef, c.ID)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		// The structured diff can be unavailable even though both trees are
		// present, e.g. a shallow clone that has the parent commit object
		// but git refuses to diff across a grafted history boundary. Fall
		// back to a line-level diff of the two full tree archives.
		fallback, fbErr := g.blobFallbackDiff(ctx, dir, parentRef, c.ID)
		if fbErr != nil {
			return nil, cherryerr.Wrap(cherryerr.DiffParse, fmt.Sprintf("vcs: git diff failed for %s", c.ID), err)
		}
		return fallback, nil
	}
	return ParseUnifiedDiff(out)
}

// blobFallbackDiff synthesizes a diff from the full tar-archived contents of
// two revisions, for use when a structured git diff cannot be produced
// directly. It trades hunk-boundary fidelity (the archive stream has no
// per-file diff markers of its own) for always having something to show.
func (g *GitCLIEnumerator) blobFallbackDiff(ctx context.Context, dir, oldRef, newRef string) (*gitdiff.Diff, error) {
	oldBlob, err := g.archive(ctx, dir, oldRef)
	if err != nil {
		return nil, cherryerr.Wrap(cherryerr.DiffParse, "vcs: archiving old tree for fallback diff", err)
	}
	newBlob, err := g.archive(ctx, dir, newRef)
	if err != nil {
		return nil, cherryerr.Wrap(cherryerr.DiffParse, "vcs: archiving new tree for fallback diff", err)
	}
	return linediff.Lines(oldRef, oldBlob, newRef, newBlob), nil
}

func (g *GitCLIEnumerator) archive(ctx context.Context, dir, ref string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.binary(), "archive", "--format=tar", ref)
	cmd.Dir = dir
	return cmd.Output()
}

// emptyTreeOID is git's well-known hash of the empty tree object, valid in
// every repository regardless of history.
const emptyTreeOID = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// ParseUnifiedDiff parses the output of `git diff`/`git show` (standard
// unified diff, as opposed to the IDE-export form handled by
// gitdiff.ParseIdeaPatch) into a *gitdiff.Diff. Line content is stored
// without its trailing newline.
func ParseUnifiedDiff(out []byte) (*gitdiff.Diff, error) {
	b := gitdiff.NewBuilder()

	var delta gitdiff.DeltaEndpoints
	var currentHdr string
	fileSegments := 0

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "diff --git"):
			fileSegments++
			delta = gitdiff.DeltaEndpoints{}
			currentHdr = fmt.Sprintf("__file_header_%d__", fileSegments)
			if err := b.AddLine(delta, gitdiff.HunkDescriptor{Header: currentHdr}, byte(gitdiff.FileHdr), line); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "--- "):
			delta.OldFile = strings.TrimSpace(strings.TrimPrefix(line, "---"))
			if err := b.AddLine(delta, gitdiff.HunkDescriptor{Header: currentHdr}, byte(gitdiff.FileHdr), line); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "+++ "):
			delta.NewFile = strings.TrimSpace(strings.TrimPrefix(line, "+++"))
			if err := b.AddLine(delta, gitdiff.HunkDescriptor{Header: currentHdr}, byte(gitdiff.FileHdr), line); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "@@ "):
			currentHdr = line
			oldStart, newStart := parseHunkStarts(line)
			desc := gitdiff.HunkDescriptor{OldStart: oldStart, NewStart: newStart, Header: currentHdr}
			if err := b.AddLine(delta, desc, byte(gitdiff.HunkHdr), line); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "Binary files "):
			if err := b.AddLine(delta, gitdiff.HunkDescriptor{Header: currentHdr}, byte(gitdiff.Binary), line); err != nil {
				return nil, err
			}
		case line == "":
			continue
		default:
			origin := line[0]
			content := line
			lt := byte(gitdiff.Context)
			switch origin {
			case '+', '-', ' ':
				lt = origin
				content = line[1:]
			}
			if err := b.AddLine(delta, gitdiff.HunkDescriptor{Header: currentHdr}, lt, content); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, cherryerr.Wrap(cherryerr.DiffParse, "vcs: error scanning diff output", err)
	}

	return b.Build(), nil
}

// parseHunkStarts extracts the old/new start line numbers from a
// "@@ -o,c +o,c @@" header. Malformed headers yield zeros, matching the
// Builder's tolerant defaults.
func parseHunkStarts(header string) (oldStart, newStart int) {
	fields := strings.Fields(header)
	for _, f := range fields {
		switch {
		case strings.HasPrefix(f, "-"):
			oldStart = parseLeadingNumber(strings.TrimPrefix(f, "-"))
		case strings.HasPrefix(f, "+"):
			newStart = parseLeadingNumber(strings.TrimPrefix(f, "+"))
		}
	}
	return
}

func parseLeadingNumber(s string) int {
	comma := strings.IndexByte(s, ',')
	if comma >= 0 {
		s = s[:comma]
	}
	n, _ := strconv.Atoi(s)
	return n
}
