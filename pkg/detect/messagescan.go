package detect

import (
	"strings"

	"github.com/thehowl/cherrysniff/pkg/gitdiff"
)

// cherryPickPrefix is the literal marker git itself writes into a commit
// message via `git cherry-pick -x`.
const cherryPickPrefix = "(cherry picked from commit "

// MessageScanner finds cherry-picks git has already confessed to: commits
// whose message carries the standard "(cherry picked from commit ...)"
// trailer. It never verifies the diffs, and always scores 1.0.
type MessageScanner struct{}

// NewMessageScanner returns a ready-to-use MessageScanner.
func NewMessageScanner() *MessageScanner { return &MessageScanner{} }

// Name implements Method.
func (m *MessageScanner) Name() Kind { return MessageScan }

// Search implements Method.
func (m *MessageScanner) Search(commits []gitdiff.Commit) ([]Result, error) {
	var results []Result
	for _, c := range commits {
		idx := strings.Index(c.Message, cherryPickPrefix)
		if idx < 0 {
			continue
		}
		rest := c.Message[idx+len(cherryPickPrefix):]
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			continue
		}
		sourceID := strings.TrimSpace(rest[:end])
		if sourceID == "" {
			continue
		}
		results = append(results, Result{
			SearchMethod: MessageScan,
			Source:       sourceID,
			Target:       c.ID,
			Score:        1.0,
		})
	}
	return results, nil
}
