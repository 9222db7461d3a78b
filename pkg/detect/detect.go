// Package detect defines the closed set of cherry-pick detector kinds and
// implements the two scan-style detectors (MessageScan, ExactDiffMatch)
// behind one contract. TraditionalLSH is run by package orchestrator; the
// set is closed rather than open polymorphism since it is small and results
// need a stable serialisation tag.
package detect

import (
	"github.com/thehowl/cherrysniff/pkg/gitdiff"
)

// Kind names a detector. The set is closed: MessageScan, ExactDiffMatch and
// TraditionalLSH are the only recognised methods.
type Kind string

const (
	MessageScan    Kind = "MessageScan"
	ExactDiffMatch Kind = "ExactDiffMatch"
	TraditionalLSH Kind = "TraditionalLSH"
)

// Result is one emitted finding: a detector's name, the oriented pair it
// found, and a confidence score in [0,1].
type Result struct {
	SearchMethod Kind    `json:"search_method"`
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Score        float64 `json:"score"`
}

// Method is the contract the scan-style detectors implement: search a
// commit slice for cherry-picks, and report the stable name used in results.
type Method interface {
	Search(commits []gitdiff.Commit) ([]Result, error)
	Name() Kind
}
