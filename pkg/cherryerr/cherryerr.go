// Package cherryerr defines the error taxonomy shared across cherrysniff's
// collaborators and the similarity-search core.
package cherryerr

import "errors"

// Kind identifies which collaborator or invariant produced an error.
type Kind int

const (
	// RepoLoad is returned when a local repository cannot be opened.
	RepoLoad Kind = iota
	// RepoClone is returned when cloning a remote repository fails.
	RepoClone
	// DiffParse is returned when a patch stream contains an unknown line
	// origin character. Per-commit; callers may skip the commit or treat
	// it as empty.
	DiffParse
	// ANNPreprocessing is returned when a shingle is missing from the
	// vocabulary used to build it. This indicates a programmer error.
	ANNPreprocessing
	// Remote is returned when a remote-hosting API call fails.
	Remote
)

func (k Kind) String() string {
	switch k {
	case RepoLoad:
		return "RepoLoad"
	case RepoClone:
		return "RepoClone"
	case DiffParse:
		return "DiffParse"
	case ANNPreprocessing:
		return "ANNPreprocessing"
	case Remote:
		return "Remote"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-tagged error. It wraps an underlying cause so callers
// can still use errors.Is/errors.As against it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same Kind, allowing callers
// to write errors.Is(err, cherryerr.New(cherryerr.DiffParse, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}
