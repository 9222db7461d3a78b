package vcs

import (
	"context"
	"os"
	"os/exec"

	"github.com/thehowl/cherrysniff/pkg/cherryerr"
)

// CloneOrOpen resolves a repository location into a local path ready for
// Enumerate: loc.Path is opened in place, loc.URL is cloned with its full
// history (without a checkout) into a freshly created temporary directory,
// whose cleanup is the caller's
// responsibility. A nil gate performs the clone unthrottled; CloneOrOpenGated
// is preferred whenever the caller may resolve many remote locations.
func CloneOrOpen(ctx context.Context, gitBinary string, loc RepoLocation) (path string, cleanup func(), err error) {
	return CloneOrOpenGated(ctx, gitBinary, loc, nil)
}

// CloneOrOpenGated is CloneOrOpen with a RemoteSamplingGate consulted before
// any network I/O (loc.Path is always local and never gated).
func CloneOrOpenGated(ctx context.Context, gitBinary string, loc RepoLocation, gate *RemoteSamplingGate) (path string, cleanup func(), err error) {
	if loc.Path != "" {
		if _, statErr := os.Stat(loc.Path); statErr != nil {
			return "", nil, cherryerr.Wrap(cherryerr.RepoLoad, "vcs: cannot open local repository", statErr)
		}
		return loc.Path, func() {}, nil
	}
	if loc.URL == "" {
		return "", nil, cherryerr.New(cherryerr.RepoLoad, "vcs: repository location has neither path nor url")
	}

	if gate != nil {
		if waitErr := gate.Wait(ctx); waitErr != nil {
			return "", nil, cherryerr.Wrap(cherryerr.RepoClone, "vcs: waiting for remote sampling gate", waitErr)
		}
	}

	if gitBinary == "" {
		gitBinary = "git"
	}
	dir, mkErr := os.MkdirTemp("", "cherrysniff-clone-")
	if mkErr != nil {
		return "", nil, cherryerr.Wrap(cherryerr.RepoClone, "vcs: creating temp dir for clone", mkErr)
	}
	cleanup = func() { os.RemoveAll(dir) }

	cmd := exec.CommandContext(ctx, gitBinary, "clone", "--no-checkout", loc.URL, dir)
	if out, runErr := cmd.CombinedOutput(); runErr != nil {
		cleanup()
		return "", nil, cherryerr.Wrap(cherryerr.RepoClone, "vcs: git clone failed: "+string(out), runErr)
	}
	return dir, cleanup, nil
}
