package vcs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneOrOpenOpensExistingPath(t *testing.T) {
	path, cleanup, err := CloneOrOpen(context.Background(), "", RepoLocation{Path: t.TempDir()})
	require.NoError(t, err)
	defer cleanup()
	assert.NotEmpty(t, path)
}

func TestCloneOrOpenRejectsMissingLocalPath(t *testing.T) {
	_, _, err := CloneOrOpen(context.Background(), "", RepoLocation{Path: "/does/not/exist/at/all"})
	assert.Error(t, err)
}

func TestCloneOrOpenRejectsEmptyLocation(t *testing.T) {
	_, _, err := CloneOrOpen(context.Background(), "", RepoLocation{})
	assert.Error(t, err)
}

func TestCloneOrOpenGatedSkipsGateForLocalPath(t *testing.T) {
	gate := NewRemoteSamplingGate(1, time.Minute)
	gate.limiter.Allow() // exhaust the one token the gate would otherwise grant
	path, cleanup, err := CloneOrOpenGated(context.Background(), "", RepoLocation{Path: t.TempDir()}, gate)
	require.NoError(t, err)
	defer cleanup()
	assert.NotEmpty(t, path)
}

func TestCloneOrOpenGatedPropagatesGateCancellation(t *testing.T) {
	gate := NewRemoteSamplingGate(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := CloneOrOpenGated(ctx, "", RepoLocation{URL: "https://example.com/repo.git"}, gate)
	assert.Error(t, err)
}
