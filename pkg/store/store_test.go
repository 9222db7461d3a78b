package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/thehowl/cherrysniff/pkg/detect"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	bdb, err := bbolt.Open(filepath.Join(t.TempDir(), "store.bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, bdb.Close())
	})
	return &Store{DB: bdb}
}

func TestPutAndGetRoundTrips(t *testing.T) {
	r := detect.Result{SearchMethod: detect.TraditionalLSH, Source: "abc", Target: "def", Score: 0.9}

	s := newStore(t)
	require.NoError(t, s.Put(r))

	got, ok, err := s.Get(ResultID(r))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r, got)
}

func TestGetMissingIDReturnsNotFound(t *testing.T) {
	s := newStore(t)
	_, ok, err := s.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultIDIsStableAndContentAddressed(t *testing.T) {
	r1 := detect.Result{SearchMethod: detect.MessageScan, Source: "a", Target: "b", Score: 1.0}
	r2 := detect.Result{SearchMethod: detect.MessageScan, Source: "a", Target: "b", Score: 0.0}
	r3 := detect.Result{SearchMethod: detect.MessageScan, Source: "a", Target: "c", Score: 1.0}

	// Score does not participate in the ID; it identifies the pair+method.
	assert.Equal(t, ResultID(r1), ResultID(r2))
	assert.NotEqual(t, ResultID(r1), ResultID(r3))
}

func TestPutAllPersistsEveryResult(t *testing.T) {
	rs := []detect.Result{
		{SearchMethod: detect.MessageScan, Source: "a", Target: "b", Score: 1.0},
		{SearchMethod: detect.ExactDiffMatch, Source: "c", Target: "d", Score: 1.0},
	}

	s := newStore(t)
	require.NoError(t, s.PutAll(rs))

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
