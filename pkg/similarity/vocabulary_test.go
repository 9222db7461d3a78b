package similarity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVocabularyAssignsEveryDistinctShingleAUniqueSlot(t *testing.T) {
	sets := [][]string{
		{"abc", "bcd", "cde"},
		{"bcd", "xyz"},
	}
	v, err := BuildVocabulary(sets, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 4, v.Size())

	seen := make(map[uint32]bool)
	for _, shingle := range []string{"abc", "bcd", "cde", "xyz"} {
		idx, ok := v.Lookup(shingle)
		require.True(t, ok)
		assert.False(t, seen[idx], "slot %d assigned twice", idx)
		seen[idx] = true
		assert.Less(t, int(idx), v.Size())
	}
}

func TestOneHotSetsExactlyTheMappedPositions(t *testing.T) {
	v, err := BuildVocabulary([][]string{{"a", "b", "c"}}, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	bs, err := v.OneHot([]string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, v.Size(), bs.Len())

	idxA, _ := v.Lookup("a")
	idxB, _ := v.Lookup("b")
	idxC, _ := v.Lookup("c")
	assert.True(t, bs.Test(int(idxA)))
	assert.False(t, bs.Test(int(idxB)))
	assert.True(t, bs.Test(int(idxC)))
}

func TestOneHotRejectsUnknownShingle(t *testing.T) {
	v, err := BuildVocabulary([][]string{{"a"}}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	_, err = v.OneHot([]string{"not-in-vocab"})
	assert.Error(t, err)
}

func TestEncodeF64NormalisesToUnitInterval(t *testing.T) {
	v, err := BuildVocabulary([][]string{{"a", "b", "c", "d"}}, rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	enc, err := v.EncodeF64([]string{"a", "b"})
	require.NoError(t, err)
	for _, f := range enc {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestBitSetSetPositionsReturnsAscendingIndices(t *testing.T) {
	bs := NewBitSet(200)
	bs.Set(3)
	bs.Set(130)
	bs.Set(64)
	assert.Equal(t, []int{3, 64, 130}, bs.SetPositions())
}
