package similarity

import (
	"math/bits"
	"math/rand"

	"github.com/thehowl/cherrysniff/pkg/cherryerr"
)

// Vocabulary is a bijection between distinct shingles observed across a
// corpus of diffs and integer indices in [0, V).
type Vocabulary struct {
	index map[string]uint32
	size  int
}

// BuildVocabulary collects the distinct shingles across shingleSets and
// assigns each a slot via a uniformly random permutation of [0, |U|),
// drawn from rng. Passing a seeded rng makes the assignment reproducible
// within a run; the orchestrator is responsible for seeding it.
func BuildVocabulary(shingleSets [][]string, rng *rand.Rand) (*Vocabulary, error) {
	seen := make(map[string]struct{})
	var distinct []string
	for _, shingles := range shingleSets {
		for _, s := range shingles {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				distinct = append(distinct, s)
			}
		}
	}

	indices := rng.Perm(len(distinct))
	v := &Vocabulary{index: make(map[string]uint32, len(distinct)), size: len(distinct)}
	for i, shingle := range distinct {
		slot := uint32(indices[i])
		if _, dup := reverseLookup(v.index, slot); dup {
			return nil, cherryerr.New(cherryerr.ANNPreprocessing, "vocabulary permutation assigned duplicate slot")
		}
		v.index[shingle] = slot
	}
	return v, nil
}

func reverseLookup(m map[string]uint32, slot uint32) (string, bool) {
	// Construction is always from a permutation of [0,|U|), so this only
	// ever fires if Perm itself were broken; kept as a defensive check
	// matching the spec's "fails loudly" requirement.
	for k, v := range m {
		if v == slot {
			return k, true
		}
	}
	return "", false
}

// Size returns the vocabulary size V = |U|.
func (v *Vocabulary) Size() int { return v.size }

// Lookup returns the slot assigned to shingle and whether it is present.
func (v *Vocabulary) Lookup(shingle string) (uint32, bool) {
	idx, ok := v.index[shingle]
	return idx, ok
}

// OneHot builds the bit-packed presence vector for a diff's shingles. A
// shingle absent from the vocabulary is a programming error.
func (v *Vocabulary) OneHot(shingles []string) (*BitSet, error) {
	bs := NewBitSet(v.size)
	for _, s := range shingles {
		idx, ok := v.index[s]
		if !ok {
			return nil, cherryerr.New(cherryerr.ANNPreprocessing, "shingle not in vocabulary")
		}
		bs.Set(int(idx))
	}
	return bs, nil
}

// EncodeU32 emits the raw vocabulary index per shingle, in shingle order.
// Used by alternative detectors, not by LSH.
func (v *Vocabulary) EncodeU32(shingles []string) ([]uint32, error) {
	out := make([]uint32, len(shingles))
	for i, s := range shingles {
		idx, ok := v.index[s]
		if !ok {
			return nil, cherryerr.New(cherryerr.ANNPreprocessing, "shingle not in vocabulary")
		}
		out[i] = idx
	}
	return out, nil
}

// EncodeF64 emits index/|U| normalised to [0,1) per shingle, in shingle order.
func (v *Vocabulary) EncodeF64(shingles []string) ([]float64, error) {
	out := make([]float64, len(shingles))
	for i, s := range shingles {
		idx, ok := v.index[s]
		if !ok {
			return nil, cherryerr.New(cherryerr.ANNPreprocessing, "shingle not in vocabulary")
		}
		out[i] = float64(idx) / float64(v.size)
	}
	return out, nil
}

// BitSet is a bit-packed, fixed-length presence vector.
type BitSet struct {
	bits []uint64
	n    int
}

// NewBitSet allocates a BitSet able to hold n positions, all initially unset.
func NewBitSet(n int) *BitSet {
	return &BitSet{bits: make([]uint64, (n+63)/64), n: n}
}

// Len returns the vector's declared length V.
func (b *BitSet) Len() int { return b.n }

// Set marks position i as present.
func (b *BitSet) Set(i int) {
	b.bits[i/64] |= 1 << uint(i%64)
}

// Test reports whether position i is present.
func (b *BitSet) Test(i int) bool {
	return b.bits[i/64]&(1<<uint(i%64)) != 0
}

// SetPositions returns the indices of every set bit, ascending.
func (b *BitSet) SetPositions() []int {
	var out []int
	for word := range b.bits {
		w := b.bits[word]
		for w != 0 {
			out = append(out, word*64+bits.TrailingZeros64(w))
			w &= w - 1
		}
	}
	return out
}
