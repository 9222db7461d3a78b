package similarity

import (
	"math/rand"

	"github.com/thehowl/cherrysniff/pkg/cherryerr"
)

// Signature is a fixed-length integer vector summarising a diff's shingle
// set, such that the expected fraction of coordinate equalities between two
// signatures approximates the set-Jaccard similarity of their shingle sets.
type Signature []uint32

// MinHash holds S independent uniform random permutations of [0,V), used to
// sign one-hot vectors of length V.
type MinHash struct {
	s     int
	v     int
	ranks [][]uint32 // ranks[row][position] = rank assigned by permutation row
}

// NewMinHash constructs a MinHash with signature length s over a vocabulary
// of size v, drawing its permutations from rng.
func NewMinHash(s, v int, rng *rand.Rand) *MinHash {
	ranks := make([][]uint32, s)
	for row := range ranks {
		perm := rng.Perm(v) // perm[rank] = position
		rank := make([]uint32, v)
		for r, pos := range perm {
			rank[pos] = uint32(r)
		}
		ranks[row] = rank
	}
	return &MinHash{s: s, v: v, ranks: ranks}
}

// Size returns the configured signature length S.
func (m *MinHash) Size() int { return m.s }

// Sign computes the signature of a one-hot vector: for each row the minimum
// rank, under that row's permutation, among the vector's present positions.
// Signing twice with the same MinHash and input is idempotent.
func (m *MinHash) Sign(h *BitSet) (Signature, error) {
	if h.Len() != m.v {
		return nil, cherryerr.New(cherryerr.ANNPreprocessing, "one-hot length does not match vocabulary size")
	}
	present := h.SetPositions()
	sig := make(Signature, m.s)
	for row := 0; row < m.s; row++ {
		rank := m.ranks[row]
		min := uint32(m.v)
		for _, pos := range present {
			if rank[pos] < min {
				min = rank[pos]
			}
		}
		sig[row] = min
	}
	return sig, nil
}
