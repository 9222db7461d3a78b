package similarity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thehowl/cherrysniff/pkg/cherryerr"
)

// Pair is an unordered pair of distinct commit indices, normalised so
// Low < High.
type Pair struct {
	Low, High int
}

// LSH is a banded locality-sensitive hashing index over a set of MinHash
// signatures, used to find candidate near-duplicate pairs sub-quadratically.
type LSH struct {
	bandSize int
	bands    int
	bandMaps []map[string][]int // one map per band: band-slice key -> commit indices
}

// NewLSH validates S divisible by bandSize and prepares B = S/bandSize empty
// band maps.
func NewLSH(signatureLen, bandSize int) (*LSH, error) {
	if bandSize <= 0 || signatureLen%bandSize != 0 {
		return nil, cherryerr.New(cherryerr.ANNPreprocessing,
			fmt.Sprintf("signature length %d not divisible by band size %d", signatureLen, bandSize))
	}
	bands := signatureLen / bandSize
	maps := make([]map[string][]int, bands)
	for i := range maps {
		maps[i] = make(map[string][]int)
	}
	return &LSH{bandSize: bandSize, bands: bands, bandMaps: maps}, nil
}

// Bands returns B = S/b.
func (l *LSH) Bands() int { return l.bands }

// Insert buckets commit index idx's signature into every band map. The maps
// are not guarded, so Insert is not safe for concurrent use; the
// orchestrator calls it sequentially as a single-writer reduction.
func (l *LSH) Insert(idx int, sig Signature) {
	for k := 0; k < l.bands; k++ {
		key := bandKey(sig[k*l.bandSize : (k+1)*l.bandSize])
		l.bandMaps[k][key] = append(l.bandMaps[k][key], idx)
	}
}

// Candidates collects every unordered pair sharing at least one band bucket
// with 2 or more members, de-duplicated across bands.
func (l *LSH) Candidates() []Pair {
	seen := make(map[Pair]struct{})
	var out []Pair
	for _, bandMap := range l.bandMaps {
		for _, members := range bandMap {
			if len(members) < 2 {
				continue
			}
			sorted := append([]int(nil), members...)
			sort.Ints(sorted)
			for i := 0; i < len(sorted); i++ {
				for j := i + 1; j < len(sorted); j++ {
					if sorted[i] == sorted[j] {
						continue
					}
					p := Pair{Low: sorted[i], High: sorted[j]}
					if _, dup := seen[p]; dup {
						continue
					}
					seen[p] = struct{}{}
					out = append(out, p)
				}
			}
		}
	}
	return out
}

func bandKey(band Signature) string {
	var b strings.Builder
	for i, v := range band {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", v)
	}
	return b.String()
}
