// Package orchestrator drives the sequential phases of the similarity-search
// core — shingle, vocabulary, MinHash, LSH, verify, orient — fanning the
// embarrassingly-parallel phases out to a worker pool, and dispatches the
// alternate detectors that only share the diff-building phase.
package orchestrator

import (
	"context"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/thehowl/cherrysniff/pkg/cherry"
	"github.com/thehowl/cherrysniff/pkg/detect"
	"github.com/thehowl/cherrysniff/pkg/gitdiff"
	"github.com/thehowl/cherrysniff/pkg/similarity"
)

// Config holds the LSH construction parameters plus the concurrency knobs
// the orchestrator needs to run the pipeline.
type Config struct {
	Arity         int
	SignatureSize int
	BandSize      int
	Threshold     float64
	Seed          int64
	// Workers bounds the fixed-size worker pool used for the embarrassingly
	// parallel phases (shingling, signing, verification). Defaults to
	// runtime.NumCPU() when zero or negative.
	Workers int
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Orchestrator runs the TraditionalLSH pipeline and, on request, the other
// detectors that share its first phase.
type Orchestrator struct {
	cfg Config
}

// New returns an Orchestrator configured with cfg.
func New(cfg Config) *Orchestrator {
	if cfg.Arity <= 0 {
		cfg.Arity = similarity.DefaultArity
	}
	return &Orchestrator{cfg: cfg}
}

// Search runs the full banded-LSH pipeline over commits, fanning shingling,
// signing and verification out across a fixed-size worker pool. The
// returned result set is order-independent of worker interleaving.
func (o *Orchestrator) Search(ctx context.Context, commits []gitdiff.Commit) ([]detect.Result, error) {
	rng := rand.New(rand.NewSource(o.cfg.Seed))

	shingleSets, err := o.shingleAll(ctx, commits)
	if err != nil {
		return nil, err
	}

	vocab, err := similarity.BuildVocabulary(shingleSets, rng)
	if err != nil {
		return nil, err
	}

	mh := similarity.NewMinHash(o.cfg.SignatureSize, vocab.Size(), rng)
	lshIndex, err := similarity.NewLSH(o.cfg.SignatureSize, o.cfg.BandSize)
	if err != nil {
		return nil, err
	}

	signatures, err := o.signAll(ctx, shingleSets, vocab, mh)
	if err != nil {
		return nil, err
	}

	// Band-map insertion is a single-writer reduction: sequential here, but
	// callers needing more throughput may shard LSH per band instead.
	for i, sig := range signatures {
		lshIndex.Insert(i, sig)
	}

	return o.verifyAndOrient(ctx, commits, lshIndex.Candidates())
}

// shingleAll dispatches Shingles over commits' canonical diff text to a
// fixed-size worker pool. Order of the returned slice matches commits.
func (o *Orchestrator) shingleAll(ctx context.Context, commits []gitdiff.Commit) ([][]string, error) {
	out := make([][]string, len(commits))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.workers())

	for i, c := range commits {
		i, c := i, c
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			text := ""
			if c.Diff != nil {
				text = c.Diff.CanonicalText()
			}
			out[i] = similarity.Shingles(text, o.cfg.Arity)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// signAll dispatches one-hot encoding and MinHash signing per diff to the
// worker pool. The vocabulary and MinHash descriptors are read-only shared
// state across workers.
func (o *Orchestrator) signAll(ctx context.Context, shingleSets [][]string, vocab *similarity.Vocabulary, mh *similarity.MinHash) ([]similarity.Signature, error) {
	out := make([]similarity.Signature, len(shingleSets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.workers())

	for i, shingles := range shingleSets {
		i, shingles := i, shingles
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			h, err := vocab.OneHot(shingles)
			if err != nil {
				return err
			}
			sig, err := mh.Sign(h)
			if err != nil {
				return err
			}
			out[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// verifyAndOrient scores every candidate pair in parallel, using a shared
// Verifier whose L(d) cache is mutex-guarded, then orients confirmed pairs.
func (o *Orchestrator) verifyAndOrient(ctx context.Context, commits []gitdiff.Commit, candidates []similarity.Pair) ([]detect.Result, error) {
	verifier := similarity.NewVerifier()
	results := make([]*detect.Result, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.workers())

	for idx, pair := range candidates {
		idx, pair := idx, pair
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			a, b := commits[pair.Low], commits[pair.High]
			sim, ok := verifier.Confirmed(a.ID, a.Diff, b.ID, b.Diff, o.cfg.Threshold)
			if !ok {
				return nil
			}
			or := cherry.Orient(
				cherry.Commit{ID: a.ID, Timestamp: a.Timestamp},
				cherry.Commit{ID: b.ID, Timestamp: b.Timestamp},
			)
			results[idx] = &detect.Result{
				SearchMethod: detect.TraditionalLSH,
				Source:       or.Source.ID,
				Target:       or.Target.ID,
				Score:        sim,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]detect.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// SearchAll runs every requested detector kind against commits, merging
// their results. MessageScan and ExactDiffMatch run inline (they are cheap,
// single-pass scans); TraditionalLSH runs the full worker-pool pipeline.
func (o *Orchestrator) SearchAll(ctx context.Context, commits []gitdiff.Commit, kinds []detect.Kind) ([]detect.Result, error) {
	var all []detect.Result
	for _, kind := range kinds {
		switch kind {
		case detect.MessageScan:
			r, err := detect.NewMessageScanner().Search(commits)
			if err != nil {
				return nil, err
			}
			all = append(all, r...)
		case detect.ExactDiffMatch:
			r, err := detect.NewExactDiffMatcher().Search(commits)
			if err != nil {
				return nil, err
			}
			all = append(all, r...)
		case detect.TraditionalLSH:
			r, err := o.Search(ctx, commits)
			if err != nil {
				return nil, err
			}
			all = append(all, r...)
		}
	}
	return all, nil
}
