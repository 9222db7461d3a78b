// Command cherrysniff searches a git repository (a local path, or a remote
// URL it clones first) for cherry-picked commits and writes the confirmed
// matches to a Bolt-backed results file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.etcd.io/bbolt"

	"github.com/thehowl/cherrysniff/pkg/detect"
	"github.com/thehowl/cherrysniff/pkg/orchestrator"
	"github.com/thehowl/cherrysniff/pkg/storage"
	"github.com/thehowl/cherrysniff/pkg/store"
	"github.com/thehowl/cherrysniff/pkg/vcs"
	"github.com/thehowl/cherrysniff/pkg/webui"
)

type optsType struct {
	repoPath      string
	methods       string
	outFile       string
	arity         string
	signatureSize string
	bandSize      string
	threshold     string
	seed          string
	workers       string

	listenAddr     string
	s3Endpoint     string
	s3AccessKey    string
	s3AccessSecret string
	s3Bucket       string
	s3CacheBytes   string
}

func defaultEnv(s, def string) string {
	v, ok := os.LookupEnv(s)
	if ok {
		return v
	}
	return def
}

func stringVar(p *string, fg, defaultValue, usage string) {
	ev := strings.ReplaceAll(strings.ToUpper(fg), "-", "_")
	flag.StringVar(p, fg, defaultEnv(ev, defaultValue), usage+". env var: "+ev)
}

func main() {
	var opts optsType
	stringVar(&opts.repoPath, "repo", "", "local path or remote URL (containing \"://\") of the git repository to search")
	stringVar(&opts.methods, "methods", "MessageScan,ExactDiffMatch,TraditionalLSH",
		"comma-separated detector names to run")
	stringVar(&opts.outFile, "out", "cherrysniff.bolt", "file to write confirmed results to")
	stringVar(&opts.arity, "arity", "3", "shingle window size k")
	stringVar(&opts.signatureSize, "signature-size", "100", "MinHash signature length S")
	stringVar(&opts.bandSize, "band-size", "5", "LSH band size b; S must be divisible by b")
	stringVar(&opts.threshold, "threshold", "0.5", "verifier similarity threshold in [0,1]")
	stringVar(&opts.seed, "seed", "0", "RNG seed for vocabulary and MinHash permutations")
	stringVar(&opts.workers, "workers", "0", "worker pool size; 0 means runtime.NumCPU()")
	stringVar(&opts.listenAddr, "serve", "", "if set, serve a results browser on this address after searching (e.g. :18845)")
	stringVar(&opts.s3Endpoint, "s3-endpoint", "", "if set, archive every commit's canonical diff text to this s3-compatible endpoint; nothing is archived otherwise")
	stringVar(&opts.s3AccessKey, "s3-access-key", "", "s3 access key")
	stringVar(&opts.s3AccessSecret, "s3-access-secret", "", "s3 access secret")
	stringVar(&opts.s3Bucket, "s3-bucket", "cherrysniff", "s3 bucket for archived diff text")
	stringVar(&opts.s3CacheBytes, "s3-cache-bytes", "67108864", "size in bytes of the local LRU cache fronting the s3 archive")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(opts optsType) error {
	if opts.repoPath == "" {
		return fmt.Errorf("cherrysniff: -repo is required")
	}

	kinds, err := parseMethods(opts.methods)
	if err != nil {
		return err
	}

	arity, err := strconv.Atoi(opts.arity)
	if err != nil {
		return fmt.Errorf("cherrysniff: invalid -arity: %w", err)
	}
	signatureSize, err := strconv.Atoi(opts.signatureSize)
	if err != nil {
		return fmt.Errorf("cherrysniff: invalid -signature-size: %w", err)
	}
	bandSize, err := strconv.Atoi(opts.bandSize)
	if err != nil {
		return fmt.Errorf("cherrysniff: invalid -band-size: %w", err)
	}
	threshold, err := strconv.ParseFloat(opts.threshold, 64)
	if err != nil {
		return fmt.Errorf("cherrysniff: invalid -threshold: %w", err)
	}
	seed, err := strconv.ParseInt(opts.seed, 10, 64)
	if err != nil {
		return fmt.Errorf("cherrysniff: invalid -seed: %w", err)
	}
	workers, err := strconv.Atoi(opts.workers)
	if err != nil {
		return fmt.Errorf("cherrysniff: invalid -workers: %w", err)
	}

	loc := vcs.RepoLocation{Path: opts.repoPath}
	if strings.Contains(opts.repoPath, "://") {
		loc = vcs.RepoLocation{URL: opts.repoPath}
	}

	gate := vcs.NewRemoteSamplingGate(vcs.DefaultRemoteSamplingRequests, vcs.DefaultRemoteSamplingWindow)
	localPath, cleanup, err := vcs.CloneOrOpenGated(context.Background(), "", loc, gate)
	if err != nil {
		return fmt.Errorf("cherrysniff: resolving repository: %w", err)
	}
	defer cleanup()

	enumerator := vcs.NewGitCLIEnumerator()
	commits, err := enumerator.Enumerate(context.Background(), vcs.RepoLocation{Path: localPath})
	if err != nil {
		return fmt.Errorf("cherrysniff: loading repository: %w", err)
	}
	log.Printf("cherrysniff: loaded %d commits from %s", len(commits), opts.repoPath)

	o := orchestrator.New(orchestrator.Config{
		Arity:         arity,
		SignatureSize: signatureSize,
		BandSize:      bandSize,
		Threshold:     threshold,
		Seed:          seed,
		Workers:       workers,
	})

	results, err := o.SearchAll(context.Background(), commits, kinds)
	if err != nil {
		return fmt.Errorf("cherrysniff: search: %w", err)
	}
	log.Printf("cherrysniff: found %d confirmed matches", len(results))

	bdb, err := bbolt.Open(opts.outFile, 0o600, nil)
	if err != nil {
		return fmt.Errorf("cherrysniff: opening results file: %w", err)
	}
	defer bdb.Close()

	st := &store.Store{DB: bdb}
	if err := st.PutAll(results); err != nil {
		return fmt.Errorf("cherrysniff: writing results: %w", err)
	}

	var archive storage.Storage
	if opts.s3Endpoint != "" {
		// Archive every commit's canonical diff text to the configured
		// bucket, the way the remote-sampling collaborator would archive
		// patch payloads it has already paid a network round trip for,
		// fronted by a size-bounded local cache so repeated reads (e.g. the
		// results browser paging through a commit) never re-hit S3.
		cached, err := newCachedS3Storage(opts, bdb)
		if err != nil {
			return fmt.Errorf("cherrysniff: s3 storage: %w", err)
		}
		archive = cached
		for _, c := range commits {
			if c.Diff == nil {
				continue
			}
			if err := cached.Put(context.Background(), c.ID, []byte(c.Diff.CanonicalText())); err != nil {
				return fmt.Errorf("cherrysniff: archiving %s to s3: %w", c.ID, err)
			}
		}
	}

	if opts.listenAddr != "" {
		srv := &webui.Server{RepoPath: opts.repoPath, Store: st, Archive: archive}
		log.Printf("cherrysniff: serving results browser on %s", opts.listenAddr)
		return http.ListenAndServe(opts.listenAddr, srv.Router())
	}

	return nil
}

// newCachedS3Storage builds the archival tier: a size-bounded LRU cache
// (backed by a bucket in the same results file) fronting gzip-compressed
// objects in the configured S3-compatible bucket.
func newCachedS3Storage(opts optsType, resultsDB *bbolt.DB) (*storage.CachedStorage, error) {
	cl, err := minio.New(opts.s3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.s3AccessKey, opts.s3AccessSecret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, err
	}
	permanent := storage.NewGzipStorage(storage.NewS3Storage(cl, opts.s3Bucket))

	cacheBucket, err := storage.NewDBStorage(resultsDB, "patch-cache")
	if err != nil {
		return nil, err
	}
	maxCacheBytes, err := strconv.ParseUint(opts.s3CacheBytes, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cherrysniff: invalid -s3-cache-bytes: %w", err)
	}
	return storage.NewCachedStorage(cacheBucket, permanent, maxCacheBytes)
}

func parseMethods(s string) ([]detect.Kind, error) {
	var kinds []detect.Kind
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		switch detect.Kind(name) {
		case detect.MessageScan, detect.ExactDiffMatch, detect.TraditionalLSH:
			kinds = append(kinds, detect.Kind(name))
		default:
			return nil, fmt.Errorf("cherrysniff: unrecognised method %q", name)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("cherrysniff: no methods given")
	}
	return kinds, nil
}
