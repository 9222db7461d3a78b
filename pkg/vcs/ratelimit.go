package vcs

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RemoteSamplingGate throttles remote I/O (e.g. cloning or probing
// candidate repositories) behind one token bucket shared by every goroutine
// that holds it: on average `requests` admissions per `window`, with a burst
// of `requests`. It does not cap admissions within a rolling window at
// `requests`: a full burst followed by the steady refill admits almost
// twice `requests` within one window.
// It does not affect the core similarity-search pipeline, which never makes
// remote calls.
type RemoteSamplingGate struct {
	limiter *rate.Limiter
}

// DefaultRemoteSamplingWindow and DefaultRemoteSamplingRequests match the
// collaborator's default cooldown: 10 requests per 60 seconds.
const (
	DefaultRemoteSamplingRequests = 10
	DefaultRemoteSamplingWindow   = 60 * time.Second
)

// NewRemoteSamplingGate builds a gate admitting requests per window, spread
// evenly across the window (a token bucket with that average refill rate
// and a burst equal to the full allotment).
func NewRemoteSamplingGate(requests int, window time.Duration) *RemoteSamplingGate {
	if requests <= 0 {
		requests = DefaultRemoteSamplingRequests
	}
	if window <= 0 {
		window = DefaultRemoteSamplingWindow
	}
	every := window / time.Duration(requests)
	return &RemoteSamplingGate{limiter: rate.NewLimiter(rate.Every(every), requests)}
}

// Wait blocks until the gate admits the caller or ctx is done.
func (g *RemoteSamplingGate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now, consuming a slot
// if so, without blocking.
func (g *RemoteSamplingGate) Allow() bool {
	return g.limiter.Allow()
}
