package vcs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemoteSamplingGateAllowsUpToBurst(t *testing.T) {
	g := NewRemoteSamplingGate(3, time.Minute)
	allowed := 0
	for i := 0; i < 3; i++ {
		if g.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestRemoteSamplingGateRejectsBeyondBurst(t *testing.T) {
	g := NewRemoteSamplingGate(1, time.Minute)
	assert.True(t, g.Allow())
	assert.False(t, g.Allow())
}

func TestRemoteSamplingGateDefaultsWhenUnset(t *testing.T) {
	g := NewRemoteSamplingGate(0, 0)
	assert.True(t, g.Allow())
}
