package cherry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrientEarlierTimestampIsSource(t *testing.T) {
	a := Commit{ID: "b", Timestamp: 100}
	b := Commit{ID: "a", Timestamp: 200}

	o := Orient(a, b)
	assert.Equal(t, a, o.Source)
	assert.Equal(t, b, o.Target)

	// Order-independence: swapping arguments must not change the result.
	o2 := Orient(b, a)
	assert.Equal(t, o, o2)
}

func TestOrientTiesBreakByCommitID(t *testing.T) {
	a := Commit{ID: "aaa", Timestamp: 100}
	b := Commit{ID: "zzz", Timestamp: 100}

	o := Orient(b, a)
	assert.Equal(t, a, o.Source)
	assert.Equal(t, b, o.Target)
}
