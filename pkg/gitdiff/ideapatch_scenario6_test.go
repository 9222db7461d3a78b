package gitdiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/cherrysniff/pkg/gitdiff"
	"github.com/thehowl/cherrysniff/pkg/vcs"
)

// ideaHunkBody is the unified-diff hunk body shared by both fixtures below,
// so the only difference between them is the file-header convention (IDE
// export vs. plain `git show` output).
const ideaHunkBody = `@@ -15,18 +15,3 @@
        println!("So much!");
    }
}
-
-fn foo() {
-    println!("foo!");
-}
`

const scenario6IdeaPatch = `===================================================================
diff --git a/src/main.rs b/src/main.rs
--- a/src/main.rs	(revision 3d4a3d51f625a660587ec92e186a5fd458841638)
+++ b/src/main.rs	(revision 4e39e242712568e6f9f5b6ff113839603b722683)
` + ideaHunkBody

const scenario6VcsStream = `diff --git a/src/main.rs b/src/main.rs
--- a/src/main.rs
+++ b/src/main.rs
` + ideaHunkBody

// TestIdeaPatchHashEqualsEquivalentVcsStream is the §8 Scenario 6 seed test:
// a diff for a src/main.rs change, parsed once from the
// IDE-export patch form and once from the plain unified-diff form a VCS
// stream would produce, must hash-equal and round-trip the same canonical
// text.
func TestIdeaPatchHashEqualsEquivalentVcsStream(t *testing.T) {
	ideaDiff := gitdiff.ParseIdeaPatch(scenario6IdeaPatch)
	vcsDiff, err := vcs.ParseUnifiedDiff([]byte(scenario6VcsStream))
	require.NoError(t, err)

	assert.True(t, ideaDiff.Equal(vcsDiff), "IDE-parsed diff must structurally equal the VCS-stream diff")
	assert.Equal(t, vcsDiff.StructuralHash(), ideaDiff.StructuralHash())

	text := ideaDiff.CanonicalText()
	reparsed := gitdiff.ParseIdeaPatch(text)
	assert.Equal(t, text, reparsed.CanonicalText(), "canonical text must round-trip through re-parsing")
}
