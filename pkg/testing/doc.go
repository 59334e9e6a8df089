// Package testing provides a harness for exercising pink documents in
// tests without a browser.
//
// # Quick Start
//
// Create a tester, pump a document, and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    tester := pinktest.NewTesterWithT(t, pink.WithGlobals(map[string]any{"n": 0}))
//	    tester.PumpHTML(`<button @click="n++">{{ n }}</button>`)
//
//	    // Find nodes
//	    button := tester.Find(pinktest.ByTag("button")).First()
//
//	    // Fire host events
//	    tester.Dispatch(pinktest.ByTag("button"), "click", nil)
//
//	    // Assert state
//	    if !tester.Find(pinktest.ByText("1")).Exists() {
//	        t.Error("expected counter to read 1")
//	    }
//	}
//
// # Golden Files
//
// Compare the rendered body against testdata/golden/<name>.golden:
//
//	tester.MatchesGolden(t, "counter")
//
// Regenerate golden files with:
//
//	go test ./... -update
//
// # Snapshot Testing
//
// Capture and compare the render tree, including template and scope
// state that the HTML does not show:
//
//	snapshot := tester.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/counter.snapshot.json")
//
// Update snapshots with:
//
//	PINK_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import pinktest "github.com/go-pink/pink/pkg/testing"
package testing
