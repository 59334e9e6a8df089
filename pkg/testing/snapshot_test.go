package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pink/pink/pkg/pink"
)

type recordingT struct {
	name   string
	fatals []string
	errors []string
}

func (r *recordingT) Helper()      {}
func (r *recordingT) Name() string { return r.name }
func (r *recordingT) Fatalf(format string, args ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, args...))
}
func (r *recordingT) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestMatchesGolden(t *testing.T) {
	tester := NewTesterWithT(t, pink.WithGlobals(map[string]any{"n": 0}))
	tester.PumpHTML(counterPage)
	tester.Dispatch(ByTag("button"), "click", nil)

	tester.MatchesGolden(t, "counter_clicked")
}

func TestCaptureSnapshot(t *testing.T) {
	tester := pumpList(t)
	snap := tester.CaptureSnapshot()

	if snap.Tree == nil {
		t.Fatal("expected a tree")
	}
	if snap.Tree.Tag != "body" {
		t.Errorf("expected body root, got %q", snap.Tree.Tag)
	}
	if !strings.Contains(snap.HTML, `<li class="row">b</li>`) {
		t.Errorf("expected rendered items in %q", snap.HTML)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	tester := pumpList(t)
	path := filepath.Join(t.TempDir(), "snapshots", "list.snapshot.json")

	snap := tester.CaptureSnapshot()
	if err := snap.UpdateFile(path); err != nil {
		t.Fatal(err)
	}

	rt := &recordingT{name: "TestSnapshot_RoundTrip"}
	snap.MatchesFile(rt, path)
	if len(rt.fatals)+len(rt.errors) != 0 {
		t.Fatalf("expected match, got fatals=%v errors=%v", rt.fatals, rt.errors)
	}

	if err := tester.Set("xs", []any{"a"}); err != nil {
		t.Fatal(err)
	}
	changed := tester.CaptureSnapshot()
	if changed.Diff(snap) == "" {
		t.Fatal("expected diff after removing items")
	}
	rt = &recordingT{name: "TestSnapshot_RoundTrip"}
	changed.MatchesFile(rt, path)
	if len(rt.errors) != 1 || !strings.Contains(rt.errors[0], "PINK_UPDATE_SNAPSHOTS=1") {
		t.Errorf("expected one mismatch report, got %v", rt.errors)
	}
}

func TestSnapshot_MissingFile(t *testing.T) {
	tester := pumpList(t)
	rt := &recordingT{name: "TestSnapshot_MissingFile"}

	tester.CaptureSnapshot().MatchesFile(rt, filepath.Join(t.TempDir(), "absent.json"))
	if len(rt.fatals) != 1 || !strings.Contains(rt.fatals[0], "snapshot file missing") {
		t.Errorf("expected missing file report, got %v", rt.fatals)
	}
}

func TestSnapshot_UpdateEnv(t *testing.T) {
	tester := pumpList(t)
	path := filepath.Join(t.TempDir(), "updated.json")
	t.Setenv("PINK_UPDATE_SNAPSHOTS", "1")

	rt := &recordingT{name: "TestSnapshot_UpdateEnv"}
	tester.CaptureSnapshot().MatchesFile(rt, path)
	if len(rt.fatals) != 0 {
		t.Fatalf("unexpected failure: %v", rt.fatals)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected snapshot to be written: %v", err)
	}
}
