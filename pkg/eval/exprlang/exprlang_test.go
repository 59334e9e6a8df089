package exprlang

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/reactive"
	"github.com/go-pink/pink/pkg/track"
)

// objectEnv exposes a reactive object as an environment.
type objectEnv struct {
	obj  *reactive.Object
	gets []string
}

func (e *objectEnv) Get(name string) (any, bool) {
	e.gets = append(e.gets, name)
	return e.obj.Get(name)
}

func (e *objectEnv) Set(name string, v any) error {
	e.obj.Set(name, v)
	return nil
}

func newEnv(tr *track.Tracker, values map[string]any) *objectEnv {
	return &objectEnv{obj: reactive.ObjectOf(values, tr)}
}

func TestEvalBasics(t *testing.T) {
	ev := New()
	env := eval.MapEnv{"x": 2, "name": "pink", "$value": "v"}
	tests := []struct {
		code string
		want any
	}{
		{"1 + 2", 3},
		{"x > 0", true},
		{"x === 2", true},
		{"x !== 2", false},
		{"name + '!'", "pink!"},
		{"x > 1 ? 'big' : 'small'", "big"},
		{"$value", "v"},
		{"str(x)", "2"},
		{"missing", nil},
		{"'a === b'", "a === b"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ev.Eval(tt.code, env)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.code, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Eval(%q) mismatch (-want +got):\n%s", tt.code, diff)
			}
		})
	}
}

func TestMemberReadsAreTracked(t *testing.T) {
	tr := track.New()
	env := newEnv(tr, map[string]any{
		"user":  map[string]any{"name": "ada", "age": 36},
		"other": 1,
	})
	userV, _ := env.obj.Peek("user")
	user := userV.(*reactive.Object)

	var got any
	records := tr.Track(func() {
		var err error
		got, err = New().Eval("user.name", env)
		if err != nil {
			t.Fatal(err)
		}
	})
	if got != "ada" {
		t.Errorf("user.name = %v", got)
	}
	want := map[uint64][]any{
		env.obj.ID(): {"user"},
		user.ID():    {"name"},
	}
	gotRecords := make(map[uint64][]any)
	for _, r := range records {
		gotRecords[r.Target.ID()] = r.Keys
	}
	if diff := cmp.Diff(want, gotRecords); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestOnlyReferencedIdentifiersResolved(t *testing.T) {
	env := newEnv(nil, map[string]any{"a": 1, "b": 2, "c": 3})
	if _, err := New().Eval("a + b + length([1])", env); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, env.gets); diff != "" {
		t.Errorf("resolved identifiers (-want +got):\n%s", diff)
	}
}

func TestExecStatements(t *testing.T) {
	ev := New()
	env := newEnv(nil, map[string]any{
		"count": 1,
		"user":  map[string]any{"age": 1},
		"items": []any{"a", "b"},
	})

	script := "count = count + 1; count += 10\nuser.age++; items[1] = 'z'; let label = 'hi'"
	if err := ev.Exec(script, env); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	want := map[string]any{
		"count": 12,
		"user":  map[string]any{"age": 2},
		"items": []any{"a", "z"},
		"label": "hi",
	}
	if diff := cmp.Diff(want, reactive.Raw(env.obj)); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalReturnsLastStatement(t *testing.T) {
	env := eval.MapEnv{"n": 1}
	got, err := New().Eval("n = n * 5; n - 1", env)
	if err != nil {
		t.Fatal(err)
	}
	if got != 4 {
		t.Errorf("got %v, want 4", got)
	}
}

func TestBuiltinsOverContainers(t *testing.T) {
	ev := New()
	env := newEnv(nil, map[string]any{
		"items": []any{1, 2, 3},
		"obj":   map[string]any{"a": 1},
	})
	tests := []struct {
		code string
		want any
	}{
		{"len(items)", 3},
		{"length(items)", 3},
		{"items.length", 3},
		{"filter(items, # > 1)", []any{2, 3}},
		{"'a' in obj", true},
		{"'b' in obj", false},
		{"keys(obj)", []any{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ev.Eval(tt.code, env)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.code, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCallablesFromEnv(t *testing.T) {
	env := eval.MapEnv{
		"greet": func(name string) string { return "hi " + name },
	}
	got, err := New().Eval("greet('ada')", env)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi ada" {
		t.Errorf("got %v", got)
	}

	fn, err := New().Eval("greet", env)
	if err != nil {
		t.Fatal(err)
	}
	if !eval.Callable(fn) {
		t.Errorf("greet evaluated to %T, want a function", fn)
	}
}

func TestAssign(t *testing.T) {
	env := newEnv(nil, map[string]any{"form": map[string]any{"name": ""}})
	ev := New()
	if err := ev.Assign("form.name", "ada", env); err != nil {
		t.Fatal(err)
	}
	if err := ev.Assign("form['email']", "a@b", env); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"form": map[string]any{"name": "ada", "email": "a@b"}}
	if diff := cmp.Diff(want, reactive.Raw(env.obj)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if err := ev.Assign("1 + 2", 3, env); err == nil {
		t.Error("assigning to a non-path should fail")
	}
}

func TestEvalErrors(t *testing.T) {
	_, err := New().Eval("1 +", eval.MapEnv{})
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	if errors.KindOf(err) != errors.KindEval {
		t.Errorf("KindOf = %v, want eval", errors.KindOf(err))
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		stmt string
		want assignment
		ok   bool
	}{
		{"x = 1", assignment{target: "x", rhs: "1"}, true},
		{"a.b += c", assignment{target: "a.b", op: '+', rhs: "c"}, true},
		{"items[i] = 'x'", assignment{target: "items[i]", rhs: "'x'"}, true},
		{"count++", assignment{target: "count", op: '+', rhs: "1"}, true},
		{"--count", assignment{target: "count", op: '-', rhs: "1"}, true},
		{"let y = 2", assignment{target: "y", rhs: "2"}, true},
		{"x == 1", assignment{}, false},
		{"x <= 1", assignment{}, false},
		{"f(a = 1)", assignment{}, false},
		{"'a = b'", assignment{}, false},
	}
	for _, tt := range tests {
		got, ok := parseAssignment(tt.stmt)
		if ok != tt.ok {
			t.Errorf("parseAssignment(%q) ok = %v, want %v", tt.stmt, ok, tt.ok)
			continue
		}
		if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(assignment{})); diff != "" {
			t.Errorf("parseAssignment(%q) mismatch (-want +got):\n%s", tt.stmt, diff)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("a = 1; b = 'x;y'\nf(1;\n2)")
	want := []string{"a = 1", "b = 'x;y'", "f(1;\n2)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitStatementsContinuedLines(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"a &&\n b", []string{"a &&\n b"}},
		{"a\n  && b", []string{"a\n  && b"}},
		{"user\n.name", []string{"user\n.name"}},
		{"ok ?\n 1 :\n 2", []string{"ok ?\n 1 :\n 2"}},
		{"n++\nm = 2", []string{"n++", "m = 2"}},
		{"a = 1\n--b", []string{"a = 1", "--b"}},
		{"x = 1\ny = 2", []string{"x = 1", "y = 2"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitStatements(tt.src)); diff != "" {
			t.Errorf("splitStatements(%q) mismatch (-want +got):\n%s", tt.src, diff)
		}
	}
}

func TestEvalMultilineCondition(t *testing.T) {
	ev := New()
	env := eval.MapEnv{"a": true, "b": false}
	got, err := ev.Eval("a &&\n  !b", env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != true {
		t.Errorf("Eval = %v, want true", got)
	}
}
