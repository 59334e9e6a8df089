package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pink/pink/cmd/pink/internal/cache"
	"github.com/go-pink/pink/pkg/inspect"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pink", cmd.Use)
	assert.Contains(t, cmd.Long, "reactive directives")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{{"render"}, {"serve"}, {"inspect"}, {"cache"}, {"cache", "list"}, {"cache", "clean"}, {"version"}}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	for _, name := range []string{"log-level", "log-format", "cache-dir"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}

	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	addr := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "127.0.0.1:9797", addr.DefValue)
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	t.Logf("stderr: %s", errOut.String())
	return out.String(), err
}

func project(t *testing.T, config string, files map[string]string) string {
	t.Helper()
	for _, k := range []string{"PINK_COMPONENTS_DIR", "PINK_COMPONENTS_URL", "PINK_S3_BUCKET", "PINK_LOG_LEVEL", "PINK_LOG_FORMAT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	files["pink.yaml"] = config
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

const page = `<html><head></head><body><component src="card.html"></component><p>{{ title }}</p></body></html>`

func TestRenderPage(t *testing.T) {
	dir := project(t, "components:\n  dir: components\nglobals:\n  title: Hello\n", map[string]string{
		"index.html":           page,
		"components/card.html": `<component><b>card</b></component>`,
	})

	out, err := run(t, "render", "--body", "--log-format", "text", filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<b>card</b><p>Hello</p>\n", out)

	target := filepath.Join(dir, "out.html")
	_, err = run(t, "render", "-o", target, filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "<html><head></head><body><b>card</b><p>Hello</p></body></html>\n", string(data))
}

func TestRenderMissingComponentStillRenders(t *testing.T) {
	dir := project(t, "globals:\n  title: Hi\n", map[string]string{"index.html": page})

	out, err := run(t, "render", "--body", filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi</p>\n", out)
}

func TestRenderRemoteFragmentsAreCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fragments/card.html" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte(`<component><i>remote</i></component>`))
	}))
	defer srv.Close()

	prev := cache.Version()
	cache.SetGlobal("0.5.0")
	t.Cleanup(func() { cache.SetGlobal(prev); cache.SetCacheDir("") })

	cacheDir := t.TempDir()
	dir := project(t, "components:\n  url: "+srv.URL+"/fragments/\nglobals:\n  title: T\n", map[string]string{"index.html": page})

	for range 2 {
		out, err := run(t, "render", "--body", "--cache-dir", cacheDir, filepath.Join(dir, "index.html"))
		require.NoError(t, err)
		assert.Equal(t, "<i>remote</i><p>T</p>\n", out)
	}
	assert.Equal(t, int32(1), hits.Load(), "second render should be served from the disk cache")

	out, err := run(t, "cache", "list", "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "v0.5.0 default.db (1 fragments)")
	assert.Contains(t, out, "  card.html")

	_, err = run(t, "cache", "clean", "--cache-dir", cacheDir)
	require.NoError(t, err)
	out, err = run(t, "cache", "list", "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "no fragment caches")
}

func TestInspectPrintsTree(t *testing.T) {
	dir := project(t, "globals:\n  xs: [a, b]\n", map[string]string{
		"index.html": `<html><body><ul><li for="x of xs">{{ x }}</li></ul></body></html>`,
	})

	out, err := run(t, "inspect", filepath.Join(dir, "index.html"))
	require.NoError(t, err)

	var tree inspect.TreeNode
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	assert.Equal(t, "body", tree.Tag)
	require.Len(t, tree.Children, 1)
	ul := tree.Children[0]
	require.Len(t, ul.Children, 3)
	assert.True(t, ul.Children[0].Template)
	assert.Equal(t, "a", ul.Children[1].Locals["x"])
}

func TestRejectsInvalidFlags(t *testing.T) {
	dir := project(t, "", map[string]string{"index.html": page})

	_, err := run(t, "render", "--log-format", "xml", filepath.Join(dir, "index.html"))
	assert.ErrorContains(t, err, "invalid log format")

	_, err = run(t, "render", "--log-level", "loud", filepath.Join(dir, "index.html"))
	assert.Error(t, err)

	_, err = run(t, "render")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pink CLI version "+Version)
}
