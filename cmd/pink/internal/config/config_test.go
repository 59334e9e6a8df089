package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PINK_COMPONENTS_DIR", "PINK_COMPONENTS_URL", "PINK_LOG_LEVEL", "PINK_LOG_FORMAT",
		"PINK_S3_BUCKET", "PINK_S3_ENDPOINT", "PINK_S3_REGION", "PINK_S3_ACCESS_KEY",
		"PINK_S3_SECRET_KEY", "PINK_S3_PREFIX", "PINK_S3_USE_SSL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestResolveDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	r, err := Resolve(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, r.Root)
	assert.Empty(t, r.ModulePath)
	assert.Equal(t, "latest", r.EngineVersion)
	assert.Equal(t, DefaultMaxIterations, r.MaxIterations)
	assert.Equal(t, DefaultCacheSize, r.CacheSize)
	assert.Equal(t, DefaultLogLevel, r.LogLevel)
	assert.Equal(t, DefaultLogFormat, r.LogFormat)
	assert.Nil(t, r.S3)
	assert.False(t, r.Remote())
}

func TestResolveFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/site\n\ngo 1.24\n")
	writeFile(t, dir, FileName, `
engine:
  version: 1.2.0
  maxIterations: 50
components:
  dir: components
  url: https://cdn.example.com/fragments/
  cacheSize: 8
log:
  level: debug
  format: json
globals:
  title: Hello
  items: [1, 2]
`)

	r, err := Resolve(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "example.com/site", r.ModulePath)
	assert.Equal(t, "1.2.0", r.EngineVersion)
	assert.Equal(t, 50, r.MaxIterations)
	assert.Equal(t, filepath.Join(dir, "components"), r.ComponentsDir)
	assert.Equal(t, "https://cdn.example.com/fragments/", r.ComponentsURL)
	assert.Equal(t, 8, r.CacheSize)
	assert.Equal(t, "debug", r.LogLevel)
	assert.Equal(t, "json", r.LogFormat)
	assert.Equal(t, "Hello", r.Globals["title"])
	assert.True(t, r.Remote())
}

func TestResolveEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, FileName, "components:\n  dir: from-file\nlog:\n  level: info\n")
	writeFile(t, dir, ".env", "PINK_LOG_LEVEL=warn\n")
	abs := filepath.Join(t.TempDir(), "shared")
	t.Setenv("PINK_COMPONENTS_DIR", abs)
	t.Setenv("PINK_S3_BUCKET", "fragments")
	t.Setenv("PINK_S3_ENDPOINT", "localhost:9000")
	t.Setenv("PINK_S3_USE_SSL", "false")

	r, err := Resolve(dir, "")
	require.NoError(t, err)
	assert.Equal(t, abs, r.ComponentsDir)
	assert.Equal(t, "warn", r.LogLevel)
	require.NotNil(t, r.S3)
	assert.Equal(t, &S3Resolved{
		Endpoint: "localhost:9000",
		Region:   "us-east-1",
		Bucket:   "fragments",
		UseSSL:   false,
	}, r.S3)
}

func TestResolveExplicitPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, t.TempDir(), "site.yaml", "log:\n  format: text\n")

	r, err := Resolve(dir, path)
	require.NoError(t, err)
	assert.Equal(t, "text", r.LogFormat)

	_, err = Resolve(dir, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "unknown key", content: "engine:\n  speed: 3\n"},
		{name: "bad level", content: "log:\n  level: loud\n"},
		{name: "bad format", content: "log:\n  format: xml\n"},
		{name: "negative iterations", content: "engine:\n  maxIterations: -1\n"},
		{name: "bad url", content: "components:\n  url: ftp://example.com\n"},
		{name: "bad version", content: "engine:\n  version: banana\n"},
		{name: "bucket without endpoint", content: "components:\n  s3:\n    bucket: b\n"},
		{name: "bad ssl env", content: "", env: map[string]string{"PINK_S3_BUCKET": "b", "PINK_S3_USE_SSL": "maybe"}},
		{name: "bad yaml", content: "engine: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			writeFile(t, dir, FileName, tt.content)

			_, err := Resolve(dir, "")
			assert.Error(t, err)
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, "")
	nested := filepath.Join(root, "pages", "blog")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
