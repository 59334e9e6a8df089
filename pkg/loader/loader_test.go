package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pink/pink/pkg/errors"
)

func TestMapAndChain(t *testing.T) {
	ctx := context.Background()
	first := Map{"a.html": "A"}
	second := Map{"a.html": "shadowed", "b.html": "B"}
	chain := Chain{first, second}

	got, err := chain.Load(ctx, "a.html")
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))

	got, err = chain.Load(ctx, "b.html")
	require.NoError(t, err)
	assert.Equal(t, "B", string(got))

	_, err = chain.Load(ctx, "c.html")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, errors.KindLoad, errors.KindOf(err))
}

func TestChainStopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{
		Func(func(context.Context, string) ([]byte, error) { return nil, boom }),
		Map{"a": "A"},
	}
	_, err := chain.Load(context.Background(), "a")
	assert.ErrorIs(t, err, boom)
}

func TestFS(t *testing.T) {
	l := &FS{FS: fstest.MapFS{
		"components/card.html": {Data: []byte("<component><div></div></component>")},
	}}
	got, err := l.Load(context.Background(), "/components/card.html")
	require.NoError(t, err)
	assert.Contains(t, string(got), "<component>")

	_, err = l.Load(context.Background(), "components/missing.html")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = l.Load(context.Background(), "../escape.html")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ui/card.html":
			_, _ = w.Write([]byte("card"))
		case "/ui/broken.html":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l, err := NewHTTP(srv.URL + "/ui/")
	require.NoError(t, err)

	got, err := l.Load(context.Background(), "card.html")
	require.NoError(t, err)
	assert.Equal(t, "card", string(got))

	_, err = l.Load(context.Background(), "nope.html")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = l.Load(context.Background(), "broken.html")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, errors.KindLoad, errors.KindOf(err))
}

type countingLoader struct {
	calls int
	data  Map
}

func (c *countingLoader) Load(ctx context.Context, src string) ([]byte, error) {
	c.calls++
	return c.data.Load(ctx, src)
}

func TestMemoryCaches(t *testing.T) {
	origin := &countingLoader{data: Map{"a": "A"}}
	m, err := NewMemory(origin, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := m.Load(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "A", string(got))
	}
	assert.Equal(t, 1, origin.calls)

	_, err = m.Load(context.Background(), "missing")
	assert.Error(t, err)
	_, _ = m.Load(context.Background(), "missing")
	assert.Equal(t, 3, origin.calls, "misses are not cached")
	assert.Equal(t, 1, m.Len())

	m.Purge()
	assert.Zero(t, m.Len())
}

func TestDiskPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fragments.db")
	origin := &countingLoader{data: Map{"a": "A"}}

	d, err := OpenDisk(path, origin)
	require.NoError(t, err)
	got, err := d.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))
	require.NoError(t, d.Close())

	offline, err := OpenDisk(path, nil)
	require.NoError(t, err)
	defer offline.Close()

	got, err = offline.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))
	assert.Equal(t, 1, origin.calls)

	keys, err := offline.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)

	_, err = offline.Load(context.Background(), "b")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestS3Key(t *testing.T) {
	l := &S3{prefix: "site"}
	assert.Equal(t, "site/components/card.html", l.key("/components/card.html"))
	l.prefix = ""
	assert.Equal(t, "card.html", l.key(" card.html"))

	_, err := NewS3(S3Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewS3(S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
