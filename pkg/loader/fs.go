package loader

import (
	"context"
	"io/fs"
	"os"
	"path"
	"strings"
)

// FS loads fragments from a file system. Sources are slash-separated paths
// relative to the file system root; a leading slash is ignored.
type FS struct {
	FS fs.FS
}

// Dir returns an FS loader rooted at dir on the local disk.
func Dir(dir string) *FS {
	return &FS{FS: os.DirFS(dir)}
}

func (l *FS) Load(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(strings.TrimPrefix(src, "/"))
	if !fs.ValidPath(name) {
		return nil, notFound("loader.FS", src)
	}
	data, err := fs.ReadFile(l.FS, name)
	switch {
	case err == nil:
		return data, nil
	case os.IsNotExist(err):
		return nil, notFound("loader.FS", src)
	default:
		return nil, failed("loader.FS", src, err)
	}
}
