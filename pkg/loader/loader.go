// Package loader fetches component fragment sources.
//
// A Loader resolves the src attribute of a component element to the raw
// fragment markup. Loaders compose: caches wrap a backing loader and Chain
// falls through a list of loaders until one has the fragment.
package loader

import (
	"context"
	"fmt"

	"github.com/go-pink/pink/pkg/errors"
)

// Loader fetches fragment sources by identifier.
type Loader interface {
	// Load returns the fragment markup for src. A missing fragment yields
	// an error matching errors.ErrNotFound.
	Load(ctx context.Context, src string) ([]byte, error)
}

// Func adapts a function to Loader.
type Func func(ctx context.Context, src string) ([]byte, error)

func (f Func) Load(ctx context.Context, src string) ([]byte, error) { return f(ctx, src) }

// ErrNotFound is returned, wrapped, for fragments no loader can provide.
var ErrNotFound = errors.ErrNotFound

func notFound(op, src string) error {
	return &errors.PinkError{Op: op, Kind: errors.KindLoad, Err: fmt.Errorf("%w: %s", ErrNotFound, src)}
}

func failed(op, src string, err error) error {
	if errors.KindOf(err) == errors.KindLoad {
		return err
	}
	return &errors.PinkError{Op: op, Kind: errors.KindLoad, Err: fmt.Errorf("load %s: %w", src, err)}
}

// Chain tries each loader in order and returns the first fragment found.
// Errors other than not-found stop the chain.
type Chain []Loader

func (c Chain) Load(ctx context.Context, src string) ([]byte, error) {
	for _, l := range c {
		data, err := l.Load(ctx, src)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, notFound("loader.Chain", src)
}

// Map serves fragments from memory. It is mainly useful in tests and for
// fragments compiled into a binary.
type Map map[string]string

func (m Map) Load(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, ok := m[src]
	if !ok {
		return nil, notFound("loader.Map", src)
	}
	return []byte(s), nil
}
