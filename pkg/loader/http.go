package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxFragmentSize bounds the body read from remote sources.
const maxFragmentSize = 4 << 20

// HTTP loads fragments over HTTP. Relative sources are resolved against
// Base.
type HTTP struct {
	Base   *url.URL
	Client *http.Client
}

// NewHTTP returns an HTTP loader resolving sources against base.
func NewHTTP(base string) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &HTTP{Base: u, Client: &http.Client{Timeout: 30 * time.Second}}, nil
}

func (l *HTTP) Load(ctx context.Context, src string) ([]byte, error) {
	ref, err := url.Parse(src)
	if err != nil {
		return nil, failed("loader.HTTP", src, err)
	}
	target := ref
	if l.Base != nil {
		target = l.Base.ResolveReference(ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, failed("loader.HTTP", src, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, failed("loader.HTTP", src, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, notFound("loader.HTTP", src)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, failed("loader.HTTP", src, fmt.Errorf("unexpected status %s", resp.Status))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentSize))
	if err != nil {
		return nil, failed("loader.HTTP", src, err)
	}
	return data, nil
}
