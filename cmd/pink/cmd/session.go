package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-pink/pink/cmd/pink/internal/cache"
	"github.com/go-pink/pink/cmd/pink/internal/config"
	pinkerrors "github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/host/htmlhost"
	"github.com/go-pink/pink/pkg/loader"
	"github.com/go-pink/pink/pkg/logging"
	"github.com/go-pink/pink/pkg/pink"
)

// session is a mounted page together with the resources it holds.
type session struct {
	cfg     *config.Resolved
	logger  *slog.Logger
	host    *htmlhost.Host
	rt      *pink.Runtime
	closers []func() error
}

// openSession resolves configuration for page, mounts it and waits for
// its component loads. Load errors are logged, not returned: the page is
// still usable without the failed components.
func openSession(ctx context.Context, opts *RootOptions, page string, stderr io.Writer) (*session, error) {
	root, err := config.FindProjectRoot(filepath.Dir(page))
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  firstSet(opts.LogLevel, cfg.LogLevel),
		Format: logging.Format(firstSet(opts.LogFormat, cfg.LogFormat)),
		Writer: stderr,
	})
	if err != nil {
		return nil, err
	}
	pinkerrors.SetHandler(&pinkerrors.LogHandler{Logger: logger})

	s := &session{cfg: cfg, logger: logger}
	fragments, err := s.buildLoader()
	if err != nil {
		s.Close()
		return nil, err
	}

	f, err := os.Open(page)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.host, err = htmlhost.Parse(f)
	f.Close()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to parse %s: %w", page, err)
	}

	s.rt, err = pink.New(
		pink.WithHost(s.host),
		pink.WithLoader(fragments),
		pink.WithLogger(logger),
		pink.WithGlobals(cfg.Globals),
		pink.WithMaxIterations(cfg.MaxIterations),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, func() error { s.rt.Close(); return nil })

	if _, err := s.rt.Mount(ctx, s.host.Body()); err != nil {
		logger.Warn("initialization reported errors", "page", page, "err", err)
	}
	if err := s.rt.Settle(ctx); err != nil {
		if ctx.Err() != nil {
			s.Close()
			return nil, err
		}
		logger.Warn("component loads failed", "page", page, "err", err)
	}
	logger.Debug("page mounted", "page", page, "root", root, "module", cfg.ModulePath)
	return s, nil
}

// buildLoader assembles the fragment sources: the components directory
// first, then remote origins behind the on-disk cache, all behind an
// in-memory cache.
func (s *session) buildLoader() (loader.Loader, error) {
	var chain loader.Chain
	if s.cfg.ComponentsDir != "" {
		chain = append(chain, loader.Dir(s.cfg.ComponentsDir))
	}

	if s.cfg.Remote() {
		var remote loader.Chain
		if s.cfg.ComponentsURL != "" {
			l, err := loader.NewHTTP(s.cfg.ComponentsURL)
			if err != nil {
				return nil, err
			}
			remote = append(remote, l)
		}
		if c := s.cfg.S3; c != nil {
			l, err := loader.NewS3(loader.S3Config{
				Endpoint:  c.Endpoint,
				Region:    c.Region,
				AccessKey: c.AccessKey,
				SecretKey: c.SecretKey,
				Bucket:    c.Bucket,
				Prefix:    c.Prefix,
				UseSSL:    c.UseSSL,
			})
			if err != nil {
				return nil, err
			}
			remote = append(remote, l)
		}

		path, err := cache.FragmentDB(s.cfg.ModulePath)
		if err != nil {
			return nil, err
		}
		disk, err := loader.OpenDisk(path, remote)
		if err != nil {
			s.logger.Warn("fragment cache unavailable", "path", path, "err", err)
			chain = append(chain, remote)
		} else {
			s.closers = append(s.closers, disk.Close)
			chain = append(chain, disk)
		}
	}

	return loader.NewMemory(chain, s.cfg.CacheSize)
}

// Close releases the session's resources in reverse order.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
