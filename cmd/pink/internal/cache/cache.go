// Package cache provides centralized cache directory resolution for pink.
//
// Priority order: --cache-dir flag > PINK_CACHE_DIR env > ~/.pink default.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// DevVersion names the fragment cache of non-release builds.
const DevVersion = "dev"

var global struct {
	version    string
	rawVersion string
	cacheDir   string
}

// SetGlobal initializes the cache resolver with the CLI version.
// This should be called at startup from the root command.
func SetGlobal(version string) {
	global.rawVersion = strings.TrimSpace(version)
	global.version = NormalizeVersion(version)
}

// NormalizeVersion returns a clean release version, or empty if the version
// is not a valid release (e.g., dev builds, pseudo-versions from go install).
// Explicit prerelease tags (v0.2.0-rc1) are allowed.
//
// Examples:
//
//	"v0.1.0"                          -> "v0.1.0"
//	"0.1.0"                           -> "v0.1.0"
//	"pink-v0.1.0"                     -> "v0.1.0"
//	"v0.2.0-rc1"                      -> "v0.2.0-rc1" (prerelease allowed)
//	"0.1.0-dev"                       -> "" (dev build)
//	"v0.2.1-0.20260122153045-abc123"  -> "" (pseudo-version)
func NormalizeVersion(version string) string {
	version = strings.TrimPrefix(strings.TrimSpace(version), "pink-")
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}

	// Reject -dev builds and Go pseudo-versions
	if strings.HasSuffix(version, "-dev") || strings.Contains(version, "-0.") {
		return ""
	}
	if !semver.IsValid(version) || semver.Canonical(version) != version || semver.Build(version) != "" {
		return ""
	}
	return version
}

// Version returns the release version fragment caches are keyed by, or
// DevVersion for non-release builds.
func Version() string {
	if global.version != "" {
		return global.version
	}
	return DevVersion
}

// SetCacheDir sets an override for the cache directory.
// This is typically called when parsing the --cache-dir flag.
func SetCacheDir(dir string) {
	global.cacheDir = dir
}

// Root returns the cache root directory.
// Priority: --cache-dir flag > PINK_CACHE_DIR env > ~/.pink default.
func Root() (string, error) {
	if global.cacheDir != "" {
		return global.cacheDir, nil
	}

	if envDir := os.Getenv("PINK_CACHE_DIR"); envDir != "" {
		return envDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	return filepath.Join(home, ".pink"), nil
}

// FragmentsDir returns the fragment cache directory of the running version.
// Returns: <cache_root>/fragments/<version>
func FragmentsDir() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "fragments", Version()), nil
}

// FragmentDB returns the fragment cache database of a project, creating
// its directory. Projects outside a Go module share the "default" slug.
// Returns: <cache_root>/fragments/<version>/<module_slug>.db
func FragmentDB(modulePath string) (string, error) {
	dir, err := FragmentsDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return filepath.Join(dir, slug(modulePath)+".db"), nil
}

func slug(modulePath string) string {
	if modulePath == "" {
		return "default"
	}
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(modulePath)
}

// Versions lists the versions with a fragment cache, highest release
// first. Non-release caches sort last.
func Versions() ([]string, error) {
	root, err := Root()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(root, "fragments"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	// semver.Compare treats invalid versions as lower than valid ones.
	slices.SortFunc(versions, func(a, b string) int {
		if c := semver.Compare(b, a); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return versions, nil
}

// Clean removes the fragment caches of every version.
func Clean() error {
	root, err := Root()
	if err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(root, "fragments"))
}
