package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-pink/pink/cmd/pink/internal/cache"
	"github.com/go-pink/pink/pkg/loader"
)

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the fragment cache",
		Long: `Fragments fetched from remote origins are kept in a per-project
database under the cache directory, keyed by CLI version.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached fragments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove every cached fragment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cache.Clean(); err != nil {
				return err
			}
			root, _ := cache.Root()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed fragment caches under %s\n", root)
			return err
		},
	})

	return cmd
}

func runCacheList(cmd *cobra.Command) error {
	root, err := cache.Root()
	if err != nil {
		return err
	}
	versions, err := cache.Versions()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(versions) == 0 {
		_, err := fmt.Fprintf(out, "no fragment caches under %s\n", root)
		return err
	}

	for _, version := range versions {
		dbs, err := filepath.Glob(filepath.Join(root, "fragments", version, "*.db"))
		if err != nil {
			return err
		}
		for _, path := range dbs {
			keys, err := cachedKeys(path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "%s %s (%d fragments)\n", version, filepath.Base(path), len(keys))
			for _, k := range keys {
				fmt.Fprintf(out, "  %s\n", k)
			}
		}
	}
	return nil
}

func cachedKeys(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	disk, err := loader.OpenDisk(path, nil)
	if err != nil {
		return nil, err
	}
	defer disk.Close()
	return disk.Keys()
}
