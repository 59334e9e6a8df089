// Package cmd implements the pink CLI commands.
//
// The command structure follows standard Go CLI patterns with a root command
// that dispatches to subcommands (render, serve, inspect, cache, version).
package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/go-pink/pink/cmd/pink/internal/cache"
	"github.com/go-pink/pink/pkg/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	CacheDir   string
}

var validFormats = []string{string(logging.FormatAuto), string(logging.FormatText), string(logging.FormatJSON)}

// NewRootCommand creates the root command for the pink CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pink",
		Short: "pink - reactive HTML without a build step",
		Long: `pink renders HTML documents annotated with reactive directives:
interpolation, conditionals, repeats, bindings, events and components
loaded from fragment files.

Use "pink <command> --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogFormat != "" && !slices.Contains(validFormats, opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, validFormats)
			}
			if opts.LogLevel != "" {
				if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
					return err
				}
			}
			if opts.CacheDir != "" {
				cache.SetCacheDir(opts.CacheDir)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default: pink.yaml in the project root)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (auto|text|json)")
	cmd.PersistentFlags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (default: ~/.pink, or $PINK_CACHE_DIR)")

	// Add subcommands
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewCacheCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Execute runs the CLI with os.Args.
func Execute() error {
	cache.SetGlobal(Version)
	return NewRootCommand().Execute()
}
