package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-pink/pink/cmd/pink/internal/cache"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "pink CLI version %s (built %s, cache %s)\n", Version, BuildTime, cache.Version())
			return err
		},
	}
}
