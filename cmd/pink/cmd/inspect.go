package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/go-pink/pink/pkg/inspect"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <page.html>",
		Short: "Print the render tree of a page as JSON",
		Long: `Mount a page and print its render tree, including templates,
hidden nodes, directives and scope locals that the HTML does not show.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(inspect.Serialize(s.rt.Root(), 0))
		},
	}
}
