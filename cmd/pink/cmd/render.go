package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		output   string
		bodyOnly bool
	)

	cmd := &cobra.Command{
		Use:   "render <page.html>",
		Short: "Render a page to static HTML",
		Long: `Mount a page, wait for its components to load, and print the
resulting document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			html, err := s.rt.HTML()
			if err != nil {
				return err
			}
			if bodyOnly {
				html = s.host.InnerHTML(s.host.Body())
			}

			if output == "" || output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
				return err
			}
			return os.WriteFile(output, []byte(html+"\n"), 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&bodyOnly, "body", false, "print only the body contents")

	return cmd
}
