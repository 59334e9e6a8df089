package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-pink/pink/pkg/inspect"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <page.html>",
		Short: "Serve a live page with the inspection server",
		Long: `Mount a page and keep it running behind the inspection server.

Endpoints:
  /html     rendered document
  /tree     render tree as JSON
  /health   liveness probe
  /ws       live session: host events in, re-rendered HTML out

Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, rootOpts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			srv := inspect.New(s.rt, s.logger)
			bound, err := srv.Start(addr)
			if err != nil {
				return err
			}
			defer srv.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s\n", args[0], bound)

			if err := s.rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9797", "listen address")

	return cmd
}
