package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/lexsearch/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lexicon over MCP",
		Long: `Start an MCP server on stdio exposing the search_lexicon and
index_status tools and the query log and metrics resources.

stdout carries only JSON-RPC messages; all logging goes to the log file
(see 'lexsearch logs').`,
		Example: `  # Register with an MCP client
  {"command": "lexsearch", "args": ["serve", "--watch"]}`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport, watch, cmd.Flags().Changed("watch"))
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the lexicon when its file changes")

	return cmd
}

// verifyStdinForMCP rejects an interactive stdin: MCP clients talk to the
// server over a pipe.
func verifyStdinForMCP() error {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return errors.New("stdin is a terminal: serve expects an MCP client on a pipe")
	}
	return nil
}

func runServe(ctx context.Context, transport string, watch, watchSet bool) error {
	if err := verifyStdinForMCP(); err != nil {
		return err
	}

	// stdout belongs to the protocol.
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	srv, err := mcp.NewServer(s, mcp.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if !watchSet {
		watch = a.cfg.Lexicon.Watch
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Serve(gctx, transport)
	})
	if watch {
		g.Go(func() error {
			err := s.Watch(gctx, func(changes int) {
				a.logger.Info("serve_lexicon_reloaded", slog.Int("changes", changes))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("serve_watch_stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return g.Wait()
}
