package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/ui"
	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

var errNotInteractive = lexerrors.ValidationError("browse needs an interactive terminal", nil).
	WithSuggestion("Use 'lexsearch search <text>' in scripts and pipes")

func newBrowseCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "browse [text]",
		Short: "Search the lexicon as you type",
		Long: `Open an interactive browser over the lexicon. Results update on
every keystroke; tab switches the searched field, enter shows the selected
entry's senses and ctrl+r reloads the lexicon file.

With --watch (or lexicon.watch in the config) the lexicon is reloaded
whenever its file changes on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var watchOverride *bool
			if cmd.Flags().Changed("watch") {
				watchOverride = &watch
			}
			return runBrowse(cmd.Context(), cmd, strings.Join(args, " "), watchOverride)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the lexicon when its file changes")

	return cmd
}

func runBrowse(ctx context.Context, cmd *cobra.Command, initial string, watchOverride *bool) error {
	uc := uiConfig(cmd, false)
	if !uc.Interactive() {
		return errNotInteractive
	}

	// The browser owns the terminal, so logs go to the file only.
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	poster := ui.NewPoster()
	s, err := a.open(ctx, searcher.WithPoster(poster))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	watch := a.cfg.Lexicon.Watch
	if watchOverride != nil {
		watch = *watchOverride
	}
	return ui.NewBrowser(s, poster, uc, ui.BrowserOptions{
		Watch:        watch,
		InitialQuery: initial,
		Logger:       a.logger,
	}).Run(ctx)
}
