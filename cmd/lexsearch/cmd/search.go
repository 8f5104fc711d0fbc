package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexsearch/internal/ui"
	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	fields     []string
	ws         string
	exclude    int64
	limit      int
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search the lexicon once",
		Long: `Search the lexicon and print the matching entries.

Every word of the text must prefix-match a word of the field value.
Matching is case-insensitive. Results are listed in entry id order.`,
		Example: `  lexsearch search hou
  lexsearch search --field gloss --ws fr mais
  lexsearch search --field headword --field citation "big house"
  lexsearch search --json dwell`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.fields, "field", "F", nil, "Fields to search: "+strings.Join(searcher.AllFields, ", ")+" (default headword)")
	cmd.Flags().StringVar(&opts.ws, "ws", "", "Restrict gloss matching to one writing system")
	cmd.Flags().Int64Var(&opts.exclude, "exclude", 0, "Leave out this entry id")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum entries to print (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, text string, opts searchOptions) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	var extra []searcher.Option
	if opts.limit > 0 {
		extra = append(extra, searcher.WithMaxResults(opts.limit))
	}
	s, err := a.open(ctx, extra...)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res, err := s.Search(ctx, searcher.Query{
		Text:    text,
		Fields:  opts.fields,
		WS:      opts.ws,
		Exclude: opts.exclude,
	})
	if err != nil {
		return err
	}
	a.logger.Info("search_completed",
		slog.String("query", text),
		slog.String("field", res.Query.FieldLabel()),
		slog.Int("total", res.Total),
		slog.Duration("elapsed", res.Elapsed))

	r := ui.NewResultRenderer(uiConfig(cmd, true))
	if opts.jsonOutput {
		return r.RenderJSON(res)
	}
	return r.Render(res)
}
