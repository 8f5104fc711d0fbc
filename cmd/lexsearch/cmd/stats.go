package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexsearch/internal/output"
	"github.com/Aman-CERP/lexsearch/internal/profiling"
	"github.com/Aman-CERP/lexsearch/internal/ui"
	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

type statsOptions struct {
	queries    []string
	fields     []string
	noWarm     bool
	jsonOutput bool
	profile    profiling.Options
}

func newStatsCmd() *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build the index and show engine statistics",
		Long: `Open the lexicon, build the search index for every field and
print the engine status, the search metrics and the query log.

Queries given with --query are run first, so their timings and terms show
up in the report.`,
		Example: `  lexsearch stats
  lexsearch stats --query hou --query "big house" --json
  lexsearch stats --cpuprofile cpu.prof --memprofile heap.prof`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.queries, "query", "q", nil, "Run this query before reporting (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.fields, "field", "F", nil, "Fields for --query (default headword)")
	cmd.Flags().BoolVar(&opts.noWarm, "no-warm", false, "Skip building the full index")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&opts.profile.CPU, "cpuprofile", "", "Write a CPU profile of the index build to this file")
	cmd.Flags().StringVar(&opts.profile.Heap, "memprofile", "", "Write a heap profile after the index build to this file")
	cmd.Flags().StringVar(&opts.profile.Trace, "trace", "", "Write an execution trace of the index build to this file")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, opts statsOptions) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	// Progress lines go to stderr so --json output stays parseable.
	out := output.New(cmd.ErrOrStderr(), noColor || ui.DetectNoColor())

	var prof *profiling.Session
	if opts.profile.Enabled() {
		prof, err = profiling.Start(opts.profile)
		if err != nil {
			return err
		}
		defer func() { _ = prof.Stop() }()
	}
	if !opts.noWarm {
		n, err := s.Warm(ctx)
		if err != nil {
			return err
		}
		out.Successf("Indexed %d fields over %d entries", n, s.Store().Len())
	}
	for _, q := range opts.queries {
		res, err := s.Search(ctx, searcher.Query{Text: q, Fields: opts.fields})
		if err != nil {
			return err
		}
		out.Infof("%q: %s", q, ui.Summary(res))
	}
	if prof != nil {
		if err := prof.Stop(); err != nil {
			return err
		}
		out.Successf("Profiles written (heap in use: %s)", ui.FormatBytes(int64(profiling.HeapInUse())))
	}

	info, err := statusInfo(s)
	if err != nil {
		return err
	}
	r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor())
	if opts.jsonOutput {
		return r.RenderJSON(info)
	}
	return r.Render(info)
}

func statusInfo(s *searcher.Searcher) (ui.StatusInfo, error) {
	samples, err := s.Metrics().Samples()
	if err != nil {
		return ui.StatusInfo{}, err
	}
	info := ui.StatusInfo{
		Path:           s.Path(),
		Entries:        s.Store().Len(),
		WritingSystems: s.WritingSystems().Codes(),
		Backend:        s.Backend(),
		Engines:        s.Status(),
		Metrics:        samples,
		Queries:        s.QueryLog().Snapshot(),
	}
	if fi, err := os.Stat(s.Path()); err == nil {
		info.FileSize = fi.Size()
	}
	return info, nil
}
