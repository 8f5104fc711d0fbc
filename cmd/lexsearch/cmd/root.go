// Package cmd provides the CLI commands for lexsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexsearch/internal/config"
	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/logging"
	"github.com/Aman-CERP/lexsearch/internal/ui"
	"github.com/Aman-CERP/lexsearch/pkg/searcher"
	"github.com/Aman-CERP/lexsearch/pkg/version"
)

// Persistent flags shared by every command.
var (
	configPath  string
	debugMode   bool
	backendFlag string
	lexiconFlag string
	noColor     bool
)

// NewRootCmd creates the root command for the lexsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.Name,
		Short: "Incremental search over dictionary lexicons",
		Long: `lexsearch searches a YAML lexicon by headword, gloss, citation form,
category or sense. Indexes are built lazily, one field at a time, and kept
up to date as the lexicon changes.

Use 'lexsearch browse' for search-as-you-type, 'lexsearch search' for
one-shot queries and 'lexsearch serve' to expose the lexicon to AI
assistants over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate(version.Name + " version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config + .lexsearch.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "String index backend: memory, bleve, sqlite")
	cmd.PersistentFlags().StringVar(&lexiconFlag, "lexicon", "", "Lexicon file (overrides config)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, lexerrors.FormatForCLI(err))
	}
	return err
}

// loadConfig resolves the effective configuration: --config replaces the
// user and project files, and --backend / --lexicon win over everything.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cwd, werr := os.Getwd()
		if werr != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", werr)
		}
		root, rerr := config.FindProjectRoot(cwd)
		if rerr != nil {
			root = cwd
		}
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, err
	}

	if backendFlag != "" {
		cfg.Search.Backend = backendFlag
	}
	if lexiconFlag != "" {
		cfg.Lexicon.Path = lexiconFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, lexerrors.ConfigError("invalid configuration", err)
	}
	return cfg, nil
}

// app is the per-invocation state of a command that opens the lexicon.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

// newApp loads the configuration and starts logging. fileOnly keeps log
// records off stderr, for commands that own the terminal or stdio.
func newApp(fileOnly bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: debugMode && !fileOnly,
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		// An unwritable log directory must not stop searches.
		logger, cleanup = logging.Discard(), func() {}
		slog.SetDefault(logger)
	}
	return &app{cfg: cfg, logger: logger, cleanup: cleanup}, nil
}

// open opens the configured lexicon.
func (a *app) open(ctx context.Context, opts ...searcher.Option) (*searcher.Searcher, error) {
	return searcher.Open(ctx, a.cfg, append([]searcher.Option{searcher.WithLogger(a.logger)}, opts...)...)
}

func (a *app) close() {
	a.cleanup()
}

// uiConfig returns terminal settings for cmd's stdout.
func uiConfig(cmd *cobra.Command, forcePlain bool) ui.Config {
	return ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(noColor || ui.DetectNoColor()), ui.WithForcePlain(forcePlain))
}
