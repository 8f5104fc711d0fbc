package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/lexsearch/configs"
	"github.com/Aman-CERP/lexsearch/internal/config"
	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/output"
	"github.com/Aman-CERP/lexsearch/internal/ui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage lexsearch configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/lexsearch/config.yaml)
  3. Project config (.lexsearch.yaml)
  4. Environment variables (LEXSEARCH_*)
  5. Command line flags (--backend, --lexicon)`,
		Example: `  # Create user config with defaults
  lexsearch config init

  # Create a project config in the current directory
  lexsearch config init --project

  # Show effective configuration
  lexsearch config show`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
		sample  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Long: `Create the user configuration file, or with --project a
.lexsearch.yaml in the current directory.

With --force an existing file keeps its settings and gains any options
added since it was written. With --project --sample a small lexicon.yaml
is written next to the project file if none exists.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !project {
				if sample {
					return lexerrors.ValidationError("--sample requires --project", nil)
				}
				return runConfigInit(cmd, config.GetUserConfigPath(), "", force)
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			if err := runConfigInit(cmd, filepath.Join(cwd, config.ProjectFileName), configs.ProjectConfigTemplate, force); err != nil {
				return err
			}
			if sample {
				return writeSampleLexicon(cmd, filepath.Join(cwd, config.NewConfig().Lexicon.Path))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing file with new defaults")
	cmd.Flags().BoolVar(&project, "project", false, "Write .lexsearch.yaml in the current directory")
	cmd.Flags().BoolVar(&sample, "sample", false, "With --project, also write a sample lexicon.yaml")

	return cmd
}

// runConfigInit writes the config at path. A non-empty template is written
// verbatim; otherwise the defaults are marshaled.
func runConfigInit(cmd *cobra.Command, path, template string, force bool) error {
	out := output.New(cmd.OutOrStdout(), noColor || ui.DetectNoColor())

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Detailf("Location: %s", path)
			out.Detail("Use --force to add new default options (your settings are kept)")
			return nil
		}
		return runConfigUpgrade(out, path)
	}

	var err error
	if template != "" {
		err = os.WriteFile(path, []byte(template), 0o644)
	} else {
		err = config.NewConfig().WriteYAML(path)
	}
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	out.Success("Created configuration")
	out.Detailf("Location: %s", path)
	out.Detail("Run 'lexsearch config show' to see the effective settings")
	return nil
}

// runConfigUpgrade keeps a backup, then rewrites path with any missing
// defaults filled in.
func runConfigUpgrade(out *output.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	backup := path + ".bak"
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return fmt.Errorf("failed to backup config: %w", err)
	}

	cfg := &config.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	added := cfg.MergeNewDefaults()
	if err := cfg.WriteYAML(path); err != nil {
		return fmt.Errorf("failed to write upgraded config: %w", err)
	}

	out.Success("Configuration upgraded")
	out.Detailf("Location: %s", path)
	out.Detailf("Backup: %s", backup)
	if len(added) == 0 {
		out.Detail("Already up to date")
		return nil
	}
	out.Detail("New options added with defaults:")
	for _, field := range added {
		out.Detailf("  - %s", field)
	}
	return nil
}

// writeSampleLexicon writes the bundled lexicon to path unless a file is
// already there.
func writeSampleLexicon(cmd *cobra.Command, path string) error {
	out := output.New(cmd.OutOrStdout(), noColor || ui.DetectNoColor())
	if _, err := os.Stat(path); err == nil {
		out.Info("Lexicon already exists, sample not written")
		out.Detailf("Location: %s", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(configs.SampleLexicon), 0o644); err != nil {
		return lexerrors.New(lexerrors.ErrCodeFilePermission, "failed to write sample lexicon", err).
			WithDetail("path", path)
	}
	out.Success("Created sample lexicon")
	out.Detailf("Location: %s", path)
	out.Detail("Try 'lexsearch search hou'")
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging all sources and flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
