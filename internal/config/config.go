// Package config loads lexsearch configuration from defaults, the user
// config file, a project file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/lexsearch/internal/store"
)

const (
	// ProjectFileName is the per-project config file.
	ProjectFileName = ".lexsearch.yaml"

	// projectFileAlt is accepted when ProjectFileName is absent.
	projectFileAlt = ".lexsearch.yml"

	// CurrentVersion is the config schema version written by WriteYAML.
	CurrentVersion = 1
)

// Config represents the complete lexsearch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Lexicon LexiconConfig `yaml:"lexicon" json:"lexicon"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig configures the search engines.
type SearchConfig struct {
	// Backend selects the string index: "memory", "bleve" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`

	// RegistrySize is how many named engines stay open at once.
	RegistrySize int `yaml:"registry_size" json:"registry_size"`

	// MaxResults caps the hits printed or returned per search. Zero means
	// no cap.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// LexiconConfig locates the lexicon and controls reloading.
type LexiconConfig struct {
	// Path is the lexicon YAML file. Relative paths in a project file are
	// resolved against the project directory.
	Path string `yaml:"path" json:"path"`

	// Watch reloads the lexicon when the file changes.
	Watch bool `yaml:"watch" json:"watch"`

	// WatchDebounce is a duration string such as "200ms".
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`

	// WritingSystems are registered before the lexicon is loaded, fixing
	// their ids.
	WritingSystems []string `yaml:"writing_systems" json:"writing_systems"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Search: SearchConfig{
			Backend:      store.BackendMemory,
			RegistrySize: 16,
			MaxResults:   50,
		},
		Lexicon: LexiconConfig{
			Path:          "lexicon.yaml",
			WatchDebounce: "200ms",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user's global config file,
// following XDG: $XDG_CONFIG_HOME/lexsearch/config.yaml, falling back to
// ~/.config/lexsearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lexsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "lexsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "lexsearch", "config.yaml")
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	var parsed Config
	if err := readYAML(path, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Load builds the configuration for the project in dir.
//
// Precedence, lowest first:
//  1. defaults
//  2. user config
//  3. project file (.lexsearch.yaml or .lexsearch.yml in dir)
//  4. LEXSEARCH_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile builds the configuration from defaults, an explicit file and
// the environment. The user config is not consulted.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ProjectFile returns the project config file in dir, or "" if there is
// none.
func ProjectFile(dir string) string {
	for _, name := range []string{ProjectFileName, projectFileAlt} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadFromFile(dir string) error {
	path := ProjectFile(dir)
	if path == "" {
		return nil
	}
	return c.loadYAML(path)
}

// loadYAML merges the file at path into c. A relative lexicon path is
// made relative to the file's directory.
func (c *Config) loadYAML(path string) error {
	var parsed Config
	if err := readYAML(path, &parsed); err != nil {
		return err
	}
	if p := parsed.Lexicon.Path; p != "" && !filepath.IsAbs(p) {
		parsed.Lexicon.Path = filepath.Join(filepath.Dir(path), p)
	}
	c.mergeWith(&parsed)
	return nil
}

func readYAML(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith copies the non-zero values of other into c. Writing systems
// are appended, skipping codes c already lists.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Search.Backend != "" {
		c.Search.Backend = other.Search.Backend
	}
	if other.Search.RegistrySize != 0 {
		c.Search.RegistrySize = other.Search.RegistrySize
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Lexicon.Path != "" {
		c.Lexicon.Path = other.Lexicon.Path
	}
	// A bool cannot say "unset", so watch can only be switched on by a
	// file. LEXSEARCH_WATCH switches it off.
	if other.Lexicon.Watch {
		c.Lexicon.Watch = true
	}
	if other.Lexicon.WatchDebounce != "" {
		c.Lexicon.WatchDebounce = other.Lexicon.WatchDebounce
	}
	for _, ws := range other.Lexicon.WritingSystems {
		if !slices.Contains(c.Lexicon.WritingSystems, ws) {
			c.Lexicon.WritingSystems = append(c.Lexicon.WritingSystems, ws)
		}
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LEXSEARCH_BACKEND"); v != "" {
		c.Search.Backend = v
	}
	if v := os.Getenv("LEXSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LEXSEARCH_LEXICON"); v != "" {
		c.Lexicon.Path = v
	}
	if v := os.Getenv("LEXSEARCH_WATCH_DEBOUNCE"); v != "" {
		c.Lexicon.WatchDebounce = v
	}
	if v := os.Getenv("LEXSEARCH_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Lexicon.Watch = b
		}
	}
	if v := os.Getenv("LEXSEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.MaxResults = n
		}
	}
}

// Validate checks the configuration for values the program cannot use.
func (c *Config) Validate() error {
	if !store.IsValidBackend(c.Search.Backend) {
		return fmt.Errorf("search.backend must be one of %s, got %s",
			strings.Join(store.Backends, ", "), c.Search.Backend)
	}
	if c.Search.RegistrySize < 1 {
		return fmt.Errorf("search.registry_size must be at least 1, got %d", c.Search.RegistrySize)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}

	if _, err := c.WatchDebounce(); err != nil {
		return err
	}
	for _, ws := range c.Lexicon.WritingSystems {
		if strings.TrimSpace(ws) == "" {
			return fmt.Errorf("lexicon.writing_systems must not contain empty codes")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return fmt.Errorf("logging.max_size_mb and logging.max_files must be non-negative")
	}
	return nil
}

// WatchDebounce parses Lexicon.WatchDebounce.
func (c *Config) WatchDebounce() (time.Duration, error) {
	d, err := time.ParseDuration(c.Lexicon.WatchDebounce)
	if err != nil {
		return 0, fmt.Errorf("lexicon.watch_debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("lexicon.watch_debounce must be non-negative, got %s", d)
	}
	return d, nil
}

// WriteYAML writes the configuration to path, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeNewDefaults fills settings an older config file lacks and returns
// their dotted names.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Version == 0 {
		c.Version = defaults.Version
		added = append(added, "version")
	}
	if c.Search.Backend == "" {
		c.Search.Backend = defaults.Search.Backend
		added = append(added, "search.backend")
	}
	if c.Search.RegistrySize == 0 {
		c.Search.RegistrySize = defaults.Search.RegistrySize
		added = append(added, "search.registry_size")
	}
	if c.Lexicon.WatchDebounce == "" {
		c.Lexicon.WatchDebounce = defaults.Lexicon.WatchDebounce
		added = append(added, "lexicon.watch_debounce")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		added = append(added, "logging.level")
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
		added = append(added, "logging.max_size_mb")
	}
	if c.Logging.MaxFiles == 0 {
		c.Logging.MaxFiles = defaults.Logging.MaxFiles
		added = append(added, "logging.max_files")
	}
	return added
}

// FindProjectRoot walks up from startDir looking for a project config file
// or a .git directory. It returns startDir, made absolute, if neither is
// found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	dir := absDir
	for {
		if ProjectFile(dir) != "" || dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
