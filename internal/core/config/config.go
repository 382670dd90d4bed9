package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"treescope/internal/ast"
)

type Config struct {
	Version    int                 `toml:"version"`
	Paths      Paths               `toml:"paths"`
	DB         Database            `toml:"db"`
	Languages  map[string]Language `toml:"languages"`
	Queries    Queries             `toml:"queries"`
	Mapping    map[string]string   `toml:"mapping"`
	Docstrings Docstrings          `toml:"docstrings"`
	WatchPaths []string            `toml:"watch_paths"`
	Exclude    Exclude             `toml:"exclude"`
	Watch      Watch               `toml:"watch"`
	Metrics    Metrics             `toml:"metrics"`
	Tracing    Tracing             `toml:"tracing"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
	CacheDir    string `toml:"cache_dir"`
}

// Duration decodes TOML strings like "500ms" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type Database struct {
	Enabled     bool     `toml:"enabled"`
	Driver      string   `toml:"driver"`
	Path        string   `toml:"path"`
	BusyTimeout Duration `toml:"busy_timeout"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
	Filenames  []string `toml:"filenames"`
}

// Queries points at an on-disk directory of pattern files that override
// the built-in ones. Layout is <dir>/<language>/<category>.scm.
type Queries struct {
	Dir string `toml:"dir"`
}

type Docstrings struct {
	// Window is the maximum number of lines between a comment's end and
	// a declaration's start for the comment to become its docstring.
	Window int `toml:"window"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce Duration `toml:"debounce"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

type Tracing struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(&cfg); err != nil {
		return nil, err
	}
	if err := validateLanguages(&cfg); err != nil {
		return nil, err
	}
	if err := validateQueries(&cfg); err != nil {
		return nil, err
	}
	if err := validateMapping(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultMapping relates a pattern category to the node type its main
// captures produce. Config entries override single keys, never the table.
var DefaultMapping = map[string]string{
	"functions":  "FUNCTION",
	"classes":    "CLASS",
	"structs":    "STRUCT",
	"methods":    "METHOD",
	"variables":  "VARIABLE",
	"imports":    "INCLUDE",
	"includes":   "INCLUDE",
	"docstrings": "DOCSTRING",
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}
	if strings.TrimSpace(cfg.Paths.CacheDir) == "" {
		cfg.Paths.CacheDir = "data/cache"
	}

	if strings.TrimSpace(cfg.DB.Driver) == "" {
		cfg.DB.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "symbols.db"
	}
	if cfg.DB.BusyTimeout.Duration <= 0 {
		cfg.DB.BusyTimeout.Duration = 5 * time.Second
	}

	if cfg.Mapping == nil {
		cfg.Mapping = map[string]string{}
	}
	for category, nodeType := range DefaultMapping {
		if _, ok := cfg.Mapping[category]; !ok {
			cfg.Mapping[category] = nodeType
		}
	}

	if cfg.Docstrings.Window == 0 {
		cfg.Docstrings.Window = 5
	}

	if cfg.Watch.Debounce.Duration == 0 {
		cfg.Watch.Debounce.Duration = 500 * time.Millisecond
	}
	if len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{"."}
	}

	if strings.TrimSpace(cfg.Metrics.Address) == "" {
		cfg.Metrics.Address = "127.0.0.1:9650"
	}
	if strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		cfg.Tracing.Endpoint = "127.0.0.1:4317"
	}
}

func (l Language) IsEnabled() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; only version 1 is supported", cfg.Version)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if driver != "sqlite" {
		return fmt.Errorf("db.driver must be sqlite, got %q", cfg.DB.Driver)
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	for language, settings := range cfg.Languages {
		if strings.TrimSpace(language) == "" {
			return fmt.Errorf("languages key must not be empty")
		}
		for _, ext := range settings.Extensions {
			if strings.TrimSpace(ext) == "" {
				return fmt.Errorf("languages.%s.extensions must not include empty values", language)
			}
			if !strings.HasPrefix(ext, ".") {
				return fmt.Errorf("languages.%s.extensions entry %q must start with a dot", language, ext)
			}
		}
		for _, name := range settings.Filenames {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("languages.%s.filenames must not include empty values", language)
			}
		}
	}
	return nil
}

func validateQueries(cfg *Config) error {
	dir := strings.TrimSpace(cfg.Queries.Dir)
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("queries.dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("queries.dir %q is not a directory", dir)
	}
	return nil
}

func validateMapping(cfg *Config) error {
	for category, nodeType := range cfg.Mapping {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("mapping key must not be empty")
		}
		if ast.ParseNodeType(nodeType) == ast.NodeUnknown && nodeType != "UNKNOWN" {
			return fmt.Errorf("mapping.%s references unknown node type %q", category, nodeType)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Docstrings.Window < 0 {
		return fmt.Errorf("docstrings.window must be >= 0, got %d", cfg.Docstrings.Window)
	}
	if cfg.Metrics.Enabled && strings.TrimSpace(cfg.Metrics.Address) == "" {
		return fmt.Errorf("metrics.address must not be empty when metrics.enabled=true")
	}
	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		return fmt.Errorf("tracing.endpoint must not be empty when tracing.enabled=true")
	}
	return nil
}
