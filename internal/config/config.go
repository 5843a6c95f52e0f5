// internal/config/config.go
//
// This package handles configuration and the .stencil directory structure.
// Stencil keeps its settings, activity log, and downloaded artifacts in a
// .stencil/ folder under the user's home directory (overridable for tests
// and for per-project setups).

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StencilDir is the name of the directory we create.
const StencilDir = ".stencil"

const (
	defaultBaseURL         = "http://127.0.0.1:8000"
	defaultTimeoutSeconds  = 120
	defaultAnalysisMode    = "rules"
	defaultHistoryPageSize = 5
)

const defaultConfigYAML = `# stencil configuration
version: 1

api:
  # Base URL of the template service.
  base_url: http://127.0.0.1:8000
  timeout_seconds: 120

analysis:
  # Extraction strategy the service should use: rules, llm, or hybrid.
  mode: rules

# Where fetched template artifacts are written. Relative paths resolve
# against the directory holding .stencil/.
download_dir: ""

# How many history entries each side panel shows before "more".
history_page_size: 5
`

// APIConfig holds the backend connection settings.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AnalysisConfig selects the extraction strategy sent with analyze calls.
type AnalysisConfig struct {
	Mode string `yaml:"mode"`
}

// FileConfig models .stencil/config.yaml.
type FileConfig struct {
	Version         int            `yaml:"version"`
	API             APIConfig      `yaml:"api"`
	Analysis        AnalysisConfig `yaml:"analysis"`
	DownloadDir     string         `yaml:"download_dir"`
	HistoryPageSize int            `yaml:"history_page_size"`
}

// Config holds the runtime configuration for Stencil.
type Config struct {
	// BaseDir is the directory that holds .stencil/ (normally $HOME).
	BaseDir string

	// StencilDir is BaseDir/.stencil.
	StencilDir string

	File FileConfig
}

// InitStencilDir creates the .stencil directory structure in baseDir and
// writes a default config.yaml if none exists.
//
// Structure created:
// .stencil/
// ├── config.yaml
// ├── logs/        <- activity journal
// └── downloads/   <- fetched template artifacts
func InitStencilDir(baseDir string) error {
	dir := filepath.Join(baseDir, StencilDir)
	for _, sub := range []string{
		filepath.Join(dir, "logs"),
		filepath.Join(dir, "downloads"),
	} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return err
		}
	}
	return ensureConfigFile(filepath.Join(dir, "config.yaml"))
}

// NewConfig loads the configuration rooted at baseDir. A missing config
// file yields the defaults; a malformed or invalid one is an error.
func NewConfig(baseDir string) (*Config, error) {
	cfg := &Config{
		BaseDir:    baseDir,
		StencilDir: filepath.Join(baseDir, StencilDir),
		File:       defaultFileConfig(),
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.StencilDir, "config.yaml")
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StencilDir, "logs")
}

// DownloadDir returns where fetched artifacts are written.
func (c *Config) DownloadDir() string {
	if c.File.DownloadDir != "" {
		return c.File.DownloadDir
	}
	return filepath.Join(c.StencilDir, "downloads")
}

// BaseURL returns the configured backend root.
func (c *Config) BaseURL() string {
	return c.File.API.BaseURL
}

// AnalysisMode returns the configured extraction strategy.
func (c *Config) AnalysisMode() string {
	return c.File.Analysis.Mode
}

// HistoryPageSize returns how many entries a side panel shows per page.
func (c *Config) HistoryPageSize() int {
	return c.File.HistoryPageSize
}

// SetAnalysisMode updates the extraction strategy and persists the value
// back to config.yaml so future launches keep it.
func (c *Config) SetAnalysisMode(mode string) error {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if err := validateMode(mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.File.Analysis.Mode = mode
	return c.save()
}

func (c *Config) load() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.BaseDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.File = parsed
	return nil
}

func (c *Config) save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.File.applyDefaults()
	c.File.normalize(c.BaseDir)
	if err := c.File.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.StencilDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure stencil dir: %w", err)
	}
	data, err := yaml.Marshal(c.File)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		API: APIConfig{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Analysis:        AnalysisConfig{Mode: defaultAnalysisMode},
		HistoryPageSize: defaultHistoryPageSize,
	}
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if fc.API.TimeoutSeconds == 0 {
		fc.API.TimeoutSeconds = defaultTimeoutSeconds
	}
	if fc.HistoryPageSize == 0 {
		fc.HistoryPageSize = defaultHistoryPageSize
	}
}

func (fc *FileConfig) normalize(base string) {
	fc.API.BaseURL = strings.TrimRight(strings.TrimSpace(fc.API.BaseURL), "/")
	if fc.API.BaseURL == "" {
		fc.API.BaseURL = defaultBaseURL
	}
	fc.Analysis.Mode = strings.ToLower(strings.TrimSpace(fc.Analysis.Mode))
	if fc.Analysis.Mode == "" {
		fc.Analysis.Mode = defaultAnalysisMode
	}
	fc.DownloadDir = resolvePath(base, fc.DownloadDir)
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if fc.API.TimeoutSeconds < 1 {
		return fmt.Errorf("api.timeout_seconds must be >= 1")
	}
	if err := validateMode(fc.Analysis.Mode); err != nil {
		return err
	}
	if fc.HistoryPageSize < 1 {
		return fmt.Errorf("history_page_size must be >= 1")
	}
	return nil
}

func validateMode(mode string) error {
	switch mode {
	case "rules", "llm", "hybrid":
		return nil
	}
	return fmt.Errorf("analysis.mode must be 'rules', 'llm', or 'hybrid'")
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
