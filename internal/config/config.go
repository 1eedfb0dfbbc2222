package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Translation selects the backend and output behaviour of translate runs.
type Translation struct {
	// Backend is "bulk", "structured", or empty for automatic selection.
	Backend        string `toml:"backend"`
	TargetLanguage string `toml:"target_language"`
	Overwrite      bool   `toml:"overwrite"`
	// Rewrap re-wraps translated cues to their original line count.
	Rewrap bool `toml:"rewrap"`
}

// Bulk contains settings for the free-text machine translation backend.
type Bulk struct {
	Provider              string  `toml:"provider"`
	BaseURL               string  `toml:"base_url"`
	MaxChars              int     `toml:"max_chars"`
	Concurrency           int     `toml:"concurrency"`
	AttemptTimeoutSeconds int     `toml:"attempt_timeout_seconds"`
	RetryDelaySeconds     float64 `toml:"retry_delay_seconds"`
	HardMarkerAttempts    int     `toml:"hard_marker_attempts"`
	PerLineAttempts       int     `toml:"per_line_attempts"`
	EchoThreshold         float64 `toml:"echo_threshold"`
	RequestsPerSecond     float64 `toml:"requests_per_second"`
}

// Structured contains settings for the schema-constrained LLM backend.
type Structured struct {
	Provider          string   `toml:"provider"`
	APIKeys           []string `toml:"api_keys"`
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	Referer           string   `toml:"referer"`
	Title             string   `toml:"title"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	Temperature       float64  `toml:"temperature"`
	TopP              float64  `toml:"top_p"`
	TopK              int      `toml:"top_k"`
	MaxOutputTokens   int      `toml:"max_output_tokens"`
	BatchSize         int      `toml:"batch_size"`
	Concurrency       int      `toml:"concurrency"`
	ValidationRetries int      `toml:"validation_retries"`
}

// Layout contains font and line layout settings.
type Layout struct {
	FontFamily      string   `toml:"font_family"`
	FontSize        float64  `toml:"font_size"`
	FontDirs        []string `toml:"font_dirs"`
	MaxLineWidthPx  float64  `toml:"max_line_width_px"`
	MaxLines        int      `toml:"max_lines"`
	ExtraEndSeconds float64  `toml:"extra_end_seconds"`
}

// Summary contains settings for long-form summary generation.
type Summary struct {
	ChunkChars           int    `toml:"chunk_chars"`
	MaxOutputTokens      int    `toml:"max_output_tokens"`
	FinalMaxOutputTokens int    `toml:"final_max_output_tokens"`
	MaxRounds            int    `toml:"max_rounds"`
	ContinuationChars    int    `toml:"continuation_chars"`
	EndMarker            string `toml:"end_marker"`
}

// Cache contains settings for the translation memory.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for subweave.
//
// Configuration sections by subsystem:
//   - Paths: cache and log directories
//   - Logging: log format and level
//   - Translation: backend selection and output handling
//   - Bulk: free-text machine translation tiers and pool
//   - Structured: LLM provider, credentials, and sampling
//   - Layout: font metrics and line wrapping
//   - Summary: long-form generation limits
//   - Cache: translation memory
type Config struct {
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	Translation Translation `toml:"translation"`
	Bulk        Bulk        `toml:"bulk"`
	Structured  Structured  `toml:"structured"`
	Layout      Layout      `toml:"layout"`
	Summary     Summary     `toml:"summary"`
	Cache       Cache       `toml:"cache"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subweave.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "subweave")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/subweave"
	}
	return filepath.Join(home, ".cache", "subweave")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// CachePath returns the translation memory database path, or "" when the
// cache is disabled.
func (c *Config) CachePath() string {
	if !c.Cache.Enabled {
		return ""
	}
	if strings.TrimSpace(c.Cache.Path) != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Paths.CacheDir, "translations.db")
}

// HasStructuredCredentials reports whether any LLM credential is configured.
func (c *Config) HasStructuredCredentials() bool {
	return len(c.Structured.APIKeys) > 0
}

// ResolvedBackend returns the effective translation backend. An empty
// translation.backend selects structured when credentials exist.
func (c *Config) ResolvedBackend() string {
	switch c.Translation.Backend {
	case BackendBulk, BackendStructured:
		return c.Translation.Backend
	}
	if c.HasStructuredCredentials() {
		return BackendStructured
	}
	return BackendBulk
}
