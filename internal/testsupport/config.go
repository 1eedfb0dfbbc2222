package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subweave/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are zeroed so fallback tiers run without waiting.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Bulk.RetryDelaySeconds = 0
	cfgVal.Bulk.AttemptTimeoutSeconds = 5
	cfgVal.Translation.Backend = config.BackendBulk
	cfgVal.Translation.Rewrap = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBulkURL points the bulk provider at a test server.
func WithBulkURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bulk.BaseURL = url
	}
}

// WithStructured selects the structured backend with the given provider,
// endpoint, and credentials.
func WithStructured(provider, baseURL string, keys ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.Backend = config.BackendStructured
		b.cfg.Structured.Provider = provider
		b.cfg.Structured.BaseURL = baseURL
		b.cfg.Structured.APIKeys = keys
	}
}

// WithCacheDisabled turns the translation memory off.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// WriteConfig encodes cfg as TOML under the config's base directory and
// returns the file path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
