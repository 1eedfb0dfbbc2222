package config

import (
	"fmt"
	"os"
	"strings"

	"subweave/internal/credentials"
	"subweave/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	if err := c.normalizeTranslation(); err != nil {
		return err
	}
	c.normalizeBulk()
	c.normalizeStructured()
	if err := c.normalizeLayout(); err != nil {
		return err
	}
	c.normalizeSummary()
	return c.normalizeCache()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeTranslation() error {
	c.Translation.Backend = strings.ToLower(strings.TrimSpace(c.Translation.Backend))
	c.Translation.TargetLanguage = strings.TrimSpace(c.Translation.TargetLanguage)
	if c.Translation.TargetLanguage == "" {
		return nil
	}
	code, err := language.Canonical(c.Translation.TargetLanguage)
	if err != nil {
		return fmt.Errorf("translation.target_language: %w", err)
	}
	c.Translation.TargetLanguage = code
	return nil
}

func (c *Config) normalizeBulk() {
	c.Bulk.Provider = strings.ToLower(strings.TrimSpace(c.Bulk.Provider))
	if c.Bulk.Provider == "" {
		c.Bulk.Provider = defaultBulkProvider
	}
	c.Bulk.BaseURL = strings.TrimSpace(c.Bulk.BaseURL)
	if c.Bulk.BaseURL == "" {
		c.Bulk.BaseURL = defaultBulkBaseURL
	}
	if c.Bulk.MaxChars <= 0 {
		c.Bulk.MaxChars = defaultBulkMaxChars
	}
	if c.Bulk.Concurrency <= 0 {
		c.Bulk.Concurrency = defaultBulkConcurrency
	}
	if c.Bulk.AttemptTimeoutSeconds <= 0 {
		c.Bulk.AttemptTimeoutSeconds = defaultBulkAttemptTimeout
	}
	if c.Bulk.RetryDelaySeconds < 0 {
		c.Bulk.RetryDelaySeconds = 0
	}
	if c.Bulk.HardMarkerAttempts < 0 {
		c.Bulk.HardMarkerAttempts = 0
	}
	if c.Bulk.PerLineAttempts <= 0 {
		c.Bulk.PerLineAttempts = defaultPerLineAttempts
	}
	if c.Bulk.EchoThreshold == 0 {
		c.Bulk.EchoThreshold = defaultEchoThreshold
	}
	if c.Bulk.RequestsPerSecond < 0 {
		c.Bulk.RequestsPerSecond = 0
	}
}

func (c *Config) normalizeStructured() {
	c.Structured.Provider = strings.ToLower(strings.TrimSpace(c.Structured.Provider))
	if c.Structured.Provider == "" {
		c.Structured.Provider = defaultStructuredProvider
	}
	c.Structured.APIKeys = credentials.Normalize(c.Structured.APIKeys...)
	if len(c.Structured.APIKeys) == 0 {
		c.Structured.APIKeys = credentials.Normalize(envCredentials(c.Structured.Provider)...)
	}
	c.Structured.BaseURL = strings.TrimSpace(c.Structured.BaseURL)
	if c.Structured.BaseURL == "" && c.Structured.Provider == ProviderOpenRouter {
		c.Structured.BaseURL = defaultOpenRouterBaseURL
	}
	c.Structured.Model = strings.TrimSpace(c.Structured.Model)
	if c.Structured.Model == "" {
		c.Structured.Model = defaultModelFor(c.Structured.Provider)
	}
	c.Structured.Referer = strings.TrimSpace(c.Structured.Referer)
	if c.Structured.Referer == "" {
		c.Structured.Referer = defaultStructuredReferer
	}
	c.Structured.Title = strings.TrimSpace(c.Structured.Title)
	if c.Structured.Title == "" {
		c.Structured.Title = defaultStructuredTitle
	}
	if c.Structured.TimeoutSeconds <= 0 {
		c.Structured.TimeoutSeconds = defaultStructuredTimeout
	}
	if c.Structured.MaxOutputTokens <= 0 {
		c.Structured.MaxOutputTokens = defaultMaxOutputTokens
	}
	if c.Structured.BatchSize <= 0 {
		c.Structured.BatchSize = defaultStructuredBatchSize
	}
	if c.Structured.Concurrency <= 0 {
		c.Structured.Concurrency = defaultStructuredWorkers
	}
	if c.Structured.ValidationRetries < 0 {
		c.Structured.ValidationRetries = 0
	}
}

// envCredentials returns raw credential values from the provider's
// environment variables. Values may hold comma or newline separated lists.
func envCredentials(provider string) []string {
	var names []string
	switch provider {
	case ProviderOpenAI:
		names = []string{"OPENAI_API_KEY"}
	case ProviderAnthropic:
		names = []string{"ANTHROPIC_API_KEY"}
	case ProviderOpenRouter:
		names = []string{"OPENROUTER_API_KEY"}
	default:
		names = []string{"GEMINI_API_KEYS", "GEMINI_API_KEY"}
	}
	var values []string
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			values = append(values, value)
		}
	}
	return values
}

func (c *Config) normalizeLayout() error {
	c.Layout.FontFamily = strings.TrimSpace(c.Layout.FontFamily)
	if c.Layout.FontFamily == "" {
		c.Layout.FontFamily = defaultFontFamily
	}
	if c.Layout.FontSize <= 0 {
		c.Layout.FontSize = defaultFontSize
	}
	if value, ok := os.LookupEnv("SUBWEAVE_FONT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Layout.FontDirs = append([]string{strings.TrimSpace(value)}, c.Layout.FontDirs...)
	}
	dirs := make([]string, 0, len(c.Layout.FontDirs))
	for _, dir := range c.Layout.FontDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("layout.font_dirs: %w", err)
		}
		dirs = append(dirs, expanded)
	}
	c.Layout.FontDirs = dirs
	if c.Layout.MaxLineWidthPx <= 0 {
		c.Layout.MaxLineWidthPx = defaultMaxLineWidthPx
	}
	if c.Layout.MaxLines <= 0 {
		c.Layout.MaxLines = defaultMaxLines
	}
	if c.Layout.ExtraEndSeconds < 0 {
		c.Layout.ExtraEndSeconds = 0
	}
	return nil
}

func (c *Config) normalizeSummary() {
	if c.Summary.ChunkChars <= 0 {
		c.Summary.ChunkChars = defaultSummaryChunkChars
	}
	if c.Summary.MaxOutputTokens <= 0 {
		c.Summary.MaxOutputTokens = defaultSummaryMaxTokens
	}
	if c.Summary.FinalMaxOutputTokens <= 0 {
		c.Summary.FinalMaxOutputTokens = defaultSummaryFinalMaxToken
	}
	if c.Summary.MaxRounds <= 0 {
		c.Summary.MaxRounds = defaultSummaryMaxRounds
	}
	if c.Summary.ContinuationChars <= 0 {
		c.Summary.ContinuationChars = defaultContinuationChars
	}
	c.Summary.EndMarker = strings.TrimSpace(c.Summary.EndMarker)
	if c.Summary.EndMarker == "" {
		c.Summary.EndMarker = defaultSummaryEndMarker
	}
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Path) == "" {
		return nil
	}
	expanded, err := expandPath(strings.TrimSpace(c.Cache.Path))
	if err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	c.Cache.Path = expanded
	return nil
}
