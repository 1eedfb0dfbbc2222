package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateBulk(); err != nil {
		return err
	}
	if err := c.validateStructured(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	return c.validateSummary()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func (c *Config) validateTranslation() error {
	switch c.Translation.Backend {
	case "", BackendBulk, BackendStructured:
		return nil
	default:
		return fmt.Errorf("translation.backend %q must be %q or %q", c.Translation.Backend, BackendBulk, BackendStructured)
	}
}

func (c *Config) validateBulk() error {
	if c.Bulk.Provider != defaultBulkProvider {
		return fmt.Errorf("bulk.provider %q is not supported", c.Bulk.Provider)
	}
	if c.Bulk.MaxChars < 100 {
		return errors.New("bulk.max_chars must be at least 100")
	}
	if c.Bulk.EchoThreshold <= 0 || c.Bulk.EchoThreshold > 1 {
		return errors.New("bulk.echo_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateStructured() error {
	switch c.Structured.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter:
	default:
		return fmt.Errorf("structured.provider %q is not supported", c.Structured.Provider)
	}
	if c.Structured.Temperature < 0 || c.Structured.Temperature > 2 {
		return errors.New("structured.temperature must be between 0 and 2")
	}
	if c.Structured.TopP < 0 || c.Structured.TopP > 1 {
		return errors.New("structured.top_p must be between 0 and 1")
	}
	if c.Structured.TopK < 0 {
		return errors.New("structured.top_k must be non-negative")
	}
	if c.Translation.Backend == BackendStructured && len(c.Structured.APIKeys) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("structured.api_keys is required when translation.backend is %q. Set %s or edit %s (create with 'subweave config init')",
			BackendStructured, strings.Join(credentialEnvNames(c.Structured.Provider), "/"), defaultPath)
	}
	return nil
}

func credentialEnvNames(provider string) []string {
	switch provider {
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	case ProviderOpenRouter:
		return []string{"OPENROUTER_API_KEY"}
	default:
		return []string{"GEMINI_API_KEYS", "GEMINI_API_KEY"}
	}
}

func (c *Config) validateLayout() error {
	if c.Layout.MaxLines < 1 {
		return errors.New("layout.max_lines must be at least 1")
	}
	return nil
}

func (c *Config) validateSummary() error {
	if c.Summary.ChunkChars < 500 {
		return errors.New("summary.chunk_chars must be at least 500")
	}
	if c.Summary.ContinuationChars >= c.Summary.ChunkChars {
		return errors.New("summary.continuation_chars must be smaller than summary.chunk_chars")
	}
	return nil
}
