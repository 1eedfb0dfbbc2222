package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"subweave/internal/bulk"
	"subweave/internal/cache"
	"subweave/internal/config"
	"subweave/internal/linewrap"
	"subweave/internal/services"
	"subweave/internal/services/anthropic"
	"subweave/internal/services/gemini"
	"subweave/internal/services/googletranslate"
	"subweave/internal/services/llm"
	"subweave/internal/services/openai"
	"subweave/internal/structured"
	"subweave/internal/textmetrics"
)

// closer is implemented by providers that hold SDK connections.
type closer interface {
	Close() error
}

// NewGenerator returns the structured provider selected by cfg.
func NewGenerator(cfg *config.Config) (structured.Generator, error) {
	switch cfg.Structured.Provider {
	case config.ProviderGemini:
		return gemini.New(), nil
	case config.ProviderOpenAI:
		return openai.New(openai.Config{BaseURL: cfg.Structured.BaseURL}), nil
	case config.ProviderAnthropic:
		return anthropic.New(anthropic.Config{BaseURL: cfg.Structured.BaseURL}), nil
	case config.ProviderOpenRouter:
		return llm.NewClient(llm.Config{
			BaseURL:        cfg.Structured.BaseURL,
			Referer:        cfg.Structured.Referer,
			Title:          cfg.Structured.Title,
			TimeoutSeconds: cfg.Structured.TimeoutSeconds,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "translation", "select provider",
			fmt.Sprintf("unknown structured provider %q", cfg.Structured.Provider), nil)
	}
}

// StructuredParams returns the generation parameters configured for cfg.
func StructuredParams(cfg *config.Config) llm.Params {
	return llm.Params{
		Model:           cfg.Structured.Model,
		Temperature:     cfg.Structured.Temperature,
		TopP:            cfg.Structured.TopP,
		TopK:            cfg.Structured.TopK,
		MaxOutputTokens: cfg.Structured.MaxOutputTokens,
	}
}

// NewStructuredBackend builds the credential-rotating LLM backend. The
// returned close function releases provider connections.
func NewStructuredBackend(cfg *config.Config, logger *slog.Logger) (*structured.Backend, func() error, error) {
	gen, err := NewGenerator(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if c, ok := gen.(closer); ok {
		closeFn = c.Close
	}
	backend, err := structured.New(gen, cfg.Structured.APIKeys, structured.Options{
		Params:            StructuredParams(cfg),
		BatchSize:         cfg.Structured.BatchSize,
		Concurrency:       cfg.Structured.Concurrency,
		ValidationRetries: cfg.Structured.ValidationRetries,
		Logger:            logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return backend, closeFn, nil
}

// NewBulkBackend builds the bulk backend, attaching cache when non-nil.
func NewBulkBackend(cfg *config.Config, store *cache.Store, logger *slog.Logger) (*bulk.Backend, error) {
	if cfg.Bulk.Provider != "google" {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "select provider",
			fmt.Sprintf("unknown bulk provider %q", cfg.Bulk.Provider), nil)
	}
	provider := googletranslate.New(googletranslate.Config{
		BaseURL:           cfg.Bulk.BaseURL,
		RequestsPerSecond: cfg.Bulk.RequestsPerSecond,
	})
	opts := bulk.Options{
		Concurrency:        cfg.Bulk.Concurrency,
		AttemptTimeout:     time.Duration(cfg.Bulk.AttemptTimeoutSeconds) * time.Second,
		RetryDelay:         time.Duration(cfg.Bulk.RetryDelaySeconds * float64(time.Second)),
		HardMarkerAttempts: cfg.Bulk.HardMarkerAttempts,
		PerLineAttempts:    cfg.Bulk.PerLineAttempts,
		EchoThreshold:      cfg.Bulk.EchoThreshold,
		Logger:             logger,
	}
	if store != nil {
		opts.Cache = store
	}
	return bulk.New(provider, opts), nil
}

// NewWrapper returns a line wrapper using the configured font. The measurer
// must be closed by the caller.
func NewWrapper(cfg *config.Config, logger *slog.Logger) (*linewrap.Wrapper, *textmetrics.Measurer) {
	measurer := textmetrics.New(textmetrics.Options{FontDirs: cfg.Layout.FontDirs, Logger: logger})
	wrapper := linewrap.New(measurer, textmetrics.Font{Family: cfg.Layout.FontFamily, Size: cfg.Layout.FontSize})
	return wrapper, measurer
}

// Build assembles an Engine from configuration. backendOverride, when
// non-empty, replaces translation.backend.
func Build(ctx context.Context, cfg *config.Config, backendOverride string, logger *slog.Logger) (*Engine, error) {
	backend := cfg.ResolvedBackend()
	if backendOverride != "" {
		backend = backendOverride
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	opts := Options{MaxChars: cfg.Bulk.MaxChars, Logger: logger}
	if cfg.Translation.Rewrap {
		wrapper, measurer := NewWrapper(cfg, logger)
		closers = append(closers, measurer.Close)
		opts.Rewrapper = wrapper
	}

	switch backend {
	case config.BackendStructured:
		sb, closeFn, err := NewStructuredBackend(cfg, logger)
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		closers = append(closers, closeFn)
		opts.Structured = sb
	case config.BackendBulk:
		var store *cache.Store
		if path := cfg.CachePath(); path != "" {
			var err error
			store, err = cache.Open(ctx, path)
			if err != nil {
				_ = closeAll()
				return nil, fmt.Errorf("open translation cache: %w", err)
			}
			closers = append(closers, store.Close)
		}
		bb, err := NewBulkBackend(cfg, store, logger)
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		opts.Bulk = bb
	default:
		_ = closeAll()
		return nil, services.Wrap(services.ErrConfiguration, "translation", "select backend",
			fmt.Sprintf("unknown backend %q", backend), nil)
	}
	opts.Close = closeAll
	return New(opts)
}
