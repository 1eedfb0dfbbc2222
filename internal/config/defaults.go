package config

// Backend names accepted by translation.backend.
const (
	BackendBulk       = "bulk"
	BackendStructured = "structured"
)

// Structured provider names accepted by structured.provider.
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
)

const (
	defaultConfigPath = "~/.config/subweave/config.toml"
	defaultLogDir     = "~/.local/share/subweave/logs"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"

	defaultBulkProvider       = "google"
	defaultBulkBaseURL        = "https://translate.googleapis.com/translate_a/single"
	defaultBulkMaxChars       = 4999
	defaultBulkConcurrency    = 7
	defaultBulkAttemptTimeout = 120
	defaultBulkRetryDelay     = 3.0
	defaultHardMarkerAttempts = 3
	defaultPerLineAttempts    = 3
	defaultEchoThreshold      = 0.9

	defaultStructuredProvider   = ProviderGemini
	defaultGeminiModel          = "gemini-2.5-flash"
	defaultOpenAIModel          = "gpt-4o-mini"
	defaultAnthropicModel       = "claude-3-5-haiku-latest"
	defaultOpenRouterModel      = "google/gemini-2.5-flash"
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultStructuredReferer    = "https://github.com/subweave/subweave"
	defaultStructuredTitle      = "subweave"
	defaultStructuredTimeout    = 120
	defaultTemperature          = 0.3
	defaultTopP                 = 0.9
	defaultTopK                 = 50
	defaultMaxOutputTokens      = 8192
	defaultStructuredBatchSize  = 400
	defaultStructuredWorkers    = 1
	defaultValidationRetries    = 2
	defaultFontFamily           = "Jost"
	defaultFontSize             = 18
	defaultMaxLineWidthPx       = 380
	defaultMaxLines             = 2
	defaultExtraEndSeconds      = 1.0
	defaultSummaryChunkChars    = 12000
	defaultSummaryMaxTokens     = 4096
	defaultSummaryFinalMaxToken = 8192
	defaultSummaryMaxRounds     = 4
	defaultContinuationChars    = 1200
	defaultSummaryEndMarker     = "<<END_OF_SUMMARY>>"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Translation: Translation{
			Rewrap: true,
		},
		Bulk: Bulk{
			Provider:              defaultBulkProvider,
			BaseURL:               defaultBulkBaseURL,
			MaxChars:              defaultBulkMaxChars,
			Concurrency:           defaultBulkConcurrency,
			AttemptTimeoutSeconds: defaultBulkAttemptTimeout,
			RetryDelaySeconds:     defaultBulkRetryDelay,
			HardMarkerAttempts:    defaultHardMarkerAttempts,
			PerLineAttempts:       defaultPerLineAttempts,
			EchoThreshold:         defaultEchoThreshold,
		},
		Structured: Structured{
			Provider:          defaultStructuredProvider,
			Referer:           defaultStructuredReferer,
			Title:             defaultStructuredTitle,
			TimeoutSeconds:    defaultStructuredTimeout,
			Temperature:       defaultTemperature,
			TopP:              defaultTopP,
			TopK:              defaultTopK,
			MaxOutputTokens:   defaultMaxOutputTokens,
			BatchSize:         defaultStructuredBatchSize,
			Concurrency:       defaultStructuredWorkers,
			ValidationRetries: defaultValidationRetries,
		},
		Layout: Layout{
			FontFamily:      defaultFontFamily,
			FontSize:        defaultFontSize,
			MaxLineWidthPx:  defaultMaxLineWidthPx,
			MaxLines:        defaultMaxLines,
			ExtraEndSeconds: defaultExtraEndSeconds,
		},
		Summary: Summary{
			ChunkChars:           defaultSummaryChunkChars,
			MaxOutputTokens:      defaultSummaryMaxTokens,
			FinalMaxOutputTokens: defaultSummaryFinalMaxToken,
			MaxRounds:            defaultSummaryMaxRounds,
			ContinuationChars:    defaultContinuationChars,
			EndMarker:            defaultSummaryEndMarker,
		},
		Cache: Cache{
			Enabled: true,
		},
	}
}

func defaultModelFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return defaultOpenAIModel
	case ProviderAnthropic:
		return defaultAnthropicModel
	case ProviderOpenRouter:
		return defaultOpenRouterModel
	default:
		return defaultGeminiModel
	}
}
