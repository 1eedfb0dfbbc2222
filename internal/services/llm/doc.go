// Package llm holds the request vocabulary shared by text generation
// providers and an OpenRouter chat completion client built on it.
//
// # Entry Points
//
// NewClient: construct an OpenRouter client from Config.
// Client.Generate: send a system/user prompt pair with a per-call API key.
// DecodeLLMJSON: decode model output that may be wrapped in code fences.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). Context cancellation aborts retries immediately.
// Credential problems (401/402/403) are tagged as configuration errors so
// callers can rotate to another key.
package llm
