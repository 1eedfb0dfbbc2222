// Package config loads, normalizes, and validates subweave configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY. Credential lists are split and de-duplicated here so the
// structured backend always receives a clean rotation order.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
