// Package main hosts the subweave CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into translation runs,
// subtitle re-wrapping, long-form summaries, plain-text export, cache
// maintenance, and readiness checks. It centralizes configuration resolution
// and structured logging setup so subcommands only wire internal packages
// together.
package main
