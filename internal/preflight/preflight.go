package preflight

import (
	"context"

	"subweave/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects optional checks.
type Options struct {
	// Online enables checks that send a request to the translation providers.
	Online bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCache(ctx, cfg.CachePath()),
		CheckFont(cfg.Layout.FontDirs, cfg.Layout.FontFamily),
	}

	backend := cfg.ResolvedBackend()
	if backend == config.BackendStructured {
		results = append(results, CheckCredentials(cfg))
	}

	if opts.Online {
		results = append(results, CheckBulk(ctx, cfg))
		if cfg.HasStructuredCredentials() {
			results = append(results, CheckStructured(ctx, cfg))
		}
	}
	return results
}

// Failed counts the results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
