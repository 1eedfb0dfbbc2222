package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subweave/internal/cache"
	"subweave/internal/config"
	"subweave/internal/credentials"
	"subweave/internal/services/googletranslate"
	"subweave/internal/services/llm"
	"subweave/internal/textmetrics"
	"subweave/internal/translation"
)

const onlineTimeout = 30 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCache opens the translation memory and reads its statistics. An empty
// path means the cache is disabled.
func CheckCache(ctx context.Context, path string) Result {
	const name = "Translation cache"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}
	store, err := cache.Open(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", path, stats.Entries)}
}

// CheckFont reports which font file the line wrapper measures with. A missing
// family is not a failure; the embedded face is used instead.
func CheckFont(dirs []string, family string) Result {
	const name = "Layout font"
	if path := textmetrics.FindFont(dirs, family); path != "" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", family, path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s not found, using embedded face", family)}
}

// CheckCredentials verifies that the structured backend has at least one
// API key.
func CheckCredentials(cfg *config.Config) Result {
	name := "Credentials (" + cfg.Structured.Provider + ")"
	keys := credentials.Normalize(cfg.Structured.APIKeys...)
	if len(keys) == 0 {
		return Result{Name: name, Detail: "no API key configured"}
	}
	masked := make([]string, len(keys))
	for i, key := range keys {
		masked[i] = credentials.Mask(key)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d key(s): %s", len(keys), strings.Join(masked, ", "))}
}

// CheckBulk sends one short translation through the bulk endpoint.
func CheckBulk(ctx context.Context, cfg *config.Config) Result {
	const name = "Bulk endpoint"
	checkCtx, cancel := context.WithTimeout(ctx, onlineTimeout)
	defer cancel()

	client := googletranslate.New(googletranslate.Config{BaseURL: cfg.Bulk.BaseURL})
	out, err := client.Translate(checkCtx, "Good morning", "de")
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if strings.TrimSpace(out) == "" {
		return Result{Name: name, Detail: "empty response"}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckStructured sends one short prompt through the structured provider,
// rotating credentials the way a translation run would.
func CheckStructured(ctx context.Context, cfg *config.Config) Result {
	name := "Structured provider (" + cfg.Structured.Provider + ")"
	checkCtx, cancel := context.WithTimeout(ctx, onlineTimeout)
	defer cancel()

	backend, closeFn, err := translation.NewStructuredBackend(cfg, nil)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer closeFn()

	params := translation.StructuredParams(cfg)
	params.MaxOutputTokens = 16
	resp, err := backend.Complete(checkCtx, llm.Request{
		System: "You are a health check. Follow the instruction exactly.",
		Prompt: "Reply with the single word OK.",
		Params: params,
	})
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return Result{Name: name, Detail: "empty response"}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// summarizeError produces a human-readable summary for provider check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (provider unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (provider unreachable)"
	}
	return err.Error()
}
