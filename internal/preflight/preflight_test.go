package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subweave/internal/config"
	"subweave/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCache(t *testing.T) {
	if r := CheckCache(context.Background(), ""); !r.Passed || r.Detail != "disabled" {
		t.Fatalf("disabled cache: %+v", r)
	}
	path := filepath.Join(t.TempDir(), "cache", "translations.db")
	r := CheckCache(context.Background(), path)
	if !r.Passed {
		t.Fatalf("expected pass, got: %s", r.Detail)
	}
	if !strings.Contains(r.Detail, "0 entries") {
		t.Fatalf("unexpected detail %q", r.Detail)
	}
}

func TestCheckCache_BadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckCache(context.Background(), filepath.Join(blocker, "translations.db")); r.Passed {
		t.Fatal("expected failure when parent is a file")
	}
}

func TestCheckFont(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Jost-Bold.ttf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := CheckFont([]string{dir}, "Jost")
	if !r.Passed || !strings.Contains(r.Detail, "Jost-Bold.ttf") {
		t.Fatalf("unexpected result %+v", r)
	}
	r = CheckFont([]string{dir}, "Missing")
	if !r.Passed || !strings.Contains(r.Detail, "embedded face") {
		t.Fatalf("unexpected fallback result %+v", r)
	}
}

func TestCheckCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStructured(config.ProviderOpenRouter, "http://localhost", "sk-abcdef1234"))
	r := CheckCredentials(cfg)
	if !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if strings.Contains(r.Detail, "abcdef") || !strings.Contains(r.Detail, "****1234") {
		t.Fatalf("key not masked: %q", r.Detail)
	}

	cfg.Structured.APIKeys = nil
	if r := CheckCredentials(cfg); r.Passed {
		t.Fatal("expected failure without keys")
	}
}

func TestCheckBulk(t *testing.T) {
	srv := testsupport.NewGTXServer(t, func(q, tl string) string { return "Guten Morgen" })
	cfg := testsupport.NewConfig(t, testsupport.WithBulkURL(srv.URL))
	r := CheckBulk(context.Background(), cfg)
	if !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if srv.Requests.Load() != 1 {
		t.Fatalf("expected one request, got %d", srv.Requests.Load())
	}
}

func TestCheckBulk_EmptyResponse(t *testing.T) {
	srv := testsupport.NewGTXServer(t, func(q, tl string) string { return "" })
	cfg := testsupport.NewConfig(t, testsupport.WithBulkURL(srv.URL))
	if r := CheckBulk(context.Background(), cfg); r.Passed {
		t.Fatal("expected failure for empty translation")
	}
}

func TestCheckStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		payload := map[string]any{"choices": []any{map[string]any{
			"message":       map[string]any{"role": "assistant", "content": "OK"},
			"finish_reason": "stop",
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithStructured(config.ProviderOpenRouter, srv.URL, "good-key"))
	cfg.Structured.Model = "test-model"
	r := CheckStructured(context.Background(), cfg)
	if !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_LocalChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, Options{})
	// cache dir, log dir, cache, font
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if n := Failed(results); n != 0 {
		t.Fatalf("expected all checks to pass, got %d failures: %+v", n, results)
	}
}

func TestRunAll_StructuredWithoutKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStructured(config.ProviderOpenRouter, "http://localhost"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, Options{})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if Failed(results) != 1 || results[4].Passed {
		t.Fatalf("expected credentials failure, got %+v", results)
	}
}

func TestRunAll_Online(t *testing.T) {
	srv := testsupport.NewGTXServer(t, func(q, tl string) string { return "x" + q })
	cfg := testsupport.NewConfig(t, testsupport.WithBulkURL(srv.URL), testsupport.WithCacheDisabled())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, Options{Online: true})
	last := results[len(results)-1]
	if last.Name != "Bulk endpoint" || !last.Passed {
		t.Fatalf("unexpected online result %+v", last)
	}
}
