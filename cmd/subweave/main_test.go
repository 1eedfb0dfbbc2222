package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"subweave/internal/config"
	"subweave/internal/structured"
	"subweave/internal/subtitles"
	"subweave/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GEMINI_API_KEY", "GEMINI_API_KEYS", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(name, "")
	}
}

// prefixWords marks every word so translations are never mistaken for echoes.
func prefixWords(q, _ string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		if f != "◌" {
			fields[i] = "x" + f
		}
	}
	return strings.Join(fields, " ")
}

func newOpenRouterServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		content := gjson.GetBytes(body, `messages.#(role=="user").content`).String()
		reply := "A short summary.\n<<END_OF_SUMMARY>>"
		if strings.HasPrefix(strings.TrimSpace(content), "[") {
			items := gjson.Parse(content).Array()
			texts := make([]string, len(items))
			for i, item := range items {
				texts[i] = "tr " + item.Get("text").String()
			}
			start := int(items[0].Get("index").Int()) - 1
			reply = structured.EncodeItems(start, texts)
		}
		payload := map[string]any{"choices": []any{map[string]any{
			"message":       map[string]any{"role": "assistant", "content": reply},
			"finish_reason": "stop",
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestVersionSkipsConfig(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, filepath.Join(t.TempDir(), "missing", "config.toml"))
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "subweave ")
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearCredentialEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowMasksCredentials(t *testing.T) {
	clearCredentialEnv(t)
	cfg := testsupport.NewConfig(t)
	cfg.Structured.APIKeys = []string{"secret-key-1234"}
	path := testsupport.WriteConfig(t, cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "****1234")
	requireContains(t, out, "effective backend: bulk")
	if strings.Contains(out, "secret-key") {
		t.Fatalf("credential leaked in output: %s", out)
	}
}

func TestTranslateBulkWritesFileAndUsesCache(t *testing.T) {
	clearCredentialEnv(t)
	server := testsupport.NewGTXServer(t, prefixWords)
	cfg := testsupport.NewConfig(t, testsupport.WithBulkURL(server.URL))
	path := testsupport.WriteConfig(t, cfg)

	dir := t.TempDir()
	src := filepath.Join(dir, "movie.srt")
	testsupport.WriteSRT(t, src, "hello there", "general kenobi")

	out, _, err := runCLI(t, []string{"translate", src, "--to", "es"}, path)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	requireContains(t, out, "movie_es.srt")
	requireContains(t, out, "translated")

	cues, err := subtitles.ReadSRTFile(filepath.Join(dir, "movie_es.srt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(cues) != 2 || cues[0].Text != "xhello xthere" || cues[1].Text != "xgeneral xkenobi" {
		t.Fatalf("unexpected cues %+v", cues)
	}
	requests := server.Requests.Load()

	out, _, err = runCLI(t, []string{"translate", src, "--to", "es"}, path)
	if err != nil {
		t.Fatalf("second translate: %v", err)
	}
	requireContains(t, out, "skipped")

	if _, _, err := runCLI(t, []string{"translate", src, "--to", "es", "--overwrite"}, path); err != nil {
		t.Fatalf("overwrite translate: %v", err)
	}
	if got := server.Requests.Load(); got != requests {
		t.Fatalf("expected cache hit without new requests, got %d then %d", requests, got)
	}

	out, _, err = runCLI(t, []string{"cache", "stats"}, path)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Entries")

	out, _, err = runCLI(t, []string{"cache", "clear"}, path)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 1 cached translation(s)")
}

func TestTranslateStructuredBackend(t *testing.T) {
	clearCredentialEnv(t)
	server := newOpenRouterServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStructured(config.ProviderOpenRouter, server.URL, "k1"))
	path := testsupport.WriteConfig(t, cfg)

	src := filepath.Join(t.TempDir(), "ep.srt")
	testsupport.WriteSRT(t, src, "one", "two", "three")

	if _, _, err := runCLI(t, []string{"translate", src, "--to", "fr"}, path); err != nil {
		t.Fatalf("translate: %v", err)
	}
	cues, err := subtitles.ReadSRTFile(filepath.Join(filepath.Dir(src), "ep_fr.srt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cues) != 3 || cues[2].Text != "tr three" {
		t.Fatalf("unexpected cues %+v", cues)
	}
}

func TestTranslateRequiresLanguage(t *testing.T) {
	clearCredentialEnv(t)
	path := testsupport.WriteConfig(t, testsupport.NewConfig(t))
	src := filepath.Join(t.TempDir(), "a.srt")
	testsupport.WriteSRT(t, src, "hi")

	_, _, err := runCLI(t, []string{"translate", src}, path)
	if err == nil || !strings.Contains(err.Error(), "target language required") {
		t.Fatalf("expected missing language error, got %v", err)
	}
}

func TestSummarizeWritesMarkdown(t *testing.T) {
	clearCredentialEnv(t)
	server := newOpenRouterServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStructured(config.ProviderOpenRouter, server.URL, "k1"))
	path := testsupport.WriteConfig(t, cfg)

	src := filepath.Join(t.TempDir(), "talk.srt")
	testsupport.WriteSRT(t, src, "Welcome to the talk.", "Today we cover subtitles.")

	out, _, err := runCLI(t, []string{"summarize", src, "--lang", "en"}, path)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	requireContains(t, out, "Wrote summary")
	data, err := os.ReadFile(filepath.Join(filepath.Dir(src), "talk_tltw_en.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "A short summary." {
		t.Fatalf("unexpected summary %q", data)
	}
}

func TestSummarizeRequiresCredentials(t *testing.T) {
	clearCredentialEnv(t)
	path := testsupport.WriteConfig(t, testsupport.NewConfig(t))
	src := filepath.Join(t.TempDir(), "talk.srt")
	testsupport.WriteSRT(t, src, "hello")

	_, _, err := runCLI(t, []string{"summarize", src}, path)
	if err == nil || !strings.Contains(err.Error(), "api_keys") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestExportTextToStdout(t *testing.T) {
	clearCredentialEnv(t)
	path := testsupport.WriteConfig(t, testsupport.NewConfig(t))
	src := filepath.Join(t.TempDir(), "a.srt")
	testsupport.WriteSRT(t, src, "first  line", "second\nline")

	out, _, err := runCLI(t, []string{"export-text", src, "-o", "-"}, path)
	if err != nil {
		t.Fatalf("export-text: %v", err)
	}
	if strings.TrimSpace(out) != "first line second line" {
		t.Fatalf("unexpected plain text %q", out)
	}
}

func TestWrapSplitsLongCues(t *testing.T) {
	clearCredentialEnv(t)
	path := testsupport.WriteConfig(t, testsupport.NewConfig(t))
	src := filepath.Join(t.TempDir(), "long.srt")
	long := strings.Repeat("subtitle words keep flowing ", 12)
	testsupport.WriteSRT(t, src, long)

	out, _, err := runCLI(t, []string{"wrap", src, "--max-width", "200", "--max-lines", "2"}, path)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	requireContains(t, out, "long_wrapped.srt")
	cues, err := subtitles.ReadSRTFile(filepath.Join(filepath.Dir(src), "long_wrapped.srt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cues) < 2 {
		t.Fatalf("expected long cue to be split, got %d cues", len(cues))
	}
	var words int
	for _, cue := range cues {
		words += len(strings.Fields(cue.Text))
	}
	if words != len(strings.Fields(long)) {
		t.Fatalf("wrap lost words: got %d want %d", words, len(strings.Fields(long)))
	}
}

func TestDoctorReportsReadiness(t *testing.T) {
	clearCredentialEnv(t)
	server := testsupport.NewGTXServer(t, prefixWords)
	cfg := testsupport.NewConfig(t, testsupport.WithBulkURL(server.URL))
	path := testsupport.WriteConfig(t, cfg)

	out, _, err := runCLI(t, []string{"doctor", "--online"}, path)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "== subweave readiness ==")
	requireContains(t, out, "[INFO] bulk")
	requireContains(t, out, "Translation cache:")
	requireContains(t, out, "[OK] reachable")
}

func TestDoctorFailsOnUnusableCache(t *testing.T) {
	clearCredentialEnv(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testsupport.NewConfig(t)
	cfg.Cache.Path = filepath.Join(blocker, "translations.db")
	path := testsupport.WriteConfig(t, cfg)

	out, _, err := runCLI(t, []string{"doctor"}, path)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out, "Translation cache:")
	requireContains(t, out, "[ERROR]")
}
