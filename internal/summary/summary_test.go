package summary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subweave/internal/services/llm"
	"subweave/internal/structured"
	"subweave/internal/subtitles"
)

type fakeGenerator struct {
	requests []llm.Request
	reply    func(n int, req llm.Request) (string, error)
}

func (f *fakeGenerator) GenerateLongForm(_ context.Context, req llm.Request, _ structured.LongForm) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply(len(f.requests), req)
}

func cuesOf(texts ...string) []subtitles.Cue {
	cues := make([]subtitles.Cue, len(texts))
	for i, text := range texts {
		cues[i] = subtitles.Cue{Index: i + 1, Start: float64(i), End: float64(i) + 0.5, Text: text}
	}
	return cues
}

func TestSummarizeSingleChunkSkipsSynthesis(t *testing.T) {
	gen := &fakeGenerator{reply: func(int, llm.Request) (string, error) { return "  # Title\n\nBody ", nil }}
	s := New(gen, Options{ChunkChars: 1000, Params: llm.Params{MaxOutputTokens: 100}})

	got, err := s.Summarize(context.Background(), cuesOf("Hello there.", "General Kenobi."), "es")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "# Title\n\nBody" {
		t.Fatalf("unexpected summary %q", got)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(gen.requests))
	}
	if !strings.Contains(gen.requests[0].Prompt, "Hello there. General Kenobi.") {
		t.Fatalf("prompt missing transcript: %q", gen.requests[0].Prompt)
	}
	if !strings.Contains(gen.requests[0].System, "Spanish") {
		t.Fatalf("system prompt should name the language: %q", gen.requests[0].System)
	}
}

func TestSummarizeMultipleChunksSynthesizes(t *testing.T) {
	gen := &fakeGenerator{reply: func(n int, _ llm.Request) (string, error) {
		if n == 3 {
			return "final", nil
		}
		return "partial", nil
	}}
	s := New(gen, Options{
		ChunkChars:           25,
		Params:               llm.Params{MaxOutputTokens: 100},
		FinalMaxOutputTokens: 500,
	})

	got, err := s.Summarize(context.Background(), cuesOf("first sentence here.", "second sentence here."), "en")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "final" {
		t.Fatalf("expected synthesis result, got %q", got)
	}
	if len(gen.requests) != 3 {
		t.Fatalf("expected 2 chunks plus synthesis, got %d requests", len(gen.requests))
	}
	if gen.requests[0].Params.MaxOutputTokens != 100 {
		t.Fatalf("chunk requests should keep base tokens, got %d", gen.requests[0].Params.MaxOutputTokens)
	}
	final := gen.requests[2]
	if final.Params.MaxOutputTokens != 500 {
		t.Fatalf("synthesis should use final tokens, got %d", final.Params.MaxOutputTokens)
	}
	if !strings.Contains(final.Prompt, "## Part 2") {
		t.Fatalf("synthesis prompt missing partials: %q", final.Prompt)
	}
}

func TestSummarizePropagatesTerminalErrors(t *testing.T) {
	gen := &fakeGenerator{reply: func(int, llm.Request) (string, error) {
		return "partial", structured.ErrGenerationIncomplete
	}}
	s := New(gen, Options{})
	_, err := s.Summarize(context.Background(), cuesOf("text"), "en")
	if !errors.Is(err, structured.ErrGenerationIncomplete) {
		t.Fatalf("expected ErrGenerationIncomplete, got %v", err)
	}
}

func TestSummarizeRejectsEmptyTrack(t *testing.T) {
	gen := &fakeGenerator{reply: func(int, llm.Request) (string, error) { return "x", nil }}
	if _, err := New(gen, Options{}).Summarize(context.Background(), cuesOf("  ", ""), "en"); err == nil {
		t.Fatal("expected error for empty track")
	}
	if len(gen.requests) != 0 {
		t.Fatal("no request expected for empty track")
	}
}

func TestSummarizeFileWritesMarkdown(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "episode.srt")
	if err := os.WriteFile(src, []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	calls := 0
	gen := &fakeGenerator{reply: func(int, llm.Request) (string, error) { calls++; return "summary", nil }}
	s := New(gen, Options{})

	path, wrote, err := s.SummarizeFile(context.Background(), src, "", "PT", false)
	if err != nil {
		t.Fatalf("SummarizeFile: %v", err)
	}
	if !wrote || path != filepath.Join(dir, "episode_tltw_pt.md") {
		t.Fatalf("unexpected result path=%q wrote=%v", path, wrote)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "summary\n" {
		t.Fatalf("unexpected file content %q err=%v", data, err)
	}

	if _, wrote, err := s.SummarizeFile(context.Background(), src, "", "pt", false); err != nil || wrote {
		t.Fatalf("expected existing summary to be skipped, wrote=%v err=%v", wrote, err)
	}
	if calls != 1 {
		t.Fatalf("expected one generation, got %d", calls)
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "   ", 10, nil},
		{"fits", "one two", 10, []string{"one two"}},
		{"whitespace break", "aaaa bbbb cccc", 9, []string{"aaaa bbbb", "cccc"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text, tt.size)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Fatalf("Chunk(%q, %d) = %q, want %q", tt.text, tt.size, got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("/media/show/ep1.srt", "/out", "EN")
	if got != filepath.Join("/out", "ep1_tltw_en.md") {
		t.Fatalf("unexpected path %q", got)
	}
	got = OutputPath("/media/show/ep1.srt", "/out", "pt/BR")
	if got != filepath.Join("/out", "ep1_tltw_pt-br.md") {
		t.Fatalf("language not sanitized: %q", got)
	}
}
