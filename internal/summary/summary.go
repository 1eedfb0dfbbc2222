package summary

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"subweave/internal/fileutil"
	"subweave/internal/language"
	"subweave/internal/logging"
	"subweave/internal/services"
	"subweave/internal/services/llm"
	"subweave/internal/structured"
	"subweave/internal/subtitles"
	"subweave/internal/textutil"
)

const DefaultChunkChars = 12000

// Generator is the long-form capable backend the summarizer drives.
type Generator interface {
	GenerateLongForm(ctx context.Context, req llm.Request, lf structured.LongForm) (string, error)
}

// Options configures a Summarizer.
type Options struct {
	ChunkChars           int
	Params               llm.Params
	FinalMaxOutputTokens int
	LongForm             structured.LongForm
	Logger               *slog.Logger
}

// Summarizer produces Markdown summaries of cue tracks.
type Summarizer struct {
	gen    Generator
	opts   Options
	logger *slog.Logger
}

// New constructs a Summarizer.
func New(gen Generator, opts Options) *Summarizer {
	if opts.ChunkChars <= 0 {
		opts.ChunkChars = DefaultChunkChars
	}
	if opts.FinalMaxOutputTokens <= 0 {
		opts.FinalMaxOutputTokens = opts.Params.MaxOutputTokens
	}
	return &Summarizer{
		gen:    gen,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "summary"),
	}
}

// Summarize returns a Markdown summary of cues written in lang.
func (s *Summarizer) Summarize(ctx context.Context, cues []subtitles.Cue, lang string) (string, error) {
	text := subtitles.PlainText(cues)
	if text == "" {
		return "", fmt.Errorf("%w: no subtitle text to summarize", services.ErrValidation)
	}
	if _, ok := services.RunIDFromContext(ctx); !ok {
		ctx = services.WithRunID(ctx, uuid.NewString())
	}
	ctx = services.WithStage(ctx, "summary")
	logger := logging.WithContext(ctx, s.logger)

	chunks := Chunk(text, s.opts.ChunkChars)
	started := time.Now()
	logger.Info("summary started",
		logging.Int("chunks", len(chunks)),
		logging.Int("chars", textutil.Len(text)),
		logging.String("language", lang),
	)

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		req := llm.Request{
			System: systemPrompt(lang),
			Prompt: chunkPrompt(chunk, i+1, len(chunks)),
			Params: s.opts.Params,
		}
		out, err := s.gen.GenerateLongForm(ctx, req, s.opts.LongForm)
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, strings.TrimSpace(out))
		logger.Debug("chunk summarized", logging.Int("chunk", i+1))
	}

	result := partials[0]
	if len(partials) > 1 {
		params := s.opts.Params
		params.MaxOutputTokens = s.opts.FinalMaxOutputTokens
		req := llm.Request{
			System: systemPrompt(lang),
			Prompt: synthesisPrompt(partials),
			Params: params,
		}
		out, err := s.gen.GenerateLongForm(ctx, req, s.opts.LongForm)
		if err != nil {
			return "", fmt.Errorf("synthesize summary: %w", err)
		}
		result = strings.TrimSpace(out)
	}

	logger.Info("summary completed",
		logging.Int("chunks", len(chunks)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// SummarizeFile reads an SRT file, summarizes it, and writes the Markdown
// next to outDir (or the source directory when outDir is empty). It returns
// the written path.
func (s *Summarizer) SummarizeFile(ctx context.Context, srtPath, outDir, lang string, overwrite bool) (string, bool, error) {
	dest := OutputPath(srtPath, outDir, lang)
	if !overwrite && fileutil.Exists(dest) {
		return dest, false, nil
	}
	cues, err := subtitles.ReadSRTFile(srtPath)
	if err != nil {
		return "", false, err
	}
	text, err := s.Summarize(ctx, cues, lang)
	if err != nil {
		return "", false, err
	}
	if err := fileutil.WriteFileAtomic(ctx, dest, []byte(text+"\n"), 0o644); err != nil {
		return "", false, fmt.Errorf("write summary: %w", err)
	}
	return dest, true, nil
}

// OutputPath returns <dir>/<stem>_tltw_<lang>.md for an SRT path.
func OutputPath(srtPath, outDir, lang string) string {
	dir := outDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(srtPath)
	}
	stem := strings.TrimSuffix(filepath.Base(srtPath), filepath.Ext(srtPath))
	return filepath.Join(dir, fmt.Sprintf("%s_tltw_%s.md", stem, textutil.SanitizeFileName(strings.ToLower(lang))))
}

// Chunk splits text into pieces of at most size characters, breaking at the
// last whitespace before the limit when one exists.
func Chunk(text string, size int) []string {
	runes := []rune(strings.TrimSpace(text))
	if size <= 0 || len(runes) <= size {
		if len(runes) == 0 {
			return nil
		}
		return []string{string(runes)}
	}
	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= size {
			chunks = append(chunks, strings.TrimSpace(string(runes)))
			break
		}
		cut := size
		for i := size; i > size/2; i-- {
			if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			chunks = append(chunks, piece)
		}
		runes = runes[cut:]
		for len(runes) > 0 && (runes[0] == ' ' || runes[0] == '\n' || runes[0] == '\t') {
			runes = runes[1:]
		}
	}
	return chunks
}

func systemPrompt(lang string) string {
	return fmt.Sprintf(
		"You summarize video transcripts for people who do not have time to watch. "+
			"Write in %s using Markdown: a one-line title, a short overview paragraph, "+
			"then bullet points for the key moments in order. Do not invent details "+
			"that are not in the transcript.",
		language.DisplayName(lang),
	)
}

func chunkPrompt(chunk string, part, total int) string {
	if total == 1 {
		return "Summarize this transcript:\n\n" + chunk
	}
	return fmt.Sprintf("This is part %d of %d of a transcript. Summarize this part:\n\n%s", part, total, chunk)
}

func synthesisPrompt(partials []string) string {
	var b strings.Builder
	b.WriteString("Merge these partial summaries of consecutive transcript parts into one summary. ")
	b.WriteString("Remove repetition and keep the chronological order.\n")
	for i, p := range partials {
		fmt.Fprintf(&b, "\n## Part %d\n\n%s\n", i+1, p)
	}
	return b.String()
}
