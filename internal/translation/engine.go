package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"subweave/internal/bulk"
	"subweave/internal/cuepack"
	"subweave/internal/logging"
	"subweave/internal/reconcile"
	"subweave/internal/services"
	"subweave/internal/subtitles"
)

// BulkTranslator translates packed batches without structural guarantees.
type BulkTranslator interface {
	Name() string
	TranslateAll(ctx context.Context, batches []cuepack.Batch, targetLang string) ([]bulk.Result, error)
}

// CueTranslator translates cue texts one-for-one.
type CueTranslator interface {
	Name() string
	TranslateCues(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// Rewrapper re-wraps a single-line text onto a number of lines.
type Rewrapper interface {
	Rewrap(text string, lines int) string
}

// Options configures an Engine. Exactly one of Bulk or Structured is used;
// Structured wins when both are set.
type Options struct {
	Bulk       BulkTranslator
	Structured CueTranslator
	MaxChars   int
	Rewrapper  Rewrapper
	Logger     *slog.Logger
	// Close releases resources owned by the engine, such as the cache.
	Close func() error
}

// Report summarizes one translation run.
type Report struct {
	RunID     string
	Backend   string
	Provider  string
	Cues      int
	Batches   int
	Tiers     map[bulk.Tier]int
	Methods   map[reconcile.Method]int
	CacheHits int
	Duration  time.Duration
}

// Degraded reports whether any batch fell back past validation.
func (r Report) Degraded() bool {
	return r.Tiers[bulk.PerLineFallback] > 0 || r.Tiers[bulk.Untranslated] > 0
}

// Engine translates cue tracks.
type Engine struct {
	bulk       BulkTranslator
	structured CueTranslator
	maxChars   int
	rewrapper  Rewrapper
	logger     *slog.Logger
	closeFn    func() error
}

// New constructs an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Bulk == nil && opts.Structured == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "new engine", "no translation backend configured", nil)
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = cuepack.DefaultMaxChars
	}
	return &Engine{
		bulk:       opts.Bulk,
		structured: opts.Structured,
		maxChars:   opts.MaxChars,
		rewrapper:  opts.Rewrapper,
		logger:     logging.NewComponentLogger(opts.Logger, "translation"),
		closeFn:    opts.Close,
	}, nil
}

// Backend returns "structured" or "bulk".
func (e *Engine) Backend() string {
	if e.structured != nil {
		return "structured"
	}
	return "bulk"
}

// Close releases engine resources.
func (e *Engine) Close() error {
	if e == nil || e.closeFn == nil {
		return nil
	}
	return e.closeFn()
}

// TranslateCues replaces the text of every cue with its translation. Cues
// are never added, removed, or reordered. Only cancellation and terminal
// backend failures return an error.
func (e *Engine) TranslateCues(ctx context.Context, cues []subtitles.Cue, targetLang string) (Report, error) {
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	ctx = services.WithStage(ctx, "translate")
	logger := logging.WithContext(ctx, e.logger)

	report := Report{
		RunID:   runID,
		Backend: e.Backend(),
		Cues:    len(cues),
		Tiers:   make(map[bulk.Tier]int),
		Methods: make(map[reconcile.Method]int),
	}
	if len(cues) == 0 {
		return report, nil
	}
	started := time.Now()
	texts := subtitles.Texts(cues)

	var (
		translated []string
		err        error
	)
	if e.structured != nil {
		report.Provider = e.structured.Name()
		translated, err = e.structured.TranslateCues(ctx, texts, targetLang)
		report.Batches = 1
	} else {
		report.Provider = e.bulk.Name()
		translated, err = e.translateBulk(ctx, texts, targetLang, &report)
	}
	if err != nil {
		return report, err
	}
	if len(translated) != len(cues) {
		return report, services.Wrap(services.ErrValidation, "translation", "reassemble",
			fmt.Sprintf("got %d texts for %d cues", len(translated), len(cues)), nil)
	}

	for i := range cues {
		cues[i].Text = e.finish(translated[i], cues[i].Lines())
	}
	report.Duration = time.Since(started)

	attrs := []logging.Attr{
		logging.String("backend", report.Backend),
		logging.String(logging.FieldProvider, report.Provider),
		logging.Int("cues", report.Cues),
		logging.Int("batches", report.Batches),
		logging.Int("cache_hits", report.CacheHits),
		logging.Duration("elapsed", report.Duration),
	}
	for tier, n := range report.Tiers {
		attrs = append(attrs, logging.Int("tier_"+tier.String(), n))
	}
	if report.Degraded() {
		attrs = append(attrs,
			logging.Alert("degraded_translation"),
			logging.String(logging.FieldImpact, "some cues fell back to per-line or untranslated text"),
			logging.String(logging.FieldErrorHint, "retry later or switch to the structured backend"),
		)
		logging.WarnWithContext(logger, "translation completed with fallbacks", "translation_degraded", attrs...)
		return report, nil
	}
	logger.Info("translation completed", logging.Args(attrs...)...)
	return report, nil
}

func (e *Engine) translateBulk(ctx context.Context, texts []string, targetLang string, report *Report) ([]string, error) {
	batches := cuepack.Pack(texts, e.maxChars)
	report.Batches = len(batches)
	results, err := e.bulk.TranslateAll(ctx, batches, targetLang)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(texts))
	for i, batch := range batches {
		res := results[i]
		report.Tiers[res.Tier]++
		if res.Cached {
			report.CacheHits++
		}
		text := res.Text
		if res.Tier == bulk.Untranslated {
			text = ""
		}
		lines, method := reconcile.Reconcile(batch.Lines, text)
		report.Methods[method]++
		if len(lines) != batch.Len() {
			return nil, fmt.Errorf("batch %d: reconciled %d lines for %d cues", batch.Index, len(lines), batch.Len())
		}
		copy(out[batch.Start:batch.End()], lines)
	}
	return out, nil
}

// finish cleans one translated cue and re-wraps it to lines.
func (e *Engine) finish(text string, lines int) string {
	text = strings.TrimSpace(reconcile.StripMarkers(text))
	if text == "" {
		return cuepack.Placeholder
	}
	if e.rewrapper == nil || lines < 2 {
		return text
	}
	return e.rewrapper.Rewrap(text, lines)
}

// IsTerminal reports whether err should stop a multi-file run.
func IsTerminal(err error) bool {
	return services.IsTerminal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
