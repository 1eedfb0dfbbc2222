package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"subweave/internal/cuepack"
	"subweave/internal/logging"
	"subweave/internal/services"
	"subweave/internal/textutil"
)

const (
	DefaultConcurrency        = 7
	DefaultAttemptTimeout     = 120 * time.Second
	DefaultRetryDelay         = 3 * time.Second
	DefaultHardMarkerAttempts = 3
	DefaultPerLineAttempts    = 3

	// linesPerValidationAttempt grows the first-tier attempt count with batch size.
	linesPerValidationAttempt = 25
	maxValidationAttempts     = 3
)

// Provider translates free text. Implementations make no promise about
// preserving markers, spacing, or line structure.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Cache stores validated batch translations keyed by provider, language and
// source text.
type Cache interface {
	Lookup(ctx context.Context, provider, targetLang, text string) (string, bool, error)
	Put(ctx context.Context, provider, targetLang, text, translated string) error
}

// Tier names the fallback stage that produced a Result.
type Tier int

const (
	// Untranslated means every tier failed and the source text was kept.
	Untranslated Tier = iota
	// Validated means the soft-marker response passed validation.
	Validated
	// HardMarkerRecovered means a substituted hard marker passed validation.
	HardMarkerRecovered
	// PerLineFallback means cues were translated one at a time, unvalidated.
	PerLineFallback
)

func (t Tier) String() string {
	switch t {
	case Validated:
		return "validated"
	case HardMarkerRecovered:
		return "hard_marker"
	case PerLineFallback:
		return "per_line"
	default:
		return "untranslated"
	}
}

// Result is the outcome for one batch. Text always carries one soft marker
// per cue in the batch.
type Result struct {
	Batch    cuepack.Batch
	Text     string
	Tier     Tier
	Cached   bool
	Attempts int
}

// Validated reports whether Text passed validation.
func (r Result) Validated() bool {
	return r.Tier == Validated || r.Tier == HardMarkerRecovered
}

// Options tunes a Backend. Zero values select defaults.
type Options struct {
	Concurrency        int
	AttemptTimeout     time.Duration
	RetryDelay         time.Duration
	HardMarkerAttempts int
	PerLineAttempts    int
	EchoThreshold      float64
	Cache              Cache
	Logger             *slog.Logger
	// Progress is called after each batch completes.
	Progress func(done, total int)
	// Sleep waits between retries; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Backend runs batches through a Provider.
type Backend struct {
	provider Provider
	opts     Options
	logger   *slog.Logger
}

// New builds a Backend around provider.
func New(provider Provider, opts Options) *Backend {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.HardMarkerAttempts <= 0 {
		opts.HardMarkerAttempts = DefaultHardMarkerAttempts
	}
	if opts.PerLineAttempts <= 0 {
		opts.PerLineAttempts = DefaultPerLineAttempts
	}
	if opts.EchoThreshold <= 0 || opts.EchoThreshold > 1 {
		opts.EchoThreshold = DefaultEchoThreshold
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Backend{
		provider: provider,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "bulk"),
	}
}

// Name returns the provider name.
func (b *Backend) Name() string {
	return b.provider.Name()
}

// TranslateAll translates every batch under the concurrency cap. Results are
// indexed like batches regardless of completion order. The only error is
// cancellation of ctx.
func (b *Backend) TranslateAll(ctx context.Context, batches []cuepack.Batch, targetLang string) ([]Result, error) {
	results := make([]Result, len(batches))
	var done atomic.Int64
	sampler := logging.NewProgressSampler(10)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := b.TranslateBatch(gctx, batch, targetLang)
			results[i] = res
			if err != nil {
				return err
			}
			n := int(done.Add(1))
			if b.opts.Progress != nil {
				b.opts.Progress(n, len(batches))
			}
			if pct := logging.Percent(n, len(batches)); sampler.ShouldLog(pct, "translate") {
				b.logger.Info("bulk translation progress",
					logging.Int("done", n),
					logging.Int("total", len(batches)),
					logging.Float64("percent", pct),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// TranslateBatch walks the fallback chain for one batch. It returns an error
// only when ctx ends; the Result is still usable and holds the source text.
func (b *Backend) TranslateBatch(ctx context.Context, batch cuepack.Batch, targetLang string) (Result, error) {
	ctx = services.WithBatch(ctx, batch.Index)
	ctx = services.WithProvider(ctx, b.provider.Name())
	logger := b.logger.With(logging.Args(logging.ContextFields(ctx)...)...)
	source := batch.Text()
	result := Result{Batch: batch, Text: source, Tier: Untranslated}

	if onlyPlaceholders(batch.Lines) {
		result.Tier = Validated
		return result, nil
	}

	if cached, ok := b.lookup(ctx, targetLang, source); ok {
		result.Text = cached
		result.Tier = Validated
		result.Cached = true
		return result, nil
	}

	for _, tier := range []struct {
		tier Tier
		run  func(context.Context, cuepack.Batch, string, *Result) (string, bool, error)
	}{
		{Validated, b.softMarker},
		{HardMarkerRecovered, b.hardMarker},
		{PerLineFallback, b.perLine},
	} {
		text, ok, err := tier.run(ctx, batch, targetLang, &result)
		if err != nil {
			return result, err
		}
		if !ok {
			logger.Debug("bulk tier exhausted", logging.Tier(tier.tier.String()))
			continue
		}
		result.Text = text
		result.Tier = tier.tier
		break
	}

	switch result.Tier {
	case Validated, HardMarkerRecovered:
		b.store(ctx, targetLang, source, result.Text)
		logger.Debug("batch translated", logging.Tier(result.Tier.String()), logging.Int("attempts", result.Attempts))
	default:
		logging.WarnWithContext(logger, "batch translation degraded", "bulk_degraded",
			logging.Tier(result.Tier.String()),
			logging.Int("cues", batch.Len()),
			logging.String(logging.FieldImpact, "cue boundaries may drift or text may stay untranslated"),
			logging.String(logging.FieldErrorHint, "retry later or switch to the structured backend"),
		)
	}
	return result, nil
}

// softMarker retries transport failures until ctx ends and gives up after a
// bounded number of responses that fail validation.
func (b *Backend) softMarker(ctx context.Context, batch cuepack.Batch, targetLang string, res *Result) (string, bool, error) {
	source := batch.Text()
	budget := ValidationAttempts(batch.Len())
	for rejected := 0; rejected < budget; {
		res.Attempts++
		text, err := b.call(ctx, source, targetLang)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			if !services.Retryable(err) {
				b.logger.Debug("bulk provider refused batch", logging.Int(logging.FieldBatch, batch.Index), logging.Error(err))
				return "", false, nil
			}
			if err := b.opts.Sleep(ctx, b.opts.RetryDelay); err != nil {
				return "", false, err
			}
			continue
		}
		if verr := Validate(source, text, b.opts.EchoThreshold); verr != nil {
			rejected++
			b.logger.Debug("bulk response rejected",
				logging.Int(logging.FieldBatch, batch.Index),
				logging.Tier(Validated.String()),
				logging.String("reason", verr.Error()),
			)
			continue
		}
		return text, true, nil
	}
	return "", false, nil
}

// hardMarker swaps the soft marker for one from the pool, rotating per attempt
// and starting at an offset derived from the batch index.
func (b *Backend) hardMarker(ctx context.Context, batch cuepack.Batch, targetLang string, res *Result) (string, bool, error) {
	source := batch.Text()
	for k := range b.opts.HardMarkerAttempts {
		marker := pickMarker(source, batch.Index+k)
		if marker == "" {
			return "", false, nil
		}
		res.Attempts++
		text, err := b.call(ctx, batch.WithMarker(marker), targetLang)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			if err := b.opts.Sleep(ctx, b.opts.RetryDelay); err != nil {
				return "", false, err
			}
			continue
		}
		restored := strings.ReplaceAll(text, marker, cuepack.SoftMarker)
		if verr := Validate(source, restored, b.opts.EchoThreshold); verr != nil {
			b.logger.Debug("bulk response rejected",
				logging.Int(logging.FieldBatch, batch.Index),
				logging.Tier(HardMarkerRecovered.String()),
				logging.String("marker", marker),
				logging.String("reason", verr.Error()),
			)
			continue
		}
		return restored, true, nil
	}
	return "", false, nil
}

// perLine translates each cue separately and keeps the source for cues that
// fail. It reports failure only when no cue was translated.
func (b *Backend) perLine(ctx context.Context, batch cuepack.Batch, targetLang string, res *Result) (string, bool, error) {
	out := make([]string, len(batch.Lines))
	translated := 0
	for i, line := range batch.Lines {
		out[i] = line
		if line == cuepack.Placeholder {
			continue
		}
		for range b.opts.PerLineAttempts {
			res.Attempts++
			text, err := b.call(ctx, line, targetLang)
			if err != nil {
				if ctx.Err() != nil {
					return "", false, ctx.Err()
				}
				if err := b.opts.Sleep(ctx, b.opts.RetryDelay); err != nil {
					return "", false, err
				}
				continue
			}
			text = strings.TrimSpace(stripMarkers(text))
			if text == "" {
				continue
			}
			if textutil.Fold(text) != textutil.Fold(line) {
				out[i] = text
				translated++
			}
			break
		}
	}
	if translated == 0 {
		return "", false, nil
	}
	return cuepack.Join(out), true, nil
}

// call runs one provider request bounded by the attempt timeout.
func (b *Backend) call(ctx context.Context, text, targetLang string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, b.opts.AttemptTimeout)
	defer cancel()
	out, err := b.provider.Translate(attemptCtx, text, targetLang)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", services.Wrap(services.ErrTimeout, "translate", b.provider.Name(),
				fmt.Sprintf("attempt exceeded %s", b.opts.AttemptTimeout), err)
		}
		return "", err
	}
	return out, nil
}

func (b *Backend) lookup(ctx context.Context, targetLang, source string) (string, bool) {
	if b.opts.Cache == nil {
		return "", false
	}
	text, ok, err := b.opts.Cache.Lookup(ctx, b.provider.Name(), targetLang, source)
	if err != nil {
		logging.WarnWithContext(b.logger, "translation cache lookup failed", "cache_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch will be sent to the provider"),
		)
		return "", false
	}
	if !ok || strings.Count(text, cuepack.SoftMarker) != strings.Count(source, cuepack.SoftMarker) {
		return "", false
	}
	return text, true
}

func (b *Backend) store(ctx context.Context, targetLang, source, translated string) {
	if b.opts.Cache == nil {
		return
	}
	if err := b.opts.Cache.Put(ctx, b.provider.Name(), targetLang, source, translated); err != nil {
		logging.WarnWithContext(b.logger, "translation cache store failed", "cache_store_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch will be translated again next run"),
		)
	}
}

// ValidationAttempts returns how many rejected responses the first tier
// tolerates for a batch of n cues.
func ValidationAttempts(n int) int {
	return min(1+n/linesPerValidationAttempt, maxValidationAttempts)
}

// onlyPlaceholders reports whether every cue in lines is blank.
func onlyPlaceholders(lines []string) bool {
	for _, line := range lines {
		if line != cuepack.Placeholder {
			return false
		}
	}
	return len(lines) > 0
}

// pickMarker returns the first pool marker, starting at offset, that does not
// already occur in source.
func pickMarker(source string, offset int) string {
	pool := cuepack.HardMarkers
	for i := range pool {
		m := pool[(offset+i)%len(pool)]
		if !strings.Contains(source, m) {
			return m
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
