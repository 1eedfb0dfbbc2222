package structured

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"subweave/internal/credentials"
	"subweave/internal/logging"
	"subweave/internal/services"
	"subweave/internal/services/llm"
)

const (
	DefaultBatchSize         = 400
	DefaultConcurrency       = 1
	DefaultValidationRetries = 2
)

var (
	// ErrCredentialsExhausted means every credential failed for one request.
	ErrCredentialsExhausted = fmt.Errorf("%w: credentials exhausted", services.ErrTerminal)
	// ErrNoCredentials means the backend was built without any usable key.
	ErrNoCredentials = fmt.Errorf("%w: no credentials configured", services.ErrConfiguration)
)

// Generator produces text for a prompt using a specific credential.
type Generator interface {
	Name() string
	Generate(ctx context.Context, apiKey string, req llm.Request) (llm.Response, error)
}

// Options tunes a Backend. Zero values select defaults.
type Options struct {
	Params            llm.Params
	BatchSize         int
	Concurrency       int
	ValidationRetries int
	Logger            *slog.Logger
	// Progress is called after each batch completes.
	Progress func(done, total int)
}

// Backend runs requests against a Generator under a credential ring.
type Backend struct {
	gen    Generator
	ring   *credentials.Ring
	opts   Options
	logger *slog.Logger
}

// New builds a Backend. Keys are normalized; at least one is required.
func New(gen Generator, keys []string, opts Options) (*Backend, error) {
	ring := credentials.NewRing(keys...)
	if ring.Len() == 0 {
		return nil, ErrNoCredentials
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ValidationRetries < 0 {
		opts.ValidationRetries = 0
	}
	return &Backend{
		gen:    gen,
		ring:   ring,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "structured"),
	}, nil
}

// Name returns the generator name.
func (b *Backend) Name() string {
	return b.gen.Name()
}

// Ring exposes the credential ring for status reporting.
func (b *Backend) Ring() *credentials.Ring {
	return b.ring
}

// Complete sends req once per credential until one succeeds.
func (b *Backend) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	var resp llm.Response
	err := b.withCredential(ctx, func(ctx context.Context, key string) error {
		out, err := b.gen.Generate(ctx, key, req)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	return resp, err
}

// withCredential runs attempt with the active key, rotating after each
// failure. A key is used at most once per call.
func (b *Backend) withCredential(ctx context.Context, attempt func(context.Context, string) error) error {
	total := b.ring.Len()
	tried := make(map[int]bool, total)
	var lastErr error
	for guard := 0; len(tried) < total && guard < 2*total+1; guard++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, idx := b.ring.Current()
		if tried[idx] {
			if _, ok := b.ring.RotateFrom(idx); !ok {
				break
			}
			continue
		}
		tried[idx] = true

		err := attempt(ctx, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		lastErr = err
		next, rotated := b.ring.RotateFrom(idx)
		attrs := []logging.Attr{
			logging.String(logging.FieldProvider, b.gen.Name()),
			logging.String(logging.FieldCredential, b.ring.Label(idx)),
			logging.Error(err),
		}
		if rotated {
			attrs = append(attrs, logging.String("next_credential", b.ring.Label(next)))
		}
		logging.WarnWithContext(b.logger, "credential failed", "credential_failed",
			append(attrs,
				logging.String(logging.FieldImpact, "request retried with the next credential"),
				logging.String(logging.FieldErrorHint, "check quota and validity of the credential"),
			)...,
		)
		if !rotated {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no credential attempted")
	}
	return fmt.Errorf("%w: %s after %d credential(s): %w", ErrCredentialsExhausted, b.gen.Name(), len(tried), lastErr)
}

// TranslateCues translates texts in batches of BatchSize and returns one
// translation per input, in input order.
func (b *Backend) TranslateCues(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	out := make([]string, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	batches := (len(texts) + b.opts.BatchSize - 1) / b.opts.BatchSize
	var done atomic.Int64
	sampler := logging.NewProgressSampler(10)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for n := range batches {
		start := n * b.opts.BatchSize
		end := min(start+b.opts.BatchSize, len(texts))
		g.Go(func() error {
			bctx := services.WithBatch(gctx, n)
			translated, err := b.translateBatch(bctx, start, texts[start:end], targetLang)
			if err != nil {
				return fmt.Errorf("batch %d: %w", n, err)
			}
			copy(out[start:end], translated)
			finished := int(done.Add(1))
			if b.opts.Progress != nil {
				b.opts.Progress(finished, batches)
			}
			if pct := logging.Percent(finished, batches); sampler.ShouldLog(pct, "translate") {
				b.logger.Info("structured translation progress",
					logging.Int("done", finished),
					logging.Int("total", batches),
					logging.Float64("percent", pct),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) translateBatch(ctx context.Context, start int, texts []string, targetLang string) ([]string, error) {
	req := llm.Request{
		System: TranslationSystemPrompt(targetLang),
		Prompt: EncodeItems(start, texts),
		Params: b.opts.Params,
		JSON:   true,
	}
	var result []string
	err := b.withCredential(ctx, func(ctx context.Context, key string) error {
		var lastErr error
		for range b.opts.ValidationRetries + 1 {
			resp, err := b.gen.Generate(ctx, key, req)
			if err != nil {
				return err
			}
			if resp.Truncated {
				lastErr = services.Wrap(services.ErrValidation, "translate", b.gen.Name(), "response truncated", nil)
				continue
			}
			items, err := DecodeItems(resp.Text, start, len(texts))
			if err != nil {
				lastErr = err
				b.logger.Debug("structured response rejected",
					logging.Int("start", start),
					logging.Int("count", len(texts)),
					logging.Error(err),
				)
				continue
			}
			result = items
			return nil
		}
		return services.Wrap(services.ErrTransport, "translate", b.gen.Name(), "response never matched the request", lastErr)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
