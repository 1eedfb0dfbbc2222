package bulk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subweave/internal/cuepack"
	"subweave/internal/services"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	fn    func(call int, text string) (string, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Translate(_ context.Context, text, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	n := len(f.calls)
	f.mu.Unlock()
	return f.fn(n, text)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var dictionary = strings.NewReplacer(
	"Hello", "Hola",
	"world", "mundo",
	"Good", "Buenos",
	"morning", "días",
	"friend", "amigo",
)

func translateWords(text string) string {
	return dictionary.Replace(text)
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestBackend(p Provider, opts Options) *Backend {
	if opts.Sleep == nil {
		opts.Sleep = noSleep
	}
	return New(p, opts)
}

func singleBatch(texts ...string) cuepack.Batch {
	return cuepack.Pack(texts, 0)[0]
}

func TestTranslateBatchValidated(t *testing.T) {
	p := &fakeProvider{fn: func(_ int, text string) (string, error) {
		return translateWords(text), nil
	}}
	b := newTestBackend(p, Options{})
	res, err := b.TranslateBatch(context.Background(), singleBatch("Hello world.", "Good morning"), "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != Validated || !res.Validated() {
		t.Fatalf("expected validated tier, got %s", res.Tier)
	}
	if res.Text != "Hola mundo. ◌ Buenos días ◌ " {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if p.callCount() != 1 {
		t.Fatalf("expected one call, got %d", p.callCount())
	}
}

func TestTranslateBatchRetriesTransportErrors(t *testing.T) {
	p := &fakeProvider{fn: func(call int, text string) (string, error) {
		if call <= 5 {
			return "", services.Wrap(services.ErrTransport, "translate", "fake", "unavailable", nil)
		}
		return translateWords(text), nil
	}}
	var sleeps atomic.Int32
	b := newTestBackend(p, Options{Sleep: func(context.Context, time.Duration) error {
		sleeps.Add(1)
		return nil
	}})
	res, err := b.TranslateBatch(context.Background(), singleBatch("Hello world."), "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != Validated {
		t.Fatalf("expected validated tier, got %s", res.Tier)
	}
	if res.Attempts != 6 || sleeps.Load() != 5 {
		t.Fatalf("attempts=%d sleeps=%d", res.Attempts, sleeps.Load())
	}
}

func TestTranslateBatchHardMarkerRecovery(t *testing.T) {
	p := &fakeProvider{fn: func(_ int, text string) (string, error) {
		return translateWords(strings.ReplaceAll(text, cuepack.SoftMarker, "")), nil
	}}
	batch := singleBatch("Hello world.", "Good morning")
	b := newTestBackend(p, Options{})
	res, err := b.TranslateBatch(context.Background(), batch, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != HardMarkerRecovered {
		t.Fatalf("expected hard marker tier, got %s", res.Tier)
	}
	if strings.Count(res.Text, cuepack.SoftMarker) != 2 {
		t.Fatalf("soft markers not restored: %q", res.Text)
	}
	if got := p.callCount(); got != ValidationAttempts(batch.Len())+1 {
		t.Fatalf("unexpected call count %d", got)
	}
	if !strings.Contains(p.calls[len(p.calls)-1], cuepack.HardMarkers[batch.Index]) {
		t.Fatalf("hard marker not sent: %q", p.calls[len(p.calls)-1])
	}
}

func TestTranslateBatchPerLineFallback(t *testing.T) {
	markers := append([]string{cuepack.SoftMarker}, cuepack.HardMarkers...)
	p := &fakeProvider{fn: func(_ int, text string) (string, error) {
		for _, m := range markers {
			text = strings.ReplaceAll(text, m, "")
		}
		return translateWords(text), nil
	}}
	b := newTestBackend(p, Options{HardMarkerAttempts: 2})
	res, err := b.TranslateBatch(context.Background(), singleBatch("Hello world.", "Good morning", "friend"), "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != PerLineFallback || res.Validated() {
		t.Fatalf("expected per-line tier, got %s", res.Tier)
	}
	if res.Text != "Hola mundo. ◌ Buenos días ◌ amigo ◌ " {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestTranslateBatchKeepsSourceWhenEverythingFails(t *testing.T) {
	p := &fakeProvider{fn: func(int, string) (string, error) {
		return "", services.Wrap(services.ErrConfiguration, "translate", "fake", "blocked", nil)
	}}
	batch := singleBatch("Hello world.", "Good morning")
	b := newTestBackend(p, Options{})
	res, err := b.TranslateBatch(context.Background(), batch, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != Untranslated {
		t.Fatalf("expected untranslated, got %s", res.Tier)
	}
	if res.Text != batch.Text() {
		t.Fatalf("expected source text, got %q", res.Text)
	}
}

func TestTranslateBatchRejectsEcho(t *testing.T) {
	p := &fakeProvider{fn: func(_ int, text string) (string, error) {
		return strings.ToUpper(text), nil
	}}
	batch := singleBatch("Hello world.")
	b := newTestBackend(p, Options{})
	res, err := b.TranslateBatch(context.Background(), batch, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != Untranslated || res.Text != batch.Text() {
		t.Fatalf("echo should not be accepted: %s %q", res.Tier, res.Text)
	}
}

func TestTranslateBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{fn: func(call int, _ string) (string, error) {
		if call == 3 {
			cancel()
		}
		return "", errors.New("connection reset")
	}}
	b := newTestBackend(p, Options{})
	batch := singleBatch("Hello world.")
	res, err := b.TranslateBatch(ctx, batch, "es")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if res.Text != batch.Text() || res.Tier != Untranslated {
		t.Fatalf("cancelled result should hold source text, got %+v", res)
	}
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	stores  int
}

func (c *fakeCache) Lookup(_ context.Context, provider, lang, text string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[provider+"|"+lang+"|"+text]
	return v, ok, nil
}

func (c *fakeCache) Put(_ context.Context, provider, lang, text, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	c.entries[provider+"|"+lang+"|"+text] = translated
	c.stores++
	return nil
}

func TestTranslateBatchUsesCache(t *testing.T) {
	p := &fakeProvider{fn: func(_ int, text string) (string, error) {
		return translateWords(text), nil
	}}
	cache := &fakeCache{}
	b := newTestBackend(p, Options{Cache: cache})
	batch := singleBatch("Hello world.")

	first, err := b.TranslateBatch(context.Background(), batch, "es")
	if err != nil || first.Cached {
		t.Fatalf("first call: cached=%v err=%v", first.Cached, err)
	}
	second, err := b.TranslateBatch(context.Background(), batch, "es")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.Cached || second.Text != first.Text {
		t.Fatalf("expected cached result, got %+v", second)
	}
	if p.callCount() != 1 || cache.stores != 1 {
		t.Fatalf("calls=%d stores=%d", p.callCount(), cache.stores)
	}
}

func TestTranslateAllPreservesOrder(t *testing.T) {
	texts := make([]string, 60)
	for i := range texts {
		texts[i] = "Hello world."
	}
	batches := cuepack.Pack(texts, 40)
	if len(batches) < 10 {
		t.Fatalf("expected many batches, got %d", len(batches))
	}

	var inFlight, peak atomic.Int32
	p := &fakeProvider{fn: func(call int, text string) (string, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(time.Duration(call%3) * time.Millisecond)
		inFlight.Add(-1)
		return translateWords(text), nil
	}}
	var progress atomic.Int32
	b := newTestBackend(p, Options{Concurrency: 3, Progress: func(int, int) { progress.Add(1) }})
	results, err := b.TranslateAll(context.Background(), batches, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, res := range results {
		if res.Batch.Index != i || res.Batch.Start != batches[i].Start {
			t.Fatalf("result %d holds batch %d", i, res.Batch.Index)
		}
		if res.Tier != Validated {
			t.Fatalf("result %d tier %s", i, res.Tier)
		}
	}
	if peak.Load() > 3 {
		t.Fatalf("concurrency cap exceeded: %d", peak.Load())
	}
	if int(progress.Load()) != len(batches) {
		t.Fatalf("progress called %d times", progress.Load())
	}
}

func TestValidationAttempts(t *testing.T) {
	cases := map[int]int{1: 1, 24: 1, 25: 2, 49: 2, 50: 3, 400: 3}
	for n, want := range cases {
		if got := ValidationAttempts(n); got != want {
			t.Errorf("ValidationAttempts(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestPickMarkerSkipsPresentSymbols(t *testing.T) {
	source := cuepack.HardMarkers[0] + " text"
	if got := pickMarker(source, 0); got != cuepack.HardMarkers[1] {
		t.Fatalf("unexpected marker %q", got)
	}
	if got := pickMarker("plain", len(cuepack.HardMarkers)+2); got != cuepack.HardMarkers[2] {
		t.Fatalf("offset should wrap, got %q", got)
	}
}

func TestTranslateBatchBlankCuesSkipProvider(t *testing.T) {
	p := &fakeProvider{fn: func(_ int, text string) (string, error) {
		return text, nil
	}}
	b := newTestBackend(p, Options{})
	batch := singleBatch("", "  ", "")
	res, err := b.TranslateBatch(context.Background(), batch, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != Validated || res.Text != batch.Text() {
		t.Fatalf("expected source kept as validated, got tier %s text %q", res.Tier, res.Text)
	}
	if p.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", p.callCount())
	}
}
