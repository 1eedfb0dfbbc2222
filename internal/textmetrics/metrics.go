package textmetrics

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"subweave/internal/logging"
)

const (
	// DefaultFamily and DefaultSize describe the subtitle face used for layout.
	DefaultFamily = "Jost"
	DefaultSize   = 18

	defaultAttempts = 5
	// Sizes are points rendered at 72 DPI, so one point is one pixel.
	layoutDPI = 72
	// Average glyph advance as a fraction of the font size.
	heuristicAdvance = 0.6
)

// Font identifies a face by family name and point size.
type Font struct {
	Family string
	Size   float64
}

// Options configures a Measurer.
type Options struct {
	// FontDirs are searched for .ttf/.otf files matching a family name.
	FontDirs []string
	// Attempts bounds measurement retries before the heuristic applies.
	Attempts int
	Logger   *slog.Logger
}

type faceKey struct {
	family string
	size   float64
}

type cachedFace struct {
	mu   sync.Mutex
	face font.Face
}

// Measurer computes text widths. It is safe for concurrent use.
type Measurer struct {
	mu       sync.Mutex
	faces    map[faceKey]*cachedFace
	fonts    map[string]*opentype.Font
	attempts int
	logger   *slog.Logger
	loadFont func(family string) (*opentype.Font, error)
	warned   map[faceKey]bool
}

// New constructs a Measurer.
func New(opts Options) *Measurer {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	resolver := &fontResolver{dirs: append([]string(nil), opts.FontDirs...)}
	return &Measurer{
		faces:    make(map[faceKey]*cachedFace),
		fonts:    make(map[string]*opentype.Font),
		attempts: attempts,
		logger:   logging.NewComponentLogger(opts.Logger, "textmetrics"),
		loadFont: resolver.load,
		warned:   make(map[faceKey]bool),
	}
}

// Measure returns the pixel width of text rendered in family at size.
func (m *Measurer) Measure(text, family string, size float64) float64 {
	if text == "" {
		return 0
	}
	if family == "" {
		family = DefaultFamily
	}
	if size <= 0 {
		size = DefaultSize
	}
	key := faceKey{family: family, size: size}

	var lastErr error
	for attempt := 0; attempt < m.attempts; attempt++ {
		cf, err := m.face(key)
		if err != nil {
			lastErr = err
			m.evict(key)
			continue
		}
		width, err := cf.measure(text)
		if err != nil {
			lastErr = err
			m.evict(key)
			continue
		}
		return width
	}
	m.warnHeuristic(key, lastErr)
	return Heuristic(text, size)
}

// MeasureFont is Measure with a Font value.
func (m *Measurer) MeasureFont(text string, f Font) float64 {
	return m.Measure(text, f.Family, f.Size)
}

// Heuristic estimates width from the character count.
func Heuristic(text string, size float64) float64 {
	return float64(len([]rune(text))) * size * heuristicAdvance
}

func (m *Measurer) face(key faceKey) (*cachedFace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cf, ok := m.faces[key]; ok {
		return cf, nil
	}
	parsed, ok := m.fonts[key.family]
	if !ok {
		var err error
		parsed, err = m.loadFont(key.family)
		if err != nil {
			return nil, fmt.Errorf("load font %q: %w", key.family, err)
		}
		m.fonts[key.family] = parsed
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    key.size,
		DPI:     layoutDPI,
		Hinting: font.HintingNone,
	})
	if err != nil {
		delete(m.fonts, key.family)
		return nil, fmt.Errorf("prepare face %q@%v: %w", key.family, key.size, err)
	}
	cf := &cachedFace{face: face}
	m.faces[key] = cf
	return cf, nil
}

func (m *Measurer) evict(key faceKey) {
	m.mu.Lock()
	cf, ok := m.faces[key]
	delete(m.faces, key)
	m.mu.Unlock()
	if ok {
		cf.close()
	}
}

func (m *Measurer) warnHeuristic(key faceKey, err error) {
	m.mu.Lock()
	seen := m.warned[key]
	m.warned[key] = true
	m.mu.Unlock()
	if seen {
		return
	}
	logging.WarnWithContext(m.logger, "text measurement failed; using character estimate", "measurement_fallback",
		logging.String("font", key.family),
		logging.Float64("size", key.size),
		logging.Error(err),
		logging.String(logging.FieldImpact, "line breaks approximate the real rendered width"),
		logging.String(logging.FieldErrorHint, "install the font or set layout.font_dirs"),
	)
}

// Close releases every prepared face.
func (m *Measurer) Close() error {
	m.mu.Lock()
	faces := m.faces
	m.faces = make(map[faceKey]*cachedFace)
	m.mu.Unlock()
	for _, cf := range faces {
		cf.close()
	}
	return nil
}

func (cf *cachedFace) measure(text string) (width float64, err error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("measure text: %v", r)
		}
	}()
	if cf.face == nil {
		return 0, fmt.Errorf("measure text: face closed")
	}
	advance := font.MeasureString(cf.face, text)
	return float64(advance) / 64, nil
}

func (cf *cachedFace) close() {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	if cf.face != nil {
		_ = cf.face.Close()
		cf.face = nil
	}
}
