package textmetrics

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// FindFont returns the font file used for family when searching dirs, or ""
// when the embedded fallback face applies.
func FindFont(dirs []string, family string) string {
	r := &fontResolver{dirs: dirs}
	return r.find(family)
}

type fontResolver struct {
	dirs []string
}

// load parses the best font file for family from the configured directories,
// or the embedded Go Bold face when no file matches.
func (r *fontResolver) load(family string) (*opentype.Font, error) {
	if path := r.find(family); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return opentype.Parse(data)
	}
	return opentype.Parse(gobold.TTF)
}

// find returns the font file whose name starts with the normalized family,
// preferring bold variants.
func (r *fontResolver) find(family string) string {
	want := normalizeName(family)
	if want == "" {
		return ""
	}
	var candidates []string
	for _, dir := range r.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".ttf" && ext != ".otf" {
				return nil
			}
			name := normalizeName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			if strings.HasPrefix(name, want) {
				candidates = append(candidates, path)
			}
			return nil
		})
	}
	return pickVariant(candidates, want)
}

func pickVariant(candidates []string, family string) string {
	if len(candidates) == 0 {
		return ""
	}
	best, bestScore := "", -1
	for _, path := range candidates {
		name := normalizeName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		style := strings.TrimPrefix(name, family)
		score := 0
		switch {
		case style == "bold":
			score = 4
		case strings.Contains(style, "bold") && !strings.Contains(style, "italic") && !strings.Contains(style, "semi") && !strings.Contains(style, "extra"):
			score = 3
		case style == "" || style == "regular":
			score = 2
		case !strings.Contains(style, "italic"):
			score = 1
		}
		if score > bestScore {
			best, bestScore = path, score
		}
	}
	return best
}

func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '-', '_', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
