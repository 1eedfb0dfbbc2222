// Package reconcile maps translated batch text back onto the cues it came from.
package reconcile

import (
	"math"
	"strings"

	"subweave/internal/cuepack"
	"subweave/internal/textutil"
)

// Method records how a batch was mapped back onto its cues.
type Method int

const (
	// Original means no translation was available and the source lines were kept.
	Original Method = iota
	// Aligned means the translated fragments matched the cue count.
	Aligned
	// Redistributed means words were spread across cues by proportion.
	Redistributed
	// Collapsed means no words could be counted and the text became one line.
	Collapsed
)

func (m Method) String() string {
	switch m {
	case Original:
		return "original"
	case Aligned:
		return "aligned"
	case Redistributed:
		return "redistributed"
	case Collapsed:
		return "collapsed"
	default:
		return "unknown"
	}
}

const blank = " "

// Reconstruct returns exactly len(original) lines recovered from translated.
func Reconstruct(original []string, translated string) []string {
	lines, _ := Reconcile(original, translated)
	return lines
}

// Reconcile is Reconstruct that also reports the method used. The returned
// slice always has len(original) entries; an empty original yields nil.
func Reconcile(original []string, translated string) ([]string, Method) {
	want := len(original)
	if want == 0 {
		return nil, Original
	}
	originalLines := splitLines(original)

	if strings.TrimSpace(translated) == "" {
		if len(originalLines) == 0 {
			return fit([]string{blank}, want), Original
		}
		return fit(originalLines, want), Original
	}

	fragments := Fragments(translated)
	if len(fragments) == len(originalLines) && len(fragments) > 0 {
		return fit(fragments, want), Aligned
	}

	originalWords := 0
	for _, line := range originalLines {
		originalWords += len(strings.Fields(line))
	}
	pool := strings.Fields(StripMarkers(strings.Join(fragments, " ")))
	if originalWords == 0 || len(pool) == 0 {
		flat := textutil.CollapseSpaces(StripMarkers(translated))
		if flat == "" {
			flat = blank
		}
		return fit([]string{flat}, want), Collapsed
	}

	return fit(redistribute(originalLines, pool, originalWords), want), Redistributed
}

// redistribute hands each original line a share of the translated word pool
// proportional to its own word count. The last line takes the remainder.
func redistribute(originalLines, pool []string, originalWords int) []string {
	ratio := float64(len(pool)) / float64(originalWords)
	out := make([]string, 0, len(originalLines))
	pos := 0
	for i, line := range originalLines {
		take := int(math.RoundToEven(float64(len(strings.Fields(line))) * ratio))
		from := min(pos, len(pool))
		to := min(pos+take, len(pool))
		words := pool[from:to]
		pos += take
		if i == len(originalLines)-1 && to < len(pool) {
			words = pool[from:]
			pos = len(pool)
		}
		out = append(out, strings.Join(words, " "))
	}
	return out
}

// Fragments splits translated text on the soft marker after repairing the
// spacing providers commonly introduce around it.
func Fragments(translated string) []string {
	m := cuepack.SoftMarker
	fixed := translated
	for _, r := range [][2]string{
		{m + " ", m},
		{" " + m, m},
		{m + ".", "." + m},
		{m + ",", "," + m},
	} {
		fixed = strings.ReplaceAll(fixed, r[0], r[1])
	}
	return normalize(strings.Split(fixed, m))
}

// StripMarkers removes every soft marker from s.
func StripMarkers(s string) string {
	return strings.ReplaceAll(s, cuepack.SoftMarker, " ")
}

func splitLines(original []string) []string {
	pieces := make([]string, 0, len(original))
	for _, line := range original {
		pieces = append(pieces, strings.Split(line, cuepack.SoftMarker)...)
	}
	return normalize(pieces)
}

// normalize collapses whitespace, drops leading stray punctuation left over
// from marker splits, and discards empty pieces.
func normalize(pieces []string) []string {
	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		piece = textutil.CollapseSpaces(piece)
		if piece == "" {
			continue
		}
		if trimmed := strings.TrimLeft(piece, " ,.:;)"); trimmed != "" {
			piece = trimmed
		}
		out = append(out, piece)
	}
	return out
}

// fit pads lines by repeating the last entry, or merges the overflow into
// the final line, so the result has exactly n entries.
func fit(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) == 0 {
		lines = []string{blank}
	}
	if len(lines) > n {
		head := append([]string(nil), lines[:n-1]...)
		tail := strings.Join(lines[n-1:], " ")
		return append(head, tail)
	}
	out := append(make([]string, 0, n), lines...)
	for len(out) < n {
		out = append(out, out[len(out)-1])
	}
	return out
}
