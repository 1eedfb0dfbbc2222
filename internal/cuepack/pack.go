package cuepack

import (
	"strings"

	"subweave/internal/textutil"
)

const (
	// SoftMarker is the bare boundary symbol searched for in translations.
	SoftMarker = "◌"
	// Separator is appended after every cue text inside a batch.
	Separator = " " + SoftMarker + " "
	// MarkerLookalike replaces a literal soft marker found in cue text so the
	// only markers in a batch are the cue boundaries.
	MarkerLookalike = "○"
	// Placeholder stands in for empty cues so every entry has an anchor.
	Placeholder = "\u3164"
	// Ellipsis marks a cue that was cut to fit the budget.
	Ellipsis = "…"
	// DefaultMaxChars keeps a batch under the public bulk endpoint limit.
	DefaultMaxChars = 4999
)

// HardMarkers are substituted for the soft marker when a provider keeps
// mangling it. Each symbol is a single character that providers tend to copy
// through untouched.
var HardMarkers = []string{"¶", "§", "※", "¤", "†", "‡"}

var sentenceEndings = []string{".", "!", "?", ")", "よ", "ね", "の", "さ", "ぞ", "な", "か", "！", "。", "」", "…"}

// Batch is a contiguous run of cues sent to a provider as one text.
type Batch struct {
	// Index is the position of the batch in the pack result.
	Index int
	// Start is the zero-based index of the first cue in the batch.
	Start int
	// Lines holds the flattened cue texts as they appear in Text.
	Lines []string
	// Truncated is set when the single cue in the batch was cut to fit.
	Truncated bool
	text      string
}

// End returns the index one past the last cue in the batch.
func (b Batch) End() int {
	return b.Start + len(b.Lines)
}

// Len returns the number of cues in the batch.
func (b Batch) Len() int {
	return len(b.Lines)
}

// Text returns the payload sent to the provider.
func (b Batch) Text() string {
	if b.text == "" && len(b.Lines) > 0 {
		return Join(b.Lines)
	}
	return b.text
}

// WithMarker returns Text with the soft marker replaced by marker.
func (b Batch) WithMarker(marker string) string {
	if marker == "" || marker == SoftMarker {
		return b.Text()
	}
	return strings.ReplaceAll(b.Text(), SoftMarker, marker)
}

// Join concatenates lines with the separator after each entry.
func Join(lines []string) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString(Separator)
	}
	return sb.String()
}

// Flatten trims a cue text, joins its lines with single spaces, and swaps
// any literal soft marker for MarkerLookalike.
func Flatten(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, SoftMarker, MarkerLookalike))
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return strings.Join(lines, " ")
}

// EndsSentence reports whether line finishes with a sentence-ending mark.
func EndsSentence(line string) bool {
	for _, ending := range sentenceEndings {
		if strings.HasSuffix(line, ending) {
			return true
		}
	}
	return false
}

// Pack splits cue texts into batches of at most maxChars characters,
// separator included. A cue that cannot fit on its own is cut at the last
// word boundary, suffixed with an ellipsis, and emitted as its own batch; the
// cut text is lost. Non-positive maxChars selects DefaultMaxChars.
func Pack(texts []string, maxChars int) []Batch {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	sepLen := textutil.Len(Separator)

	lines := make([]string, len(texts))
	for i, text := range texts {
		lines[i] = Flatten(text)
		if lines[i] == "" {
			lines[i] = Placeholder
		}
	}

	var (
		batches []Batch
		current []string
		curLen  int
		start   int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, Batch{
			Index: len(batches),
			Start: start,
			Lines: current,
			text:  Join(current),
		})
		start += len(current)
		current = nil
		curLen = 0
	}

	for i, line := range lines {
		lineLen := textutil.Len(line)
		if len(current) > 0 && curLen+lineLen+sepLen > maxChars {
			flush()
		}

		if lineLen+sepLen > maxChars {
			cut := truncateLine(line, maxChars-(1+sepLen))
			batches = append(batches, Batch{
				Index:     len(batches),
				Start:     start,
				Lines:     []string{cut},
				Truncated: true,
				text:      textutil.TruncateRunes(cut+Separator, maxChars),
			})
			start++
			continue
		}

		current = append(current, line)
		curLen += lineLen + sepLen

		last := i == len(lines)-1
		if last {
			flush()
			continue
		}
		if !EndsSentence(line) {
			continue
		}
		if curLen+textutil.Len(lines[i+1])+sepLen > maxChars {
			flush()
		}
	}
	flush()
	return batches
}

// truncateLine cuts line to fewer than limit characters at the last space,
// or hard at limit when there is none, and appends an ellipsis.
func truncateLine(line string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	runes := []rune(line)
	if limit > len(runes) {
		limit = len(runes)
	}
	end := -1
	for j := limit - 1; j >= 0; j-- {
		if runes[j] == ' ' {
			end = j
			break
		}
	}
	if end < 0 {
		end = limit
	}
	return string(runes[:end]) + Ellipsis
}

// Ranges returns the [start, end) cue range of every batch.
func Ranges(batches []Batch) [][2]int {
	out := make([][2]int, len(batches))
	for i, b := range batches {
		out[i] = [2]int{b.Start, b.End()}
	}
	return out
}
