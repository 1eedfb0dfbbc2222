package linewrap

import (
	"strings"

	"subweave/internal/textmetrics"
)

// Measurer reports rendered text width in pixels.
type Measurer interface {
	Measure(text, family string, size float64) float64
}

// Word is a timed token. Start and End are valid only when the matching
// Has flag is set.
type Word struct {
	Text     string
	Start    float64
	End      float64
	HasStart bool
	HasEnd   bool
}

// Segment is a run of words displayed together.
type Segment struct {
	Text  string
	Start float64
	End   float64
	Words []Word
}

// Wrapper applies width-aware breaking with one font.
type Wrapper struct {
	measure Measurer
	font    textmetrics.Font
}

// New returns a Wrapper measuring with m in font f.
func New(m Measurer, f textmetrics.Font) *Wrapper {
	if f.Family == "" {
		f.Family = textmetrics.DefaultFamily
	}
	if f.Size <= 0 {
		f.Size = textmetrics.DefaultSize
	}
	return &Wrapper{measure: m, font: f}
}

func (w *Wrapper) width(text string) float64 {
	return w.measure.Measure(text, w.font.Family, w.font.Size)
}

// endsWithPunctuation reports whether word closes a clause.
func endsWithPunctuation(word string) bool {
	if word == "" {
		return false
	}
	switch word[len(word)-1] {
	case '.', ',', '!', '?', ':', ';':
		return true
	}
	return false
}

// keepOnLine decides whether the next word joins the current line even when
// it does not fit: an isolated sentence ending stays with its sentence, and a
// short word after a long one is not left dangling at the next line start.
func keepOnLine(current []string, next string) bool {
	isolatedEnding := endsWithPunctuation(next) &&
		!(len(current) > 0 && endsWithPunctuation(current[len(current)-1]))
	logicalBreak := len(current) >= 2 &&
		len([]rune(current[len(current)-1])) <= 3 &&
		len([]rune(current[len(current)-2])) > 3
	return isolatedEnding || logicalBreak
}

// WrapWordsToWidth groups words into segments whose measured width stays
// under maxWidth, except where the break rules keep a word on its line.
// A segment with no timed word gets zero times.
func (w *Wrapper) WrapWordsToWidth(words []Word, maxWidth float64) []Segment {
	return w.wrapWords(words, maxWidth, 0, 0)
}

func (w *Wrapper) wrapWords(words []Word, maxWidth, fallbackStart, fallbackEnd float64) []Segment {
	var (
		segments []Segment
		current  []Word
		texts    []string
		width    float64
	)
	emit := func() {
		segments = append(segments, newSegment(current, fallbackStart, fallbackEnd))
	}
	for _, word := range words {
		added := w.width(word.Text + " ")
		if width+added < maxWidth || len(current) == 0 || keepOnLine(texts, word.Text) {
			current = append(current, word)
			texts = append(texts, word.Text)
			width += added
			continue
		}
		emit()
		current = []Word{word}
		texts = []string{word.Text}
		width = added
	}
	if len(current) > 0 {
		emit()
	}
	return segments
}

func newSegment(words []Word, fallbackStart, fallbackEnd float64) Segment {
	seg := Segment{Start: fallbackStart, End: fallbackEnd, Words: append([]Word(nil), words...)}
	texts := make([]string, len(words))
	for i, word := range words {
		texts[i] = word.Text
	}
	seg.Text = strings.Join(texts, " ")
	for _, word := range words {
		if word.HasStart {
			seg.Start = word.Start
			break
		}
	}
	for i := len(words) - 1; i >= 0; i-- {
		if words[i].HasEnd {
			seg.End = words[i].End
			break
		}
	}
	return seg
}

// SplitSegments re-wraps the words of each segment to maxWidth, falling back
// to the segment's own times for pieces without timed words.
func (w *Wrapper) SplitSegments(segments []Segment, maxWidth float64) []Segment {
	var out []Segment
	for _, seg := range segments {
		out = append(out, w.wrapWords(seg.Words, maxWidth, seg.Start, seg.End)...)
	}
	return out
}

// WrapTextToLines splits text into at most maxLines balanced lines. Text that
// fits within 80% of maxWidth, or maxLines below 2, stays on one line. Once
// maxLines-1 lines are closed every remaining word goes on the last line.
func (w *Wrapper) WrapTextToLines(text string, maxWidth float64, maxLines int) []string {
	total := w.width(text)
	if total <= maxWidth*0.8 || maxLines < 2 {
		return []string{text}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	target := total / float64(maxLines)
	var (
		lines   []string
		current []string
		width   float64
	)
	for i, word := range words {
		added := w.width(word + " ")
		if width+added < target || len(current) == 0 || keepOnLine(current, word) {
			current = append(current, word)
			width += added
		} else {
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
			width = added
		}
		if len(lines) == maxLines-1 {
			lines = append(lines, strings.Join(words[i:], " "))
			current = nil
			break
		}
	}
	if len(current) > 0 && len(lines) < maxLines {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}

// Rewrap flattens text and re-wraps it to exactly the given number of lines
// where the words allow, joining lines with "\n".
func (w *Wrapper) Rewrap(text string, lines int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if flat == "" {
		return text
	}
	return strings.Join(w.WrapTextToLines(flat, 0, lines), "\n")
}

// AdjustTimes extends each segment's end by extraEnd when the following gap
// exceeds 1.5+extraEnd, and snaps the end to the next start when the gap is
// smaller. The last segment is untouched.
func AdjustTimes(segments []Segment, extraEnd float64) []Segment {
	limit := 1.5 + extraEnd
	for i := 0; i < len(segments)-1; i++ {
		gap := segments[i+1].Start - segments[i].End
		switch {
		case gap > limit:
			segments[i].End += extraEnd
		case gap < limit:
			segments[i].End = segments[i+1].Start
		}
	}
	return segments
}

// FormatSegments splits segments to maxLineWidth*maxLines, wraps each text to
// maxLines lines of maxLineWidth, and adjusts display times.
func (w *Wrapper) FormatSegments(segments []Segment, maxLineWidth float64, maxLines int, extraEnd float64) []Segment {
	out := w.SplitSegments(segments, maxLineWidth*float64(maxLines))
	for i := range out {
		out[i].Text = strings.Join(w.WrapTextToLines(out[i].Text, maxLineWidth, maxLines), "\n")
	}
	return AdjustTimes(out, extraEnd)
}

// WordsFromText splits text into words and spreads the span start..end over
// them in proportion to their length, so untimed cues can be re-segmented.
func WordsFromText(text string, start, end float64) []Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	total := 0
	for _, f := range fields {
		total += len([]rune(f))
	}
	span := end - start
	words := make([]Word, len(fields))
	offset := 0
	for i, f := range fields {
		n := len([]rune(f))
		words[i] = Word{
			Text:     f,
			Start:    start + span*float64(offset)/float64(total),
			End:      start + span*float64(offset+n)/float64(total),
			HasStart: true,
			HasEnd:   true,
		}
		offset += n
	}
	words[len(words)-1].End = end
	return words
}
