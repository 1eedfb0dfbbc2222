package subtitles

import (
	"context"
	"strings"

	"subweave/internal/fileutil"
	"subweave/internal/textutil"
)

// Texts returns the text of every cue in order.
func Texts(cues []Cue) []string {
	out := make([]string, len(cues))
	for i, cue := range cues {
		out[i] = cue.Text
	}
	return out
}

// PlainText joins all cue texts into one whitespace-collapsed line without
// timestamps.
func PlainText(cues []Cue) string {
	parts := make([]string, 0, len(cues))
	for _, cue := range cues {
		if text := textutil.CollapseSpaces(cue.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// ExportPlainText writes PlainText(cues) to path.
func ExportPlainText(ctx context.Context, cues []Cue, path string) error {
	return fileutil.WriteFileAtomic(ctx, path, []byte(PlainText(cues)+"\n"), 0o644)
}
