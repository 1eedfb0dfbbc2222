package structured

import (
	"context"
	"fmt"
	"strings"

	"subweave/internal/logging"
	"subweave/internal/services"
	"subweave/internal/services/llm"
	"subweave/internal/textutil"
)

const (
	DefaultEndMarker         = "<<END_OF_DOCUMENT>>"
	DefaultMaxRounds         = 4
	DefaultContinuationChars = 1200
	// seamChars is the length of the output tail searched for in a
	// continuation to drop repeated text.
	seamChars = 200
)

// ErrGenerationIncomplete means the end marker never arrived within the
// allowed number of rounds.
var ErrGenerationIncomplete = fmt.Errorf("%w: generation incomplete", services.ErrTerminal)

// LongForm configures GenerateLongForm.
type LongForm struct {
	EndMarker         string
	MaxRounds         int
	ContinuationChars int
}

func (lf LongForm) withDefaults() LongForm {
	if strings.TrimSpace(lf.EndMarker) == "" {
		lf.EndMarker = DefaultEndMarker
	}
	if lf.MaxRounds <= 0 {
		lf.MaxRounds = DefaultMaxRounds
	}
	if lf.ContinuationChars <= 0 {
		lf.ContinuationChars = DefaultContinuationChars
	}
	return lf
}

// GenerateLongForm asks for a document that ends with the end marker. When a
// response is truncated or lacks the marker, a continuation request carrying
// the tail of the output so far is sent, up to MaxRounds requests in total.
// The returned text has the marker removed. On ErrGenerationIncomplete the
// partial text is returned alongside the error.
func (b *Backend) GenerateLongForm(ctx context.Context, req llm.Request, lf LongForm) (string, error) {
	lf = lf.withDefaults()
	first := req
	first.JSON = false
	first.Prompt = strings.TrimSpace(req.Prompt) + "\n\n" + endInstruction(lf.EndMarker)

	var output string
	for round := 1; round <= lf.MaxRounds; round++ {
		current := first
		if round > 1 {
			current.Prompt = continuationPrompt(req.Prompt, output, lf)
		}
		resp, err := b.Complete(ctx, current)
		if err != nil {
			return stripMarker(output, lf.EndMarker), err
		}
		if round == 1 {
			output = resp.Text
		} else {
			output = MergeContinuation(output, resp.Text)
		}
		if idx := strings.Index(output, lf.EndMarker); idx >= 0 {
			return strings.TrimSpace(output[:idx]), nil
		}
		b.logger.Debug("long-form output incomplete",
			logging.Int("round", round),
			logging.Bool("truncated", resp.Truncated),
			logging.Int("chars", textutil.Len(output)),
		)
	}
	return stripMarker(output, lf.EndMarker), fmt.Errorf("%w: no end marker after %d rounds", ErrGenerationIncomplete, lf.MaxRounds)
}

// MergeContinuation appends next to prev. When the last characters of prev
// reappear inside next, everything up to and including them is dropped.
func MergeContinuation(prev, next string) string {
	tail := textutil.TailRunes(prev, seamChars)
	if tail != "" {
		if idx := strings.Index(next, tail); idx >= 0 {
			next = next[idx+len(tail):]
		}
	}
	return prev + next
}

func endInstruction(marker string) string {
	return "When the document is complete, write " + marker + " on its own line and nothing after it."
}

func continuationPrompt(original, output string, lf LongForm) string {
	tail := textutil.TailRunes(output, lf.ContinuationChars)
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(original))
	sb.WriteString("\n\nYour previous answer was cut off. These are its last characters:\n<<<\n")
	sb.WriteString(tail)
	sb.WriteString("\n>>>\nContinue exactly where it stopped. Do not repeat any text that was already written. ")
	sb.WriteString(endInstruction(lf.EndMarker))
	return sb.String()
}

func stripMarker(text, marker string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, marker, ""))
}
