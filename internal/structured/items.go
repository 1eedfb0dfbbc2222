package structured

import (
	"fmt"
	"strings"

	"github.com/tidwall/sjson"

	"subweave/internal/language"
	"subweave/internal/services"
	"subweave/internal/services/llm"
)

// Item is one cue in the indexed wire format. Index is the 1-based cue
// position in the whole track.
type Item struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// TranslationSystemPrompt instructs the model to keep the item structure.
func TranslationSystemPrompt(targetLang string) string {
	name := language.DisplayName(targetLang)
	return strings.Join([]string{
		"You translate subtitles into " + name + " (" + targetLang + ").",
		"The input is a JSON array of objects with the fields index and text.",
		"Return only a JSON array with exactly one object per input object, using the same index values in the same order.",
		"Never merge, split, drop, or add items. Keep empty texts empty.",
		"Translate naturally for on-screen reading and keep names, numbers, and markup intact.",
	}, "\n")
}

// EncodeItems renders texts as a JSON array of items starting at position
// start (zero-based).
func EncodeItems(start int, texts []string) string {
	raw := []byte("[]")
	for i, text := range texts {
		raw, _ = sjson.SetBytes(raw, "-1", Item{Index: start + i + 1, Text: flatten(text)})
	}
	return string(raw)
}

// DecodeItems parses a model response and returns the texts ordered by
// index. It fails unless every index from start+1 to start+count appears
// exactly once.
func DecodeItems(content string, start, count int) ([]string, error) {
	var items []Item
	if err := llm.DecodeLLMJSON(content, &items); err != nil {
		return nil, services.Wrap(services.ErrValidation, "translate", "decode", "response is not an item array", err)
	}
	if len(items) != count {
		return nil, services.Wrap(services.ErrValidation, "translate", "decode",
			fmt.Sprintf("got %d items, want %d", len(items), count), nil)
	}
	out := make([]string, count)
	seen := make([]bool, count)
	for _, item := range items {
		pos := item.Index - start - 1
		if pos < 0 || pos >= count {
			return nil, services.Wrap(services.ErrValidation, "translate", "decode",
				fmt.Sprintf("unexpected index %d", item.Index), nil)
		}
		if seen[pos] {
			return nil, services.Wrap(services.ErrValidation, "translate", "decode",
				fmt.Sprintf("duplicate index %d", item.Index), nil)
		}
		seen[pos] = true
		out[pos] = strings.TrimSpace(item.Text)
	}
	return out, nil
}

func flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
