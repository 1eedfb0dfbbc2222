package llm

import (
	"fmt"
	"strings"
)

// Params are the generation knobs passed through to a provider. Zero values
// leave the provider default in place.
type Params struct {
	Model           string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// Request is a single prompt sent to a text generation provider.
type Request struct {
	System string
	Prompt string
	Params Params
	// JSON asks the provider for a JSON-only response.
	JSON bool
}

// Response is the provider output for a Request.
type Response struct {
	Text string
	// Truncated is set when the provider stopped on its output token limit.
	Truncated    bool
	FinishReason string
}

// Validate reports a missing prompt or model.
func (r Request) Validate(op string) error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%s: prompt required", op)
	}
	if strings.TrimSpace(r.Params.Model) == "" {
		return fmt.Errorf("%s: model required", op)
	}
	return nil
}
