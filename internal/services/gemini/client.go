// Package gemini adapts the Google Gemini SDK to the structured generator
// contract. One SDK client is kept per API key.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"subweave/internal/services"
	"subweave/internal/services/llm"
)

const jsonMIMEType = "application/json"

// Client generates text with Gemini models.
type Client struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
	opts    []option.ClientOption
}

// New returns a Client. Extra options are applied to every SDK client.
func New(opts ...option.ClientOption) *Client {
	return &Client{
		clients: make(map[string]*genai.Client),
		opts:    opts,
	}
}

// Name identifies the provider in logs.
func (c *Client) Name() string {
	return "gemini"
}

// Generate sends req using apiKey.
func (c *Client) Generate(ctx context.Context, apiKey string, req llm.Request) (llm.Response, error) {
	if err := req.Validate("gemini generate"); err != nil {
		return llm.Response{}, services.Wrap(services.ErrConfiguration, "generate", "gemini", "invalid request", err)
	}
	sdk, err := c.client(ctx, apiKey)
	if err != nil {
		return llm.Response{}, err
	}
	model := sdk.GenerativeModel(req.Params.Model)
	configure(model, req)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return llm.Response{}, err
		}
		return llm.Response{}, services.Wrap(services.ErrTransport, "generate", "gemini", "generate content", err)
	}
	return toResponse(resp)
}

// Close releases every cached SDK client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for key, sdk := range c.clients {
		if err := sdk.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.clients, key)
	}
	return errors.Join(errs...)
}

func (c *Client) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "gemini", "api key required", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if sdk, ok := c.clients[apiKey]; ok {
		return sdk, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, c.opts...)
	sdk, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "gemini", "create client", err)
	}
	c.clients[apiKey] = sdk
	return sdk, nil
}

// configure copies request parameters onto a fresh model handle.
func configure(model *genai.GenerativeModel, req llm.Request) {
	p := req.Params
	if p.Temperature > 0 {
		model.SetTemperature(float32(p.Temperature))
	}
	if p.TopP > 0 {
		model.SetTopP(float32(p.TopP))
	}
	if p.TopK > 0 {
		model.SetTopK(int32(p.TopK))
	}
	if p.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(p.MaxOutputTokens))
	}
	if system := strings.TrimSpace(req.System); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if req.JSON {
		model.ResponseMIMEType = jsonMIMEType
	}
}

func toResponse(resp *genai.GenerateContentResponse) (llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return llm.Response{}, services.Wrap(services.ErrTransport, "generate", "gemini", "no candidates returned", nil)
	}
	candidate := resp.Candidates[0]
	var sb strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	out := llm.Response{
		Text:         sb.String(),
		Truncated:    candidate.FinishReason == genai.FinishReasonMaxTokens,
		FinishReason: fmt.Sprint(candidate.FinishReason),
	}
	if strings.TrimSpace(out.Text) == "" && !out.Truncated {
		return out, services.Wrap(services.ErrTransport, "generate", "gemini",
			fmt.Sprintf("empty content (finish_reason=%s)", out.FinishReason), nil)
	}
	return out, nil
}
