// Package openai adapts the OpenAI chat completion SDK to the structured
// generator contract. One SDK client is kept per API key.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"subweave/internal/services"
	"subweave/internal/services/llm"
)

// Config captures endpoint settings.
type Config struct {
	// BaseURL overrides the API root, e.g. for compatible gateways.
	BaseURL    string
	HTTPClient *http.Client
}

// Client generates text with OpenAI chat models.
type Client struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*goopenai.Client
}

// New returns a Client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	return &Client{cfg: cfg, clients: make(map[string]*goopenai.Client)}
}

// Name identifies the provider in logs.
func (c *Client) Name() string {
	return "openai"
}

// Generate sends req using apiKey.
func (c *Client) Generate(ctx context.Context, apiKey string, req llm.Request) (llm.Response, error) {
	if err := req.Validate("openai generate"); err != nil {
		return llm.Response{}, services.Wrap(services.ErrConfiguration, "generate", "openai", "invalid request", err)
	}
	sdk, err := c.client(apiKey)
	if err != nil {
		return llm.Response{}, err
	}
	resp, err := sdk.CreateChatCompletion(ctx, buildRequest(req))
	if err != nil {
		return llm.Response{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, services.Wrap(services.ErrTransport, "generate", "openai", "no choices returned", nil)
	}
	choice := resp.Choices[0]
	out := llm.Response{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Truncated:    choice.FinishReason == goopenai.FinishReasonLength,
	}
	if strings.TrimSpace(out.Text) == "" && !out.Truncated {
		return out, services.Wrap(services.ErrTransport, "generate", "openai", "empty content", nil)
	}
	return out, nil
}

func buildRequest(req llm.Request) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})
	out := goopenai.ChatCompletionRequest{
		Model:       req.Params.Model,
		Messages:    messages,
		Temperature: float32(req.Params.Temperature),
		TopP:        float32(req.Params.TopP),
		MaxTokens:   req.Params.MaxOutputTokens,
	}
	if req.JSON {
		out.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return services.Wrap(services.ErrConfiguration, "generate", "openai", "credential rejected", err)
	}
	return services.Wrap(services.ErrTransport, "generate", "openai", "chat completion", err)
}

func (c *Client) client(apiKey string) (*goopenai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "openai", "api key required", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if sdk, ok := c.clients[apiKey]; ok {
		return sdk, nil
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if c.cfg.BaseURL != "" {
		cfg.BaseURL = c.cfg.BaseURL
	}
	if c.cfg.HTTPClient != nil {
		cfg.HTTPClient = c.cfg.HTTPClient
	}
	sdk := goopenai.NewClientWithConfig(cfg)
	c.clients[apiKey] = sdk
	return sdk, nil
}
