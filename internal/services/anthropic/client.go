// Package anthropic adapts the Anthropic Messages SDK to the structured
// generator contract. One SDK client is kept per API key.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"subweave/internal/services"
	"subweave/internal/services/llm"
)

// defaultMaxTokens applies when the request leaves the limit unset; the
// Messages API requires one.
const defaultMaxTokens = 4096

// Config captures endpoint settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client generates text with Claude models.
type Client struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*sdk.Client
}

// New returns a Client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	return &Client{cfg: cfg, clients: make(map[string]*sdk.Client)}
}

// Name identifies the provider in logs.
func (c *Client) Name() string {
	return "anthropic"
}

// Generate sends req using apiKey.
func (c *Client) Generate(ctx context.Context, apiKey string, req llm.Request) (llm.Response, error) {
	if err := req.Validate("anthropic generate"); err != nil {
		return llm.Response{}, services.Wrap(services.ErrConfiguration, "generate", "anthropic", "invalid request", err)
	}
	client, err := c.client(apiKey)
	if err != nil {
		return llm.Response{}, err
	}
	message, err := client.Messages.New(ctx, buildParams(req))
	if err != nil {
		return llm.Response{}, classify(err)
	}
	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	out := llm.Response{
		Text:         sb.String(),
		FinishReason: string(message.StopReason),
		Truncated:    message.StopReason == sdk.StopReasonMaxTokens,
	}
	if strings.TrimSpace(out.Text) == "" && !out.Truncated {
		return out, services.Wrap(services.ErrTransport, "generate", "anthropic", "empty content", nil)
	}
	return out, nil
}

func buildParams(req llm.Request) sdk.MessageNewParams {
	maxTokens := int64(req.Params.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	prompt := req.Prompt
	if req.JSON {
		prompt += "\n\nRespond with JSON only."
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Params.Model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if req.Params.Temperature > 0 {
		params.Temperature = sdk.Float(req.Params.Temperature)
	}
	if req.Params.TopK > 0 {
		params.TopK = sdk.Int(int64(req.Params.TopK))
	}
	return params
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "generate", "anthropic", "credential rejected", err)
		}
	}
	return services.Wrap(services.ErrTransport, "generate", "anthropic", "messages", err)
}

func (c *Client) client(apiKey string) (*sdk.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "anthropic", "api key required", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[apiKey]; ok {
		return client, nil
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.cfg.HTTPClient))
	}
	client := sdk.NewClient(opts...)
	c.clients[apiKey] = &client
	return &client, nil
}
