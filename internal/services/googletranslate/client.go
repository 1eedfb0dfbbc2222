// Package googletranslate talks to the public Google Translate web endpoint
// used by browser extensions. It returns free text and makes no promise about
// preserving markers or spacing.
package googletranslate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"subweave/internal/services"
)

const (
	defaultBaseURL     = "https://translate.googleapis.com/translate_a/single"
	defaultHTTPTimeout = 30 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) subweave"
	maxErrorBody       = 512
)

// Config captures endpoint settings.
type Config struct {
	BaseURL string
	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64
	SourceLanguage    string
}

// Client translates text through the gtx endpoint.
type Client struct {
	baseURL    string
	source     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		source:     strings.TrimSpace(cfg.SourceLanguage),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.source == "" {
		c.source = "auto"
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in logs and cache keys.
func (c *Client) Name() string {
	return "google"
}

// Translate sends text and returns the concatenated translated sentences.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(targetLang) == "" {
		return "", services.Wrap(services.ErrConfiguration, "translate", "google", "target language required", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", c.source)
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("ie", "UTF-8")
	query.Set("oe", "UTF-8")
	endpoint := c.baseURL + "?" + query.Encode()

	form := url.Values{}
	form.Set("q", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "translate", "google", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "translate", "google", "http request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "translate", "google", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		marker := services.ErrTransport
		if resp.StatusCode == http.StatusBadRequest {
			marker = services.ErrValidation
		}
		return "", services.Wrap(marker, "translate", "google", fmt.Sprintf("http %d: %s", resp.StatusCode, snippet), nil)
	}
	return ParseResponse(body)
}

// ParseResponse extracts translated text from a gtx payload of the form
// [[["translated","original",...],...],...].
func ParseResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", services.Wrap(services.ErrTransport, "translate", "google", "malformed response", nil)
	}
	sentences := gjson.GetBytes(body, "0")
	if !sentences.IsArray() {
		return "", services.Wrap(services.ErrTransport, "translate", "google", "response has no sentences", nil)
	}
	var sb strings.Builder
	sentences.ForEach(func(_, sentence gjson.Result) bool {
		if part := sentence.Get("0"); part.Type == gjson.String {
			sb.WriteString(part.String())
		}
		return true
	})
	return sb.String(), nil
}
