package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"subweave/internal/services"
	"subweave/internal/services/llm"
)

func testRequest() llm.Request {
	return llm.Request{
		System: "Translate.",
		Prompt: "hello",
		Params: llm.Params{Model: "claude-test", Temperature: 0.3, TopK: 40, MaxOutputTokens: 128},
	}
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "key-1" {
			t.Errorf("unexpected api key header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["model"] != "claude-test" || body["max_tokens"] != float64(128) {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "max_tokens",
			"content":     []any{map[string]any{"type": "text", "text": "hola"}},
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	defer server.Close()

	resp, err := New(Config{BaseURL: server.URL}).Generate(context.Background(), "key-1", testRequest())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text != "hola" || !resp.Truncated {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGenerateRejectedKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).Generate(context.Background(), "bad", testRequest())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildParams(t *testing.T) {
	req := testRequest()
	req.JSON = true
	req.Params.MaxOutputTokens = 0
	params := buildParams(req)
	if params.MaxTokens != defaultMaxTokens {
		t.Fatalf("unexpected max tokens %d", params.MaxTokens)
	}
	if len(params.System) != 1 || params.System[0].Text != "Translate." {
		t.Fatalf("unexpected system %+v", params.System)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("unexpected messages %+v", params.Messages)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	if !strings.Contains(string(raw), "JSON only") {
		t.Fatalf("json instruction missing: %s", raw)
	}
}
