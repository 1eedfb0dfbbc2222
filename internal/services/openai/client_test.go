package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"subweave/internal/services"
	"subweave/internal/services/llm"
)

func newServer(t *testing.T, status int, finish string, seenKeys *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seenKeys = append(*seenKeys, r.Header.Get("Authorization"))
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["model"] != "gpt-test" {
			t.Errorf("unexpected model %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"denied","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "x",
			"object": "chat.completion",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": finish,
				"message":       map[string]any{"role": "assistant", "content": "hola"},
			}},
		})
	}))
}

func testRequest() llm.Request {
	return llm.Request{
		System: "Translate.",
		Prompt: "hello",
		Params: llm.Params{Model: "gpt-test", Temperature: 0.3, MaxOutputTokens: 64},
		JSON:   true,
	}
}

func TestGenerate(t *testing.T) {
	var keys []string
	server := newServer(t, http.StatusOK, "stop", &keys)
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	resp, err := c.Generate(context.Background(), "key-1", testRequest())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text != "hola" || resp.Truncated {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, err := c.Generate(context.Background(), "key-2", testRequest()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "Bearer key-1" || keys[1] != "Bearer key-2" {
		t.Fatalf("unexpected auth headers %v", keys)
	}
}

func TestGenerateTruncated(t *testing.T) {
	var keys []string
	server := newServer(t, http.StatusOK, "length", &keys)
	defer server.Close()

	resp, err := New(Config{BaseURL: server.URL}).Generate(context.Background(), "key", testRequest())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !resp.Truncated {
		t.Fatal("expected truncated response")
	}
}

func TestGenerateRejectedKey(t *testing.T) {
	var keys []string
	server := newServer(t, http.StatusUnauthorized, "", &keys)
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).Generate(context.Background(), "bad", testRequest())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildRequest(t *testing.T) {
	req := buildRequest(testRequest())
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages %+v", req.Messages)
	}
	if req.ResponseFormat == nil || req.MaxTokens != 64 {
		t.Fatalf("unexpected request %+v", req)
	}
	plain := testRequest()
	plain.System = ""
	plain.JSON = false
	req = buildRequest(plain)
	if len(req.Messages) != 1 || req.ResponseFormat != nil {
		t.Fatalf("unexpected request %+v", req)
	}
}
