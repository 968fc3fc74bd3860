package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{APIKey: "key", BaseURL: srv.URL + "/v1beta/openai/", HTTPClient: srv.Client()})
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/openai/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != DefaultModel || len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "# Soup"}}},
		})
	})

	got, err := c.Generate(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "# Soup" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGenerate_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	if _, err := c.Generate(context.Background(), "s", "p"); !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("Generate() error = %v, want ErrEmptyCompletion", err)
	}
}

func TestGenerate_ClientErrorsDoNotTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad", "type": "invalid_request_error"}})
	})

	for i := 0; i < 15; i++ {
		if _, err := c.Generate(context.Background(), "s", "p"); err == nil {
			t.Fatal("Generate() error = nil")
		}
	}
	if c.cb.IsOpen() {
		t.Error("breaker opened on 400 responses")
	}
}
