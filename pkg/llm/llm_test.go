package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewProvider_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	for _, name := range []string{"anthropic", "openai"} {
		t.Run(name, func(t *testing.T) {
			_, err := NewProvider(name, ProviderConfig{})
			if !errors.Is(err, ErrMissingAPIKey) {
				t.Errorf("NewProvider() error = %v, want ErrMissingAPIKey", err)
			}
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider("carrier-pigeon", ProviderConfig{APIKey: "x"}); err == nil {
		t.Error("NewProvider() expected error for unknown provider")
	}
}

func TestNewProvider_KeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	p, err := NewProvider("openai", ProviderConfig{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Name() != "openai" || p.Model() != "gpt-4o-mini" {
		t.Errorf("provider = %s/%s", p.Name(), p.Model())
	}
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name         string
		anthropic    string
		openai       string
		wantProvider string
	}{
		{"none", "", "", ""},
		{"openai only", "", "sk-o", "openai"},
		{"anthropic preferred", "sk-a", "sk-o", "anthropic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", tt.anthropic)
			t.Setenv("OPENAI_API_KEY", tt.openai)

			got, key := DetectProvider()
			if got != tt.wantProvider {
				t.Errorf("DetectProvider() = %q, want %q", got, tt.wantProvider)
			}
			if got != "" && key == "" {
				t.Errorf("DetectProvider() = %q with empty key", got)
			}
			if got == "" && key != "" {
				t.Errorf("DetectProvider() key = %q, want empty", key)
			}
		})
	}
}

func TestAvailableProviders(t *testing.T) {
	got := AvailableProviders()
	if len(got) < 2 || got[0] != "anthropic" || got[1] != "openai" {
		t.Errorf("AvailableProviders() = %v", got)
	}
}

func TestOpenAIProvider_Execute(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini-2024-07-18",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  O frete é grátis.  "}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	got, err := Complete(context.Background(), p, "Você é um vendedor.", "Tem frete?", 200)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "O frete é grátis." {
		t.Errorf("Complete() = %q", got)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
}

func TestAnthropicProvider_Execute(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-ant" {
			t.Errorf("api key header = %q", r.Header.Get("X-Api-Key"))
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "Garantia de 1 ano."}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 20, "output_tokens": 6}
		}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(ProviderConfig{APIKey: "sk-ant", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	resp, err := p.Execute(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "Responda em português."},
			{Role: RoleUser, Content: "Tem garantia?"},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Content != "Garantia de 1 ano." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 20 || resp.Usage.OutputTokens != 6 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.FinishReason != "end_turn" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}

	if _, ok := body["system"]; !ok {
		t.Error("system prompt not sent")
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 1 {
		t.Errorf("sent %d messages, want 1", len(msgs))
	}
}

func TestProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "sk-bad", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	if _, err := Complete(context.Background(), p, "", "oi", 10); err == nil {
		t.Error("Complete() expected error on 401")
	}
}
