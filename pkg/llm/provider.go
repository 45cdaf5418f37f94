// Package llm provides a minimal completion interface over hosted LLM APIs,
// used to answer shopper questions about an extracted product.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmylchreest/linkmagico/internal/logger"
)

// Shopper replies are a few sentences; the token budget stays small.
const (
	defaultMaxTokens   = 300
	defaultTemperature = 0.7
)

// ErrMissingAPIKey is returned when a provider is created without a key.
var ErrMissingAPIKey = errors.New("API key required")

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Request represents a completion request to the LLM. Zero MaxTokens uses
// a small default.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

func (r Request) maxTokens() int64 {
	if r.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return int64(r.MaxTokens)
}

// split separates system instructions from the conversation turns.
func (r Request) split() (system []string, turns []Message) {
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response represents the result of an LLM execution.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string // actual model used
	Duration     time.Duration
}

// Provider is the interface all LLM backends implement.
type Provider interface {
	// Execute sends a completion request and returns the response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string // custom or compatible endpoint
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxRetries: 2,
		Timeout:    60 * time.Second,
	}
}

// Complete sends a single system + user prompt and returns the trimmed
// reply text.
func Complete(ctx context.Context, p Provider, system, prompt string, maxTokens int) (string, error) {
	req := Request{MaxTokens: maxTokens, Temperature: defaultTemperature}
	if system != "" {
		req.Messages = append(req.Messages, Message{Role: RoleSystem, Content: system})
	}
	req.Messages = append(req.Messages, Message{Role: RoleUser, Content: prompt})

	resp, err := p.Execute(ctx, req)
	if err != nil {
		return "", err
	}

	logger.Debug("llm completion",
		"provider", p.Name(),
		"model", resp.Model,
		"finish_reason", resp.FinishReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", resp.Duration)

	return strings.TrimSpace(resp.Content), nil
}
