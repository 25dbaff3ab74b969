// Package llm wraps an OpenAI-compatible chat completions endpoint behind a
// minimal Client interface, plus the prompt builders the agent handlers use.
package llm

import (
	"context"
	"time"
)

// Client generates a single chat completion from a system prompt and a user
// prompt. Implementations must be safe for concurrent use.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// ClientConfig holds the connection settings for a chat endpoint.
type ClientConfig struct {
	// BaseURL is the server root, e.g. "http://localhost:11434/v1".
	BaseURL string
	// Model is passed through on every request.
	Model string
	// APIKey, when set, is sent as a Bearer token.
	APIKey string
	// Temperature for sampling. Zero means the server default.
	Temperature float64
	// MaxTokens caps the completion length. Zero means no cap.
	MaxTokens int
	// Timeout bounds each HTTP call.
	Timeout time.Duration
}
