package providers

import (
	"context"
	"errors"
	"time"
)

// Provider is a chat-completion backend.
type Provider interface {
	// Name returns the provider name (e.g., "openai")
	Name() string

	// Model returns the default model used when a request names none.
	Model() string

	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Ping checks that the endpoint answers. It returns a *ProviderError.
	Ping(ctx context.Context) error
}

// Roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest represents a unified chat completion request
type ChatRequest struct {
	// Model identifier; empty selects the provider default
	Model string `json:"model"`

	// Messages in the conversation
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ChatResponse represents a unified chat completion response
type ChatResponse struct {
	ID       string        `json:"id"`
	Model    string        `json:"model"`
	Content  string        `json:"content"`
	Usage    Usage         `json:"usage"`
	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error codes
const (
	// CodeUnreachable means the endpoint could not be reached in time:
	// refused connection, DNS failure or timeout.
	CodeUnreachable = "UNREACHABLE"
	// CodeFailure covers everything else: HTTP error statuses, bad
	// credentials, malformed or empty responses.
	CodeFailure = "FAILURE"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is CodeUnreachable or CodeFailure
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// IsUnreachable reports whether err is a provider connectivity failure.
func IsUnreachable(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr) && provErr.Code == CodeUnreachable
}
