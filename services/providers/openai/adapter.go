package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/upb/recipe-rag/services/providers"
	"go.uber.org/zap"
)

const (
	providerName   = "openai"
	defaultTimeout = 60 * time.Second
)

// Config configures an OpenAI-compatible chat endpoint (OpenAI, Ollama,
// vLLM, LM Studio...).
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Adapter implements providers.Provider over go-openai. Calls are bounded by
// Timeout and never retried.
type Adapter struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	temperature float64
	logger      *zap.Logger
}

// NewAdapter creates a chat adapter. BaseURL and Model are required; the API
// key may be empty for local servers.
func NewAdapter(cfg Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("openai: base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{}

	return &Adapter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return providerName
}

// Model returns the configured model.
func (a *Adapter) Model() string {
	return a.model
}

// ChatCompletion sends req and returns the first choice.
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = a.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = a.temperature
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(temperature),
	})
	if err != nil {
		provErr := classify(err)
		a.logger.Warn("chat completion failed",
			zap.String("model", model),
			zap.String("code", provErr.Code),
			zap.Error(err))
		return nil, provErr
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(providerName, providers.CodeFailure, "empty response from model", 0, nil)
	}

	latency := time.Since(start)
	a.logger.Debug("chat completion succeeded",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", latency))

	return &providers.ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Content: resp.Choices[0].Message.Content,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider: providerName,
		Latency:  latency,
	}, nil
}

// Ping lists models to check the endpoint.
func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if _, err := a.client.ListModels(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// classify separates connectivity failures from everything else. HTTP
// transport errors surface from go-openai as *url.Error, which is a net.Error.
func classify(err error) *providers.ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return providers.NewProviderError(providerName, providers.CodeFailure,
			fmt.Sprintf("model endpoint returned status %d", apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return providers.NewProviderError(providerName, providers.CodeFailure,
			fmt.Sprintf("model endpoint returned status %d", reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return providers.NewProviderError(providerName, providers.CodeUnreachable, "model endpoint unreachable", 0, err)
	}

	return providers.NewProviderError(providerName, providers.CodeFailure, "model request failed", 0, err)
}

var _ providers.Provider = (*Adapter)(nil)
