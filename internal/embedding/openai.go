package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultBatchSize = 64

// OpenAIConfig configures an encoder backed by an OpenAI-compatible
// /embeddings endpoint, such as a local server hosting all-MiniLM-L6-v2.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

// OpenAIEncoder calls a remote embedding model through go-openai.
type OpenAIEncoder struct {
	client    *openai.Client
	model     string
	dim       int
	batchSize int
	logger    *zap.Logger
}

// NewOpenAIEncoder builds the encoder. BaseURL, Model and Dimension are required.
func NewOpenAIEncoder(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIEncoder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding: base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding: model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIEncoder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dim:       cfg.Dimension,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}, nil
}

// Model implements Encoder.
func (e *OpenAIEncoder) Model() string {
	return e.model
}

// Dimension implements Encoder.
func (e *OpenAIEncoder) Dimension() int {
	return e.dim
}

// Encode implements Encoder.
func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch implements Encoder, sending at most BatchSize texts per call.
func (e *OpenAIEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding: batch starting at %d: %w", start, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEncoder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	// Servers are not required to return data in input order.
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		if d.Index != i {
			return nil, fmt.Errorf("embedding: response holds index %d at position %d, expected each of 0..%d once", d.Index, i, len(texts)-1)
		}
		if len(d.Embedding) != e.dim {
			return nil, fmt.Errorf("embedding: model %s returned dimension %d, expected %d", e.model, len(d.Embedding), e.dim)
		}
		out[i] = d.Embedding
	}

	e.logger.Debug("texts embedded",
		zap.String("model", e.model),
		zap.Int("count", len(texts)))

	return out, nil
}

var _ Encoder = (*OpenAIEncoder)(nil)
