// Package answer turns retrieved documents and a question into a grounded
// reply from a chat model.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/services"
	"github.com/upb/recipe-rag/services/providers"
	"go.uber.org/zap"
)

// EmptyContext replaces the evidence block when retrieval found nothing.
const EmptyContext = "Nenhum contexto encontrado."

// SystemInstruction constrains the model to the supplied context.
const SystemInstruction = "Voce e um assistente de culinaria. Responda sempre em portugues do Brasil, " +
	"usando somente as informacoes do contexto fornecido. Se o contexto nao for suficiente " +
	"para responder, diga explicitamente que o contexto nao contem a informacao."

// UnreachableHint is attached to unreachable errors as the "hint" detail.
const UnreachableHint = "check LLM_BASE_URL; inside a container a server on the host is reached " +
	"through host.docker.internal, not localhost (set RUNNING_IN_CONTAINER=true to rewrite it)"

// Composer asks the configured chat model to answer from retrieved context.
// A nil provider means no model is configured.
type Composer struct {
	provider providers.Provider
	logger   *zap.Logger
}

// NewComposer creates a composer. provider may be nil.
func NewComposer(provider providers.Provider, logger *zap.Logger) *Composer {
	return &Composer{provider: provider, logger: logger}
}

// Configured reports whether a chat model is available.
func (c *Composer) Configured() bool {
	return c.provider != nil
}

// BuildContext joins results as a bulleted list in retrieval order.
func BuildContext(results []models.QueryResult) string {
	if len(results) == 0 {
		return EmptyContext
	}
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = "- " + r.Content
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt returns the user message carrying context and question.
func BuildPrompt(question string, results []models.QueryResult) string {
	return fmt.Sprintf("Contexto:\n%s\n\nPergunta: %s", BuildContext(results), question)
}

// Compose returns the model's answer. Errors are services.ErrLLMNotConfigured,
// services.ErrLLMUnreachable (with a "hint" detail) or services.ErrLLMFailure.
func (c *Composer) Compose(ctx context.Context, question string, results []models.QueryResult) (string, error) {
	if c.provider == nil {
		return "", services.ErrLLMNotConfigured
	}

	resp, err := c.provider.ChatCompletion(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: SystemInstruction},
			{Role: providers.RoleUser, Content: BuildPrompt(question, results)},
		},
	})
	if err != nil {
		return "", c.mapError(err)
	}

	c.logger.Debug("answer composed",
		zap.String("model", resp.Model),
		zap.Int("sources", len(results)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Content, nil
}

// Ping checks the model endpoint with the same error mapping as Compose.
func (c *Composer) Ping(ctx context.Context) error {
	if c.provider == nil {
		return services.ErrLLMNotConfigured
	}
	if err := c.provider.Ping(ctx); err != nil {
		return c.mapError(err)
	}
	return nil
}

// Model returns the configured model, or "" when none is configured.
func (c *Composer) Model() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Model()
}

func (c *Composer) mapError(err error) error {
	if providers.IsUnreachable(err) {
		c.logger.Warn("LLM endpoint unreachable", zap.Error(err))
		return services.Wrap(services.ErrLLMUnreachable, err).WithDetail("hint", UnreachableHint)
	}
	c.logger.Error("LLM request failed", zap.Error(err))
	return services.Wrap(services.ErrLLMFailure, err)
}
