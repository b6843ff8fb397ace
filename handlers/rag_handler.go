package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/recipe-rag/middleware"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/services"
	"github.com/upb/recipe-rag/services/retrieval"
	"github.com/upb/recipe-rag/utils"
	"go.uber.org/zap"
)

// SearchRequest is the body of POST /search
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  *int   `json:"top_k,omitempty"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	TopK    *int   `json:"top_k,omitempty"`
}

// ChatResponse is the body returned by POST /chat
type ChatResponse struct {
	Answer  string               `json:"answer"`
	Sources []models.QueryResult `json:"sources"`
}

// Retriever finds the documents nearest to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.QueryResult, error)
	Stats(ctx context.Context) (*models.StoreStats, error)
}

// AnswerComposer turns retrieved documents and a question into an answer.
type AnswerComposer interface {
	Configured() bool
	Compose(ctx context.Context, question string, results []models.QueryResult) (string, error)
}

// RAGHandler serves the search, chat and stats endpoints
type RAGHandler struct {
	retriever Retriever
	composer  AnswerComposer
	logger    *zap.Logger
}

// NewRAGHandler creates a new RAGHandler
func NewRAGHandler(retriever Retriever, composer AnswerComposer, logger *zap.Logger) *RAGHandler {
	return &RAGHandler{
		retriever: retriever,
		composer:  composer,
		logger:    logger,
	}
}

// HandleSearch handles POST /search. The response body is a bare array of
// results, closest first.
func (h *RAGHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req SearchRequest
	if !decodeAndValidate(w, r, &req, requestID, h.logger) {
		return
	}

	topK, err := resolveTopK(req.TopK)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	results, err := h.retriever.Retrieve(ctx, req.Query, topK)
	if err != nil {
		h.logger.Warn("search failed", zap.String("request_id", requestID), zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if results == nil {
		results = []models.QueryResult{}
	}
	if err := utils.WriteJSON(w, http.StatusOK, results); err != nil {
		h.logger.Error("failed to write search response", zap.String("request_id", requestID), zap.Error(err))
	}
}

// HandleChat handles POST /chat
func (h *RAGHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req ChatRequest
	if !decodeAndValidate(w, r, &req, requestID, h.logger) {
		return
	}

	topK, err := resolveTopK(req.TopK)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if h.composer == nil || !h.composer.Configured() {
		HandleServiceError(w, services.ErrLLMNotConfigured, h.logger)
		return
	}

	start := time.Now()
	sources, err := h.retriever.Retrieve(ctx, req.Message, topK)
	if err != nil {
		h.logger.Warn("chat retrieval failed", zap.String("request_id", requestID), zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if sources == nil {
		sources = []models.QueryResult{}
	}

	answer, err := h.composer.Compose(ctx, req.Message, sources)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("chat answered",
		zap.String("request_id", requestID),
		zap.Int("sources", len(sources)),
		zap.Duration("duration", time.Since(start)))

	if err := utils.WriteJSON(w, http.StatusOK, ChatResponse{Answer: answer, Sources: sources}); err != nil {
		h.logger.Error("failed to write chat response", zap.String("request_id", requestID), zap.Error(err))
	}
}

// HandleStats handles GET /stats
func (h *RAGHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.retriever.Stats(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, stats)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, requestID string, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), nil)
		return false
	}

	if err := utils.ValidateStruct(dst); err != nil {
		logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

func resolveTopK(topK *int) (int, error) {
	if topK == nil {
		return retrieval.DefaultTopK, nil
	}
	return *topK, retrieval.ValidateTopK(*topK)
}
