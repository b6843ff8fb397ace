package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/recipe-rag/services"
	"github.com/upb/recipe-rag/utils"
	"go.uber.org/zap"
)

// LLM health states reported by GET /health/llm.
const (
	LLMStatusOK            = "ok"
	LLMStatusNotConfigured = "not_configured"
	LLMStatusUnreachable   = "unreachable"
	LLMStatusError         = "error"
)

// HealthChecker is implemented by the vector store backends.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// LLMPinger checks the generative model endpoint.
type LLMPinger interface {
	Configured() bool
	Model() string
	Ping(ctx context.Context) error
}

// HealthResponse represents the readiness check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LLMHealthResponse represents the LLM health check response
type LLMHealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
	Detail string `json:"detail,omitempty"`
	Hint   string `json:"hint,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store  HealthChecker
	llm    LLMPinger
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store HealthChecker, llm LLMPinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		llm:    llm,
		logger: logger,
	}
}

// HandleHealth handles GET /health
// Always returns 200 while the process is serving.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadiness handles GET /health/ready
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	switch {
	case h.store == nil:
		checks["database"] = "not_initialized"
		allHealthy = false
	default:
		if err := h.store.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.llm != nil && h.llm.Configured() {
		checks["llm"] = "configured"
	} else {
		checks["llm"] = LLMStatusNotConfigured
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// HandleLLM handles GET /health/llm. A missing endpoint is not a failure of
// this service, so it reports 200; an unreachable endpoint reports 503.
func (h *HealthHandler) HandleLLM(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil || !h.llm.Configured() {
		_ = utils.WriteJSON(w, http.StatusOK, LLMHealthResponse{Status: LLMStatusNotConfigured})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp := LLMHealthResponse{Status: LLMStatusOK, Model: h.llm.Model()}
	httpStatus := http.StatusOK

	if err := h.llm.Ping(ctx); err != nil {
		resp.Detail = err.Error()
		httpStatus = http.StatusServiceUnavailable
		if services.IsExternalError(err) {
			resp.Status = LLMStatusUnreachable
			if hint, ok := services.GetErrorDetails(err)["hint"].(string); ok {
				resp.Hint = hint
			}
		} else {
			resp.Status = LLMStatusError
		}
		h.logger.Warn("LLM health check failed", zap.String("status", resp.Status), zap.Error(err))
	}

	if err := utils.WriteJSON(w, httpStatus, resp); err != nil {
		h.logger.Error("failed to write LLM health response", zap.Error(err))
	}
}
