package handlers

import (
	"context"
	"net/http"

	"github.com/upb/recipe-rag/middleware"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/services/ingestion"
	"github.com/upb/recipe-rag/utils"
	"go.uber.org/zap"
)

// IngestRequest is the body of POST /admin/documents. A batch holds at most
// 10000 documents.
type IngestRequest struct {
	Documents []string `json:"documents" validate:"required,min=1,max=10000,dive,required"`
}

// ReindexResponse is the body returned by POST /admin/reindex
type ReindexResponse struct {
	Reindexed bool               `json:"reindexed"`
	Index     *models.IndexState `json:"index,omitempty"`
}

// Ingester stores document batches and maintains the vector index.
type Ingester interface {
	Ingest(ctx context.Context, texts []string) (*ingestion.Report, error)
	MaintainIndex(ctx context.Context, force bool) (*models.IndexState, bool, error)
}

// AdminHandler serves the authenticated write endpoints
type AdminHandler struct {
	ingester Ingester
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(ingester Ingester, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		ingester: ingester,
		logger:   logger,
	}
}

// HandleIngest handles POST /admin/documents
func (h *AdminHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req IngestRequest
	if !decodeAndValidate(w, r, &req, requestID, h.logger) {
		return
	}

	report, err := h.ingester.Ingest(ctx, req.Documents)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	subject := ""
	if claims := middleware.GetClaimsFromContext(ctx); claims != nil {
		subject = claims.Subject
	}
	h.logger.Info("documents ingested via API",
		zap.String("request_id", requestID),
		zap.String("sub", subject),
		zap.String("batch_id", report.BatchID.String()),
		zap.Int("documents", report.Documents))

	_ = utils.WriteCreated(w, report)
}

// HandleReindex handles POST /admin/reindex
func (h *AdminHandler) HandleReindex(w http.ResponseWriter, r *http.Request) {
	state, reindexed, err := h.ingester.MaintainIndex(r.Context(), true)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, ReindexResponse{Reindexed: reindexed, Index: state})
}
