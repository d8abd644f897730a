package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// AnalysisHandler receives callbacks from the external analysis engine. The
// engine authenticates with a shared token, not a user JWT.
type AnalysisHandler struct {
	analysis  *service.AnalysisService
	documents *service.DocumentService
	token     string
}

// NewAnalysisHandler constructs handler.
func NewAnalysisHandler(analysis *service.AnalysisService, documents *service.DocumentService, token string) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis, documents: documents, token: token}
}

// Authenticate verifies the shared engine token.
func (h *AnalysisHandler) Authenticate(c *gin.Context) {
	provided := c.GetHeader("X-Analysis-Token")
	if h.token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.token)) != 1 {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return
	}
	c.Next()
}

type ingestResultsRequest struct {
	TenantID string                 `json:"tenant_id" binding:"required"`
	CaseID   string                 `json:"case_id" binding:"required"`
	Result   service.AnalysisResult `json:"result"`
}

// IngestResults godoc
// @Summary Engine callback delivering sections, checklists, and drafts
// @Tags Analysis
// @Accept json
// @Produce json
// @Success 204
// @Router /internal/analysis/results [post]
func (h *AnalysisHandler) IngestResults(c *gin.Context) {
	var req ingestResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.analysis.IngestResults(c.Request.Context(), req.TenantID, req.CaseID, req.Result); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type ingestDraftRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	CaseID   string `json:"case_id" binding:"required"`
	DraftID  string `json:"draft_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// IngestDraft godoc
// @Summary Engine callback delivering regenerated draft content
// @Tags Analysis
// @Accept json
// @Produce json
// @Success 204
// @Router /internal/analysis/drafts [post]
func (h *AnalysisHandler) IngestDraft(c *gin.Context) {
	var req ingestDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.analysis.IngestDraft(c.Request.Context(), req.TenantID, req.CaseID, req.DraftID, req.Content); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type documentProcessedRequest struct {
	TenantID      string                  `json:"tenant_id" binding:"required"`
	DocumentID    string                  `json:"document_id" binding:"required"`
	Status        models.ProcessingStatus `json:"status" binding:"required"`
	ExtractedText *string                 `json:"extracted_text"`
	OCRText       *string                 `json:"ocr_text"`
}

// DocumentProcessed godoc
// @Summary Engine callback recording document text extraction
// @Tags Analysis
// @Accept json
// @Produce json
// @Success 204
// @Router /internal/analysis/documents [post]
func (h *AnalysisHandler) DocumentProcessed(c *gin.Context) {
	var req documentProcessedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.documents.RecordProcessing(c.Request.Context(), req.TenantID, req.DocumentID, req.Status, req.ExtractedText, req.OCRText); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
