package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// DocumentHandler exposes RFE document endpoints under a case.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs handler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// List godoc
// @Summary List case documents
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	documents, err := h.documents.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, documents, nil)
}

// Get godoc
// @Summary Get one document
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param documentId path string true "Document id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/documents/{documentId} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	document, err := h.documents.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("documentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, document, nil)
}

// Create godoc
// @Summary Register an uploaded RFE document
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param payload body service.CreateDocumentRequest true "Document metadata"
// @Success 201 {object} response.Envelope
// @Router /cases/{caseId}/documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req service.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	document, err := h.documents.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, document)
}
