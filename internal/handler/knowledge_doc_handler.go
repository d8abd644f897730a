package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// KnowledgeDocHandler exposes knowledge base endpoints.
type KnowledgeDocHandler struct {
	docs *service.KnowledgeDocService
}

// NewKnowledgeDocHandler constructs handler.
func NewKnowledgeDocHandler(docs *service.KnowledgeDocService) *KnowledgeDocHandler {
	return &KnowledgeDocHandler{docs: docs}
}

// List godoc
// @Summary List knowledge docs
// @Tags Knowledge
// @Produce json
// @Security BearerAuth
// @Param doc_type query string false "Filter by doc type"
// @Param visa_type query string false "Filter by visa type"
// @Param rfe_category query string false "Filter by RFE category"
// @Param active_only query bool false "Only active docs"
// @Success 200 {object} response.Envelope
// @Router /knowledge-docs [get]
func (h *KnowledgeDocHandler) List(c *gin.Context) {
	var req service.ListKnowledgeDocsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	docs, total, err := h.docs.List(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	response.JSON(c, http.StatusOK, docs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total})
}

// Get godoc
// @Summary Get one knowledge doc
// @Tags Knowledge
// @Produce json
// @Security BearerAuth
// @Param id path string true "Doc id"
// @Success 200 {object} response.Envelope
// @Router /knowledge-docs/{id} [get]
func (h *KnowledgeDocHandler) Get(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Create godoc
// @Summary Add a knowledge doc
// @Tags Knowledge
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateKnowledgeDocRequest true "Doc payload"
// @Success 201 {object} response.Envelope
// @Router /knowledge-docs [post]
func (h *KnowledgeDocHandler) Create(c *gin.Context) {
	var req service.CreateKnowledgeDocRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, err := h.docs.Create(c.Request.Context(), claimsFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Update godoc
// @Summary Edit a knowledge doc
// @Tags Knowledge
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Doc id"
// @Param payload body service.UpdateKnowledgeDocRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /knowledge-docs/{id} [patch]
func (h *KnowledgeDocHandler) Update(c *gin.Context) {
	var req service.UpdateKnowledgeDocRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, err := h.docs.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Remove a knowledge doc
// @Tags Knowledge
// @Security BearerAuth
// @Param id path string true "Doc id"
// @Success 204
// @Router /knowledge-docs/{id} [delete]
func (h *KnowledgeDocHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
