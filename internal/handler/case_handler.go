package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// CaseHandler exposes case CRUD and lifecycle endpoints.
type CaseHandler struct {
	cases *service.CaseService
	audit *service.AuditQueryService
}

// NewCaseHandler constructs handler.
func NewCaseHandler(cases *service.CaseService, audit *service.AuditQueryService) *CaseHandler {
	return &CaseHandler{cases: cases, audit: audit}
}

// List godoc
// @Summary List cases
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param visa_type query string false "Filter by visa type"
// @Param assigned_to query string false "Filter by assigned attorney"
// @Param beneficiary_name query string false "Exact beneficiary name match"
// @Param search query string false "Case number or petitioner search"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	var req service.ListCasesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	cases, pagination, err := h.cases.List(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, pagination)
}

// Create godoc
// @Summary Create a case
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req service.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.cases.Create(c.Request.Context(), claimsFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Get one case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	result, err := h.cases.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Update case intake fields
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Param payload body service.UpdateCaseRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [patch]
func (h *CaseHandler) Update(c *gin.Context) {
	var req service.UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.cases.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete a case
// @Tags Cases
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 204
// @Router /cases/{id} [delete]
func (h *CaseHandler) Delete(c *gin.Context) {
	if err := h.cases.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StartAnalysis godoc
// @Summary Start RFE analysis
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 202 {object} response.Envelope
// @Router /cases/{id}/start-analysis [post]
func (h *CaseHandler) StartAnalysis(c *gin.Context) {
	updated, err := h.cases.StartAnalysis(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, updated)
}

// CompleteAnalysis godoc
// @Summary Advance an analyzing case to review
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/complete-analysis [post]
func (h *CaseHandler) CompleteAnalysis(c *gin.Context) {
	updated, err := h.cases.CompleteAnalysis(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// MarkReviewed godoc
// @Summary Record attorney review sign-off
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/mark-reviewed [post]
func (h *CaseHandler) MarkReviewed(c *gin.Context) {
	updated, err := h.cases.MarkReviewed(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// MarkResponded godoc
// @Summary Record that the response packet was filed
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/mark-responded [post]
func (h *CaseHandler) MarkResponded(c *gin.Context) {
	updated, err := h.cases.MarkResponded(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Archive godoc
// @Summary Archive a case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/archive [post]
func (h *CaseHandler) Archive(c *gin.Context) {
	updated, err := h.cases.Archive(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Reopen godoc
// @Summary Reopen an archived case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/reopen [post]
func (h *CaseHandler) Reopen(c *gin.Context) {
	updated, err := h.cases.Reopen(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

type assignAttorneyRequest struct {
	AttorneyID string `json:"attorney_id" binding:"required"`
}

// AssignAttorney godoc
// @Summary Assign the responsible attorney
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Param payload body assignAttorneyRequest true "Attorney"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/assign-attorney [post]
func (h *CaseHandler) AssignAttorney(c *gin.Context) {
	var req assignAttorneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.cases.AssignAttorney(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.AttorneyID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// AuditTrail godoc
// @Summary List audit entries for a case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/audit [get]
func (h *CaseHandler) AuditTrail(c *gin.Context) {
	// Visibility piggybacks on the case load so cross-tenant ids 404.
	if _, err := h.cases.Get(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.audit.ListForEntity(c.Request.Context(), claimsFromContext(c), models.EntityCase, c.Param("id"), 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
