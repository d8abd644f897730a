package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// DraftHandler exposes draft response endpoints under a case.
type DraftHandler struct {
	drafts *service.DraftService
}

// NewDraftHandler constructs handler.
func NewDraftHandler(drafts *service.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// List godoc
// @Summary List draft responses in section order
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/drafts [get]
func (h *DraftHandler) List(c *gin.Context) {
	drafts, err := h.drafts.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, drafts, nil)
}

// Get godoc
// @Summary Get one draft
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param draftId path string true "Draft id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/drafts/{draftId} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	draft, err := h.drafts.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("draftId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Update godoc
// @Summary Store attorney edits on a draft
// @Tags Drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param draftId path string true "Draft id"
// @Param payload body service.UpdateDraftRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/drafts/{draftId} [patch]
func (h *DraftHandler) Update(c *gin.Context) {
	var req service.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	draft, err := h.drafts.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("draftId"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Approve godoc
// @Summary Approve a draft, freezing its final content
// @Tags Drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param draftId path string true "Draft id"
// @Param payload body service.ApproveDraftRequest false "Optional feedback"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/drafts/{draftId}/approve [post]
func (h *DraftHandler) Approve(c *gin.Context) {
	var req service.ApproveDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	draft, err := h.drafts.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("draftId"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Regenerate godoc
// @Summary Queue a fresh generation for a draft
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param draftId path string true "Draft id"
// @Success 202 {object} response.Envelope
// @Router /cases/{caseId}/drafts/{draftId}/regenerate [post]
func (h *DraftHandler) Regenerate(c *gin.Context) {
	if err := h.drafts.Regenerate(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("draftId"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"status": "queued"})
}
