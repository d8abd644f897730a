package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// ChecklistHandler exposes evidence checklist endpoints under a case.
type ChecklistHandler struct {
	checklist *service.ChecklistService
}

// NewChecklistHandler constructs handler.
func NewChecklistHandler(checklist *service.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{checklist: checklist}
}

// List godoc
// @Summary List the case evidence checklist
// @Tags Checklist
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/checklist [get]
func (h *ChecklistHandler) List(c *gin.Context) {
	items, err := h.checklist.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Update godoc
// @Summary Edit one checklist item
// @Tags Checklist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param itemId path string true "Item id"
// @Param payload body service.UpdateChecklistItemRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/checklist/{itemId} [patch]
func (h *ChecklistHandler) Update(c *gin.Context) {
	var req service.UpdateChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.checklist.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("itemId"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// ToggleCollected godoc
// @Summary Flip the collected flag on one checklist item
// @Tags Checklist
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param itemId path string true "Item id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/checklist/{itemId}/toggle [post]
func (h *ChecklistHandler) ToggleCollected(c *gin.Context) {
	item, err := h.checklist.ToggleCollected(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("itemId"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
