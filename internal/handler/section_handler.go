package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// SectionHandler exposes RFE section endpoints under a case.
type SectionHandler struct {
	sections *service.SectionService
}

// NewSectionHandler constructs handler.
func NewSectionHandler(sections *service.SectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// List godoc
// @Summary List case sections in document order
// @Tags Sections
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	sections, err := h.sections.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Get godoc
// @Summary Get one section
// @Tags Sections
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param sectionId path string true "Section id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/sections/{sectionId} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Update godoc
// @Summary Edit section title, summary, or CFR reference
// @Tags Sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param sectionId path string true "Section id"
// @Param payload body service.UpdateSectionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/sections/{sectionId} [patch]
func (h *SectionHandler) Update(c *gin.Context) {
	var req service.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

type reclassifyRequest struct {
	SectionType models.SectionType `json:"section_type" binding:"required"`
}

// Reclassify godoc
// @Summary Override the section classification
// @Tags Sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param sectionId path string true "Section id"
// @Param payload body reclassifyRequest true "New section type"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/sections/{sectionId}/reclassify [post]
func (h *SectionHandler) Reclassify(c *gin.Context) {
	var req reclassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Reclassify(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId"), req.SectionType, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}
