package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// ExhibitHandler exposes exhibit endpoints under a case.
type ExhibitHandler struct {
	exhibits *service.ExhibitService
}

// NewExhibitHandler constructs handler.
func NewExhibitHandler(exhibits *service.ExhibitService) *ExhibitHandler {
	return &ExhibitHandler{exhibits: exhibits}
}

// List godoc
// @Summary List case exhibits in packet order
// @Tags Exhibits
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/exhibits [get]
func (h *ExhibitHandler) List(c *gin.Context) {
	exhibits, err := h.exhibits.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exhibits, nil)
}

// Get godoc
// @Summary Get one exhibit
// @Tags Exhibits
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param exhibitId path string true "Exhibit id"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/exhibits/{exhibitId} [get]
func (h *ExhibitHandler) Get(c *gin.Context) {
	exhibit, err := h.exhibits.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("exhibitId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exhibit, nil)
}

// Create godoc
// @Summary Add an exhibit
// @Tags Exhibits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param payload body service.CreateExhibitRequest true "Exhibit payload"
// @Success 201 {object} response.Envelope
// @Router /cases/{caseId}/exhibits [post]
func (h *ExhibitHandler) Create(c *gin.Context) {
	var req service.CreateExhibitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exhibit, err := h.exhibits.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exhibit)
}

// Update godoc
// @Summary Edit an exhibit
// @Tags Exhibits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param exhibitId path string true "Exhibit id"
// @Param payload body service.UpdateExhibitRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /cases/{caseId}/exhibits/{exhibitId} [patch]
func (h *ExhibitHandler) Update(c *gin.Context) {
	var req service.UpdateExhibitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exhibit, err := h.exhibits.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("exhibitId"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exhibit, nil)
}

// Delete godoc
// @Summary Remove an exhibit
// @Tags Exhibits
// @Security BearerAuth
// @Param caseId path string true "Case id"
// @Param exhibitId path string true "Exhibit id"
// @Success 204
// @Router /cases/{caseId}/exhibits/{exhibitId} [delete]
func (h *ExhibitHandler) Delete(c *gin.Context) {
	if err := h.exhibits.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("exhibitId"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
