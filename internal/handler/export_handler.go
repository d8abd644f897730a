package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/service"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/response"
)

// ExportHandler exposes case packet export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Enqueue godoc
// @Summary Queue a case packet export
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 202 {object} response.Envelope
// @Router /cases/{id}/export [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	job, err := h.exports.Enqueue(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ListJobs godoc
// @Summary List export jobs for a case
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case id"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/exports [get]
func (h *ExportHandler) ListJobs(c *gin.Context) {
	jobs, err := h.exports.ListJobs(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// GetJob godoc
// @Summary Get one export job
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param jobId path string true "Job id"
// @Success 200 {object} response.Envelope
// @Router /exports/{jobId} [get]
func (h *ExportHandler) GetJob(c *gin.Context) {
	job, err := h.exports.GetJob(c.Request.Context(), claimsFromContext(c), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished packet via its signed token
// @Tags Exports
// @Produce application/pdf
// @Security BearerAuth
// @Param token query string true "Signed download token"
// @Success 200
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "token is required"))
		return
	}
	file, name, err := h.exports.OpenArtifact(c.Request.Context(), claimsFromContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/pdf")
	c.File(file.Name())
}
