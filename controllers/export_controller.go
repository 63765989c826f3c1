package controllers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/services"
)

type ExportRequest struct {
	// FormID is a form id or "all".
	FormID string `json:"form_id"`
	Format string `json:"format"`
}

// GET /api/admin/forms/:id/export?format=xlsx
// :id may be "all".
func (h *Handler) DownloadExport(c *gin.Context) {
	scope, ok := formScope(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", services.FormatXLSX))

	wb, err := h.Exporter.Export(c.Request.Context(), scope, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+wb.Filename+`"`)
	c.Data(http.StatusOK, wb.ContentType, wb.Data)
}

// POST /api/admin/exports
func (h *Handler) CreateExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}
	scope, ok := formScope(req.FormID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}
	if req.Format == "" {
		req.Format = services.FormatXLSX
	}

	job, err := h.Exporter.Enqueue(c.Request.Context(), scope, strings.ToLower(req.Format))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
	})
}

// GET /api/admin/exports/:job_id
// Streams the file once the job is done, otherwise reports its state.
func (h *Handler) GetExport(c *gin.Context) {
	job, err := h.Exporter.Job(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	if job.Status == models.JobDone && job.FilePath != nil {
		name := filepath.Base(*job.FilePath)
		name = strings.TrimPrefix(name, job.JobID+"_")
		c.FileAttachment(*job.FilePath, name)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
		"error":  job.ErrorMsg,
	})
}
