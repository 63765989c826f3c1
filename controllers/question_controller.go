package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
)

type StatusReq struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /api/admin/questions/:id/status
func (h *Handler) SetQuestionStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid question id"})
		return
	}
	var req StatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}
	status := questionnaire.Status(req.Status)
	if status != questionnaire.StatusActive && status != questionnaire.StatusInactive {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Status must be active or inactive"})
		return
	}

	ctx := c.Request.Context()
	q, err := h.Store.SetQuestionStatus(ctx, uint(id), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Catalog.Invalidate(ctx, questionnaire.FormID(q.FormID)); err != nil {
		h.log.Warn("catalog invalidate failed", "form_id", q.FormID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"data": q})
}
