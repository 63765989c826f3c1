package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// POST /api/admin/questions/import
// Multipart body with the question CSV in "file".
func (h *Handler) ImportQuestions(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file received"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	res, err := h.Importer.Import(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("questions imported", "file", fileHeader.Filename, "inserted", res.Inserted)
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Import successful",
		"inserted": res.Inserted,
		"forms":    res.Forms,
	})
}

// GET /files/*path
// Serves objects from the in-memory blob store; its public URLs point here.
func (h *Handler) ServeFile(c *gin.Context) {
	data, contentType, ok := h.Files.Object(strings.TrimPrefix(c.Param("path"), "/"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}
