package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	response := gin.H{
		"status": "ok",
		"db":     "ok",
		"cache":  "ok",
	}
	status := http.StatusOK

	if err := h.Store.Ping(ctx); err != nil {
		response["db"] = "error: cannot connect to DB"
		status = http.StatusServiceUnavailable
	}
	if p, ok := h.Catalog.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			response["cache"] = "error: cannot reach cache"
			status = http.StatusServiceUnavailable
		}
	} else {
		response["cache"] = "memory"
	}

	if status != http.StatusOK {
		response["status"] = "degraded"
	}
	c.JSON(status, response)
}
