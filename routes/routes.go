package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/erp-questionnaire/controllers"
	"github.com/vnkhanh/erp-questionnaire/middleware"
	"github.com/vnkhanh/erp-questionnaire/utils"
)

func SetupRoutes(r *gin.Engine, h *controllers.Handler, tokens *utils.TokenIssuer, submitLimiter *middleware.IPRateLimiter) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", h.HealthCheck)
	if h.Files != nil {
		r.GET("/files/*path", h.ServeFile)
	}

	limit := func(c *gin.Context) { c.Next() }
	if submitLimiter != nil {
		limit = middleware.RateLimitByIP(submitLimiter)
	}

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", limit, h.Login)
		}

		forms := api.Group("/forms")
		{
			forms.GET("", h.ListForms)
			forms.GET("/:id/questions", h.GetQuestions)
			forms.POST("/:id/render", h.RenderForm)
			forms.POST("/:id/submissions", limit, h.SubmitResponses)
			forms.POST("/:id/progress", limit, h.SubmitResponses)
		}
		api.GET("/progress", limit, h.SearchProgress)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthJWT(tokens), middleware.RequireAdmin())
		{
			admin.GET("/forms/:id/respondents", h.ListRespondents)
			admin.GET("/forms/:id/export", h.DownloadExport)
			admin.POST("/questions/import", h.ImportQuestions)
			admin.PATCH("/questions/:id/status", h.SetQuestionStatus)
			admin.POST("/exports", h.CreateExport)
			admin.GET("/exports/:job_id", h.GetExport)
		}
	}
}
