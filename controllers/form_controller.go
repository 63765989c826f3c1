package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
)

// GET /api/forms
func (h *Handler) ListForms(c *gin.Context) {
	forms, err := h.Store.AllForms(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": forms})
}

// GET /api/forms/:id/questions
func (h *Handler) GetQuestions(c *gin.Context) {
	formID, ok := formParam(c)
	if !ok {
		return
	}
	cat, err := h.catalog(c.Request.Context(), formID)
	if err != nil {
		h.fail(c, err)
		return
	}
	controls := map[questionnaire.QuestionType]questionnaire.Control{}
	for _, q := range cat.Questions() {
		if ctrl, ok := questionnaire.ControlFor(q.Type); ok {
			controls[q.Type] = ctrl
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": cat.Questions(), "controls": controls})
}

type RenderReq struct {
	Answers map[string]json.RawMessage `json:"answers"`
}

// POST /api/forms/:id/render
// Returns the visible field tree for the posted answers.
func (h *Handler) RenderForm(c *gin.Context) {
	formID, ok := formParam(c)
	if !ok {
		return
	}
	var req RenderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}
	cat, err := h.catalog(c.Request.Context(), formID)
	if err != nil {
		h.fail(c, err)
		return
	}
	answers, err := questionnaire.ParseAnswers(cat, req.Answers)
	if err != nil {
		h.fail(c, err)
		return
	}
	rendered := questionnaire.Render(cat, answers)
	c.JSON(http.StatusOK, gin.H{"data": rendered, "visible": rendered.VisibleIDs()})
}

// GET /api/admin/forms/:id/respondents
// :id may be "all".
func (h *Handler) ListRespondents(c *gin.Context) {
	scope, ok := formScope(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}
	orgs, err := h.Store.ListRespondents(c.Request.Context(), uint(scope))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orgs, "total": len(orgs)})
}
