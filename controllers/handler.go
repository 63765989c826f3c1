package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/erp-questionnaire/cache"
	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/repository"
	"github.com/vnkhanh/erp-questionnaire/services"
	"github.com/vnkhanh/erp-questionnaire/utils"
)

// Store is the part of the repository the handlers read directly.
type Store interface {
	Ping(ctx context.Context) error
	AllForms(ctx context.Context) ([]models.Form, error)
	ListRespondents(ctx context.Context, formID uint) ([]models.Organization, error)
	SetQuestionStatus(ctx context.Context, id uint, status questionnaire.Status) (models.Question, error)
}

// FileSource reads a stored object by its storage path.
type FileSource interface {
	Object(path string) ([]byte, string, bool)
}

type Deps struct {
	Store     Store
	Catalog   cache.Catalog
	Submitter *services.Submitter
	Progress  *services.Progress
	Exporter  *services.Exporter
	Importer  *services.Importer
	Tokens    *utils.TokenIssuer
	Admins    utils.Credentials
	// Files serves uploaded objects under /files when blobs are held in memory.
	Files FileSource
	// UploadMaxBytes caps each uploaded file.
	UploadMaxBytes int64
	Logger         *slog.Logger
}

type Handler struct {
	Deps
	log *slog.Logger
}

func New(d Deps) *Handler {
	if d.UploadMaxBytes <= 0 {
		d.UploadMaxBytes = 10 << 20
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Deps: d, log: logger}
}

// fail maps service errors onto HTTP responses. Unexpected failures are
// logged and reported with a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		answerErr *questionnaire.AnswerError
		rowErr    *services.RowError
		uploadErr *services.UploadError
	)
	switch {
	case errors.Is(err, services.ErrRespondentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "No saved progress found for this email"})
	case errors.Is(err, services.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"message": "No data found for the selected form"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	case errors.Is(err, services.ErrExportInProgress):
		c.JSON(http.StatusConflict, gin.H{"message": "An export for this form is already running"})
	case errors.Is(err, services.ErrEmailRequired):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
	case errors.Is(err, services.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.As(err, &answerErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": answerErr.Error(), "question_id": answerErr.QuestionID})
	case errors.As(err, &rowErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": rowErr.Error(), "line": rowErr.Line})
	case errors.As(err, &uploadErr):
		h.log.Error("file upload failed", slog.Uint64("question_id", uint64(uploadErr.QuestionID)), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "File upload failed, please try again"})
	default:
		h.log.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong, please try again"})
	}
}

// formScope reads a form id from raw. "all" and "0" select every form.
func formScope(raw string) (questionnaire.FormID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return questionnaire.AllForms, true
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return questionnaire.FormID(n), true
}

// formParam reads :id and requires a concrete form.
func formParam(c *gin.Context) (questionnaire.FormID, bool) {
	id, ok := formScope(c.Param("id"))
	if !ok || id == questionnaire.AllForms {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) catalog(ctx context.Context, formID questionnaire.FormID) (*questionnaire.Catalog, error) {
	qs, err := h.Catalog.Questions(ctx, formID)
	if err != nil {
		return nil, &services.LookupError{Op: "questions", Err: err}
	}
	if len(qs) == 0 {
		return nil, repository.ErrNotFound
	}
	return questionnaire.NewCatalog(qs), nil
}

func answersJSON(a questionnaire.Answers) map[string]any {
	out := make(map[string]any, len(a))
	for id, v := range a {
		out[strconv.FormatUint(uint64(id), 10)] = questionnaire.JSONValue(v)
	}
	return out
}
