package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/services"
)

type SubmitReq struct {
	services.Respondent
	Answers map[string]json.RawMessage `json:"answers"`
}

// POST /api/forms/:id/submissions
// POST /api/forms/:id/progress
// Accepts JSON, or multipart with the JSON in "data" and one "file_{questionID}"
// part per uploaded file.
func (h *Handler) SubmitResponses(c *gin.Context) {
	formID, ok := formParam(c)
	if !ok {
		return
	}

	var req SubmitReq
	multipartReq := strings.Contains(c.GetHeader("Content-Type"), "multipart/form-data")
	if multipartReq {
		data := c.PostForm("data")
		if data == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing form data"})
			return
		}
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON in form data"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}

	ctx := c.Request.Context()
	cat, err := h.catalog(ctx, formID)
	if err != nil {
		h.fail(c, err)
		return
	}
	answers, err := questionnaire.ParseAnswers(cat, req.Answers)
	if err != nil {
		h.fail(c, err)
		return
	}
	if multipartReq {
		if err := h.attachFiles(c, cat, answers); err != nil {
			h.fail(c, err)
			return
		}
	}

	res, err := h.Submitter.Submit(ctx, services.Submission{
		FormID:     formID,
		Respondent: req.Respondent,
		Answers:    answers,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"message":         "Responses saved",
		"organization_id": res.OrganizationID,
		"answers":         answersJSON(res.Answers),
	})
}

// attachFiles turns file_{id} parts into pending uploads.
func (h *Handler) attachFiles(c *gin.Context, cat *questionnaire.Catalog, answers questionnaire.Answers) error {
	form, err := c.MultipartForm()
	if err != nil {
		return &questionnaire.AnswerError{Reason: "invalid multipart body"}
	}
	for key, headers := range form.File {
		raw, found := strings.CutPrefix(key, "file_")
		if !found || len(headers) == 0 {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &questionnaire.AnswerError{Reason: fmt.Sprintf("invalid file field %q", key)}
		}
		id := questionnaire.QuestionID(n)
		q, ok := cat.Question(id)
		if !ok {
			return &questionnaire.AnswerError{QuestionID: id, Reason: "unknown question"}
		}
		if q.Type != questionnaire.TypeFile {
			return &questionnaire.AnswerError{QuestionID: id, Reason: "question does not accept files"}
		}
		pf, err := h.pendingFile(headers[0])
		if err != nil {
			return &questionnaire.AnswerError{QuestionID: id, Reason: err.Error()}
		}
		answers[id] = pf
	}
	return nil
}

func (h *Handler) pendingFile(fh *multipart.FileHeader) (questionnaire.PendingFile, error) {
	if fh.Size > h.UploadMaxBytes {
		return questionnaire.PendingFile{}, fmt.Errorf("file exceeds %d bytes", h.UploadMaxBytes)
	}
	contentType, err := sniff(fh)
	if err != nil {
		return questionnaire.PendingFile{}, err
	}
	return questionnaire.PendingFile{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

// sniff reads the first 512 bytes to detect the content type.
func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" && n == 0 {
		return ct, nil
	}
	return http.DetectContentType(buf[:n]), nil
}

// GET /api/progress?email=&form_id=
func (h *Handler) SearchProgress(c *gin.Context) {
	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}
	formID, ok := formScope(c.Query("form_id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}

	saved, err := h.Progress.Search(c.Request.Context(), email, formID)
	if err != nil {
		h.fail(c, err)
		return
	}
	org := saved.Organization
	c.JSON(http.StatusOK, gin.H{
		"respondent": services.Respondent{
			Name:          org.ContactName,
			Email:         org.ContactEmail,
			JobTitle:      org.JobTitle,
			CompanyName:   org.CompanyName,
			ContactNumber: org.ContactNumber,
		},
		"answers": answersJSON(saved.Answers),
	})
}
