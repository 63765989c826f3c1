package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/vnkhanh/erp-questionnaire/cache"
	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/repository"
	"github.com/vnkhanh/erp-questionnaire/storage"
)

type SubmitStore interface {
	FindOrganizationByEmail(ctx context.Context, email string) (models.Organization, error)
	SaveOrganization(ctx context.Context, org *models.Organization) error
	UpsertResponses(ctx context.Context, rows []models.Response) error
}

type Respondent struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	JobTitle      string `json:"jobTitle"`
	CompanyName   string `json:"companyName"`
	ContactNumber string `json:"contactNumber"`
}

type Submission struct {
	FormID     questionnaire.FormID
	Respondent Respondent
	Answers    questionnaire.Answers
}

// SubmitResult reports the stored organization and the answers as persisted,
// with uploaded files replaced by their paths.
type SubmitResult struct {
	OrganizationID uint
	Created        bool
	Answers        questionnaire.Answers
}

type Submitter struct {
	store   SubmitStore
	catalog cache.Catalog
	blobs   storage.Blobs
	log     *slog.Logger
}

func NewSubmitter(store SubmitStore, catalog cache.Catalog, blobs storage.Blobs, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{store: store, catalog: catalog, blobs: blobs, log: logger}
}

// Submit upserts the respondent, uploads pending files, then writes one
// response row for every question in scope. Unanswered questions are stored
// as empty strings. Answers to hidden children are kept as they are. A file
// path must already live under the respondent's own folder for that question.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (SubmitResult, error) {
	email := NormalizeEmail(sub.Respondent.Email)
	if email == "" {
		return SubmitResult{}, ErrEmailRequired
	}

	org, created, err := s.upsertOrganization(ctx, email, sub.Respondent)
	if err != nil {
		return SubmitResult{}, err
	}

	questions, err := s.catalog.Questions(ctx, sub.FormID)
	if err != nil {
		return SubmitResult{}, &LookupError{Op: "questions", Err: err}
	}

	for _, q := range questions {
		if fa, ok := sub.Answers[q.ID].(questionnaire.FileAnswer); ok && !ownsFile(org.ID, q.ID, fa.Path) {
			return SubmitResult{}, &questionnaire.AnswerError{QuestionID: q.ID, Reason: "file belongs to another upload"}
		}
	}

	stored := make(questionnaire.Answers, len(questions))
	rows := make([]models.Response, 0, len(questions))
	var uploaded []string
	for _, q := range questions {
		ans := sub.Answers[q.ID]
		if ans == nil {
			ans = questionnaire.TextAnswer("")
		}
		if pf, ok := ans.(questionnaire.PendingFile); ok {
			p, err := s.upload(ctx, org.ID, q.ID, pf)
			if err != nil {
				return SubmitResult{}, err
			}
			uploaded = append(uploaded, p)
			ans = questionnaire.FileAnswer{Path: p}
		}
		stored[q.ID] = ans
		rows = append(rows, models.Response{
			OrganizationID: org.ID,
			QuestionID:     uint(q.ID),
			Answer:         ans.Encode(),
		})
	}

	if err := s.store.UpsertResponses(ctx, rows); err != nil {
		if len(uploaded) > 0 {
			s.log.Warn("responses not saved after upload", slog.Uint64("organization_id", uint64(org.ID)), slog.Any("paths", uploaded))
		}
		return SubmitResult{}, &PersistError{Op: "responses", Err: err}
	}

	s.log.Info("responses saved",
		slog.Uint64("organization_id", uint64(org.ID)),
		slog.Uint64("form_id", uint64(sub.FormID)),
		slog.Int("rows", len(rows)),
		slog.Bool("new_respondent", created))
	return SubmitResult{OrganizationID: org.ID, Created: created, Answers: stored}, nil
}

func (s *Submitter) upsertOrganization(ctx context.Context, email string, r Respondent) (models.Organization, bool, error) {
	org, err := s.store.FindOrganizationByEmail(ctx, email)
	created := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		org = models.Organization{ContactEmail: email}
		created = true
	case err != nil:
		return models.Organization{}, false, &LookupError{Op: "organization", Err: err}
	}

	org.ContactName = strings.TrimSpace(r.Name)
	org.JobTitle = strings.TrimSpace(r.JobTitle)
	org.CompanyName = strings.TrimSpace(r.CompanyName)
	org.ContactNumber = strings.TrimSpace(r.ContactNumber)
	if err := s.store.SaveOrganization(ctx, &org); err != nil {
		return models.Organization{}, false, &PersistError{Op: "organization", Err: err}
	}
	return org, created, nil
}

func (s *Submitter) upload(ctx context.Context, orgID uint, qid questionnaire.QuestionID, pf questionnaire.PendingFile) (string, error) {
	objectPath := UploadPath(orgID, qid, pf.Filename)
	if pf.Open == nil {
		return "", &UploadError{QuestionID: qid, Filename: pf.Filename, Err: errors.New("file has no content")}
	}
	body, err := pf.Open()
	if err != nil {
		return "", &UploadError{QuestionID: qid, Filename: pf.Filename, Err: err}
	}
	defer body.Close()

	contentType := pf.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	stored, err := s.blobs.Upload(ctx, objectPath, body, contentType)
	if err != nil {
		return "", &UploadError{QuestionID: qid, Filename: pf.Filename, Err: err}
	}
	return stored, nil
}

// UploadPath builds files/{organization}/{question}/{filename}.
func UploadPath(orgID uint, qid questionnaire.QuestionID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%s%d/%d/%s", questionnaire.FilePrefix, orgID, qid, name)
}

// ownsFile reports whether p sits under files/{organization}/{question}/.
func ownsFile(orgID uint, qid questionnaire.QuestionID, p string) bool {
	return path.Dir(path.Clean(p)) == path.Dir(UploadPath(orgID, qid, ""))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
