package services

import (
	"context"
	"errors"

	"github.com/vnkhanh/erp-questionnaire/cache"
	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/repository"
)

type ProgressStore interface {
	FindOrganizationByEmail(ctx context.Context, email string) (models.Organization, error)
	ResponsesByOrganization(ctx context.Context, orgID, formID uint) ([]models.Response, error)
}

// Saved is a respondent's stored progress.
type Saved struct {
	Organization models.Organization
	Answers      questionnaire.Answers
}

type Progress struct {
	store   ProgressStore
	catalog cache.Catalog
}

func NewProgress(store ProgressStore, catalog cache.Catalog) *Progress {
	return &Progress{store: store, catalog: catalog}
}

// Search loads the saved answers of the respondent with this email. Empty
// stored answers are left out. It returns ErrRespondentNotFound when the
// email is unknown.
func (p *Progress) Search(ctx context.Context, email string, formID questionnaire.FormID) (Saved, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Saved{}, ErrEmailRequired
	}
	org, err := p.store.FindOrganizationByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Saved{}, ErrRespondentNotFound
	}
	if err != nil {
		return Saved{}, &LookupError{Op: "organization", Err: err}
	}

	responses, err := p.store.ResponsesByOrganization(ctx, org.ID, uint(formID))
	if err != nil {
		return Saved{}, &LookupError{Op: "responses", Err: err}
	}
	questions, err := p.catalog.Questions(ctx, formID)
	if err != nil {
		return Saved{}, &LookupError{Op: "questions", Err: err}
	}
	byID := questionnaire.NewCatalog(questions)

	answers := make(questionnaire.Answers, len(responses))
	for _, r := range responses {
		if r.Answer == "" {
			continue
		}
		id := questionnaire.QuestionID(r.QuestionID)
		if q, ok := byID.Question(id); ok {
			answers[id] = questionnaire.DecodeFor(q, r.Answer)
			continue
		}
		answers[id] = questionnaire.DecodeStored(r.Answer)
	}
	return Saved{Organization: org, Answers: answers}, nil
}

// Resume merges the saved answers over current. Answers in current that
// have nothing saved are kept.
func (p *Progress) Resume(ctx context.Context, email string, formID questionnaire.FormID, current questionnaire.Answers) (questionnaire.Answers, error) {
	saved, err := p.Search(ctx, email, formID)
	if err != nil {
		return current, err
	}
	merged := current.Clone()
	merged.Merge(saved.Answers)
	return merged, nil
}
