package repository

import (
	"context"

	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/paging"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
)

// QuestionFilter narrows ListQuestions. A zero FormID covers every form.
type QuestionFilter struct {
	FormID     uint
	ActiveOnly bool
}

func (s *Store) ListQuestions(ctx context.Context, f QuestionFilter, offset, limit int) ([]models.Question, error) {
	q := s.db.WithContext(ctx).Model(&models.Question{})
	if f.FormID != 0 {
		q = q.Where("form_id = ?", f.FormID)
	}
	if f.ActiveOnly {
		q = q.Where("status = ?", string(questionnaire.StatusActive))
	}
	var out []models.Question
	err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// LoadQuestions returns the active questions of a form as domain values,
// reading every page.
func (s *Store) LoadQuestions(ctx context.Context, formID questionnaire.FormID) ([]questionnaire.Question, error) {
	filter := QuestionFilter{FormID: uint(formID), ActiveOnly: true}
	rows, err := paging.FetchAll(ctx, s.paging, func(ctx context.Context, offset, limit int) ([]models.Question, error) {
		return s.ListQuestions(ctx, filter, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	return toDomain(rows)
}

func toDomain(rows []models.Question) ([]questionnaire.Question, error) {
	out := make([]questionnaire.Question, 0, len(rows))
	for _, r := range rows {
		q, err := r.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// InsertQuestions creates the forms the questions reference and inserts
// the questions, all in one transaction.
func (s *Store) InsertQuestions(ctx context.Context, forms []models.Form, questions []models.Question) error {
	return s.transaction(ctx, func(tx *Store) error {
		for _, f := range forms {
			if err := tx.EnsureForm(ctx, f.ID, f.Name); err != nil {
				return err
			}
		}
		if len(questions) == 0 {
			return nil
		}
		return tx.db.WithContext(ctx).CreateInBatches(&questions, 500).Error
	})
}

func (s *Store) SetQuestionStatus(ctx context.Context, id uint, status questionnaire.Status) (models.Question, error) {
	var q models.Question
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return models.Question{}, notFound(err)
	}
	q.Status = string(status)
	if err := s.db.WithContext(ctx).Model(&q).Update("status", q.Status).Error; err != nil {
		return models.Question{}, err
	}
	return q, nil
}
