package repository

import (
	"context"
	"fmt"

	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/paging"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"gorm.io/gorm"
)

func (s *Store) ListForms(ctx context.Context, offset, limit int) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&forms).Error
	return forms, err
}

// AllForms drains ListForms page by page.
func (s *Store) AllForms(ctx context.Context) ([]models.Form, error) {
	return paging.FetchAll(ctx, s.paging, s.ListForms)
}

func (s *Store) GetForm(ctx context.Context, id uint) (models.Form, error) {
	var f models.Form
	if err := s.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return models.Form{}, notFound(err)
	}
	return f, nil
}

// EnsureForm creates the form row if it does not exist. An existing form
// keeps its name.
func (s *Store) EnsureForm(ctx context.Context, id uint, name string) error {
	if id == 0 {
		return fmt.Errorf("form id is required")
	}
	if name == "" {
		name = fmt.Sprintf("Form %d", id)
	}
	var f models.Form
	return s.db.WithContext(ctx).
		Where(models.Form{ID: id}).
		Attrs(models.Form{Name: name}).
		FirstOrCreate(&f).Error
}

// ListRespondents returns the organizations with at least one response to
// the form, each once, by id. formID 0 covers every form.
func (s *Store) ListRespondents(ctx context.Context, formID uint) ([]models.Organization, error) {
	sub := s.db.WithContext(ctx).Table("responses AS r").Select("r.organization_id")
	if formID != uint(questionnaire.AllForms) {
		sub = sub.Joins("JOIN questions q ON q.id = r.question_id").Where("q.form_id = ?", formID)
	}
	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("id ASC").
		Find(&orgs).Error
	return orgs, err
}

func (s *Store) transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, paging: s.paging})
	})
}
