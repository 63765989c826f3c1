package repository

import (
	"context"
	"strings"

	"github.com/vnkhanh/erp-questionnaire/models"
	"gorm.io/gorm/clause"
)

func (s *Store) FindOrganizationByEmail(ctx context.Context, email string) (models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).
		Where("LOWER(contact_email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&org).Error
	if err != nil {
		return models.Organization{}, notFound(err)
	}
	return org, nil
}

// SaveOrganization inserts a new organization or updates the non-empty
// contact fields of an existing one.
func (s *Store) SaveOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == 0 {
		return s.db.WithContext(ctx).Create(org).Error
	}
	return s.db.WithContext(ctx).Model(&models.Organization{ID: org.ID}).Updates(models.Organization{
		ContactName:   org.ContactName,
		JobTitle:      org.JobTitle,
		CompanyName:   org.CompanyName,
		ContactNumber: org.ContactNumber,
	}).Error
}

// UpsertResponses writes every row in one statement, replacing the answer
// of any existing (organization_id, question_id) pair.
func (s *Store) UpsertResponses(ctx context.Context, rows []models.Response) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
		}).
		Create(&rows).Error
}

// ResponsesByOrganization returns one organization's answers, limited to a
// form unless formID is 0.
func (s *Store) ResponsesByOrganization(ctx context.Context, orgID, formID uint) ([]models.Response, error) {
	q := s.db.WithContext(ctx).Model(&models.Response{}).Where("responses.organization_id = ?", orgID)
	if formID != 0 {
		q = q.Joins("JOIN questions q ON q.id = responses.question_id").Where("q.form_id = ?", formID)
	}
	var out []models.Response
	err := q.Order("responses.question_id ASC").Find(&out).Error
	return out, err
}

// ResponseRow is a response joined with its question's form and its
// respondent, the input of the export pivot.
type ResponseRow struct {
	FormID         uint
	QuestionID     uint
	OrganizationID uint
	Answer         string
	ContactName    string
	ContactEmail   string
	JobTitle       string
}

func (s *Store) ListResponseRows(ctx context.Context, formID uint, offset, limit int) ([]ResponseRow, error) {
	q := s.db.WithContext(ctx).Table("responses AS r").
		Select("q.form_id, r.question_id, r.organization_id, r.answer, o.contact_name, o.contact_email, o.job_title").
		Joins("JOIN questions q ON q.id = r.question_id").
		Joins("JOIN organizations o ON o.id = r.organization_id")
	if formID != 0 {
		q = q.Where("q.form_id = ?", formID)
	}
	var rows []ResponseRow
	err := q.Order("r.question_id ASC, r.organization_id ASC").Offset(offset).Limit(limit).Scan(&rows).Error
	return rows, err
}
