package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/paging"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db, paging.Options{PageSize: 2})
}

func seedQuestions(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	parent := uint(1)
	yes := "Yes"
	qs := []models.Question{
		{ID: 1, FormID: 1, Section: "General", Type: "radio", Label: "Uses ERP?", Options: `[{"label":"Yes","value":"Yes"},{"label":"No","value":"No"}]`, Status: "active"},
		{ID: 2, FormID: 1, Section: "General", Type: "text", Label: "Which one?", ParentQuestionID: &parent, ConditionValue: &yes, Status: "active"},
		{ID: 3, FormID: 1, Section: "General", Type: "text", Label: "Retired", Status: "inactive"},
		{ID: 4, FormID: 2, Section: "HR", Type: "textarea", Label: "Payroll notes", Status: "active"},
	}
	forms := []models.Form{{ID: 1, Name: "ERP"}, {ID: 2, Name: "HR"}}
	if err := s.InsertQuestions(ctx, forms, qs); err != nil {
		t.Fatalf("insert questions: %v", err)
	}
}

func TestLoadQuestionsPagesActiveOnly(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)

	got, err := s.LoadQuestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("expected active questions 1 and 2, got %+v", got)
	}
	if got[1].ParentID == nil || *got[1].ParentID != 1 || got[1].ConditionValue != "Yes" {
		t.Fatalf("child link lost: %+v", got[1])
	}
	if len(got[0].Options) != 2 {
		t.Fatalf("options not decoded: %+v", got[0].Options)
	}

	all, err := s.LoadQuestions(context.Background(), questionnaire.AllForms)
	if err != nil {
		t.Fatalf("LoadQuestions all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 active questions across forms, got %d", len(all))
	}
}

func TestUpsertResponsesIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)
	ctx := context.Background()

	org := models.Organization{ContactEmail: "ana@acme.test", ContactName: "Ana"}
	if err := s.SaveOrganization(ctx, &org); err != nil {
		t.Fatalf("save org: %v", err)
	}

	first := []models.Response{{OrganizationID: org.ID, QuestionID: 1, Answer: "Yes"}}
	if err := s.UpsertResponses(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := []models.Response{{OrganizationID: org.ID, QuestionID: 1, Answer: "No"}}
	if err := s.UpsertResponses(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	s.db.Model(&models.Response{}).Where("organization_id = ? AND question_id = ?", org.ID, 1).Count(&count)
	if count != 1 {
		t.Fatalf("expected one row for the pair, got %d", count)
	}
	rows, err := s.ResponsesByOrganization(ctx, org.ID, 1)
	if err != nil {
		t.Fatalf("ResponsesByOrganization: %v", err)
	}
	if len(rows) != 1 || rows[0].Answer != "No" {
		t.Fatalf("expected latest answer No, got %+v", rows)
	}
}

func TestOrganizationLookupAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.FindOrganizationByEmail(ctx, "nobody@acme.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	org := models.Organization{ContactEmail: "ana@acme.test", ContactName: "Ana", JobTitle: "CFO"}
	if err := s.SaveOrganization(ctx, &org); err != nil {
		t.Fatalf("create: %v", err)
	}
	update := models.Organization{ID: org.ID, ContactEmail: org.ContactEmail, ContactName: "Ana Lima"}
	if err := s.SaveOrganization(ctx, &update); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.FindOrganizationByEmail(ctx, "  ANA@acme.test ")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ContactName != "Ana Lima" || got.JobTitle != "CFO" {
		t.Fatalf("empty fields must not overwrite stored ones: %+v", got)
	}
}

func TestResponseRowsAndRespondents(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)
	ctx := context.Background()

	var orgs []models.Organization
	for _, email := range []string{"a@x.test", "b@x.test", "c@x.test"} {
		o := models.Organization{ContactEmail: email}
		if err := s.SaveOrganization(ctx, &o); err != nil {
			t.Fatalf("save org: %v", err)
		}
		orgs = append(orgs, o)
	}
	rows := []models.Response{
		{OrganizationID: orgs[1].ID, QuestionID: 1, Answer: "Yes"},
		{OrganizationID: orgs[0].ID, QuestionID: 1, Answer: "No"},
		{OrganizationID: orgs[0].ID, QuestionID: 2, Answer: ""},
		{OrganizationID: orgs[2].ID, QuestionID: 4, Answer: "weekly"},
	}
	if err := s.UpsertResponses(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := paging.FetchAll(ctx, s.paging, func(ctx context.Context, offset, limit int) ([]ResponseRow, error) {
		return s.ListResponseRows(ctx, 1, offset, limit)
	})
	if err != nil {
		t.Fatalf("ListResponseRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows for form 1, got %d", len(got))
	}
	if got[0].QuestionID != 1 || got[0].OrganizationID != orgs[0].ID || got[0].ContactEmail != "a@x.test" {
		t.Fatalf("rows not ordered by question then organization: %+v", got[0])
	}

	respondents, err := s.ListRespondents(ctx, 1)
	if err != nil {
		t.Fatalf("ListRespondents: %v", err)
	}
	if len(respondents) != 2 {
		t.Fatalf("expected 2 distinct respondents for form 1, got %d", len(respondents))
	}
	everyone, err := s.ListRespondents(ctx, 0)
	if err != nil {
		t.Fatalf("ListRespondents all: %v", err)
	}
	if len(everyone) != 3 {
		t.Fatalf("expected 3 respondents overall, got %d", len(everyone))
	}
}

func TestExportJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := models.ExportJob{JobID: "job-1", FormID: 1, Status: models.JobQueued}
	if err := s.CreateExportJob(ctx, &job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.UpdateExportJob(ctx, "job-1", map[string]any{"status": models.JobDone}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetExportJob(ctx, "job-1")
	if err != nil || got.Status != models.JobDone {
		t.Fatalf("expected done job, got %+v err=%v", got, err)
	}
	if _, err := s.GetExportJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetQuestionStatus(t *testing.T) {
	s := newTestStore(t)
	seedQuestions(t, s)
	ctx := context.Background()

	if _, err := s.SetQuestionStatus(ctx, 2, questionnaire.StatusInactive); err != nil {
		t.Fatalf("SetQuestionStatus: %v", err)
	}
	got, err := s.LoadQuestions(ctx, 1)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("deactivated question should drop out, got %d", len(got))
	}
	if _, err := s.SetQuestionStatus(ctx, 99, questionnaire.StatusActive); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
