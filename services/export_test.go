package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/repository"
	"github.com/xuri/excelize/v2"
)

func TestPivotFillsMissingWithBlank(t *testing.T) {
	questions := []questionnaire.Question{
		{ID: 2, Section: "General", Label: "Which one?"},
		{ID: 1, Section: "General", Label: "Uses ERP?"},
	}
	rows := []repository.ResponseRow{
		{QuestionID: 1, OrganizationID: 10, Answer: "Yes", ContactName: "Ana"},
		{QuestionID: 1, OrganizationID: 20, Answer: "No", ContactEmail: "bo@acme.test"},
		{QuestionID: 2, OrganizationID: 10, Answer: "SAP", ContactName: "Ana"},
	}

	m := Pivot(questions, rows, nil)
	if len(m) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m))
	}
	for i, row := range m {
		if len(row) != 3 {
			t.Fatalf("row %d: expected 3 columns, got %d", i, len(row))
		}
	}
	if m[0][0].Text != HeaderLabel || m[0][1].Text != "Ana" || m[0][2].Text != "bo" {
		t.Fatalf("unexpected header %+v", m[0])
	}
	if m[1][0].Text != "General - Uses ERP?" || m[2][0].Text != "General - Which one?" {
		t.Fatalf("rows must follow question id order: %q, %q", m[1][0].Text, m[2][0].Text)
	}
	if m[2][2].Text != BlankCell {
		t.Fatalf("missing answer should be %q, got %q", BlankCell, m[2][2].Text)
	}
}

func TestPivotKeepsSameNamedRespondentsApart(t *testing.T) {
	questions := []questionnaire.Question{{ID: 1, Label: "Q"}}
	rows := []repository.ResponseRow{
		{QuestionID: 1, OrganizationID: 1, Answer: "a", ContactName: "Sam"},
		{QuestionID: 1, OrganizationID: 2, Answer: "b", ContactName: "Sam"},
		{QuestionID: 1, OrganizationID: 3, Answer: ""},
	}
	m := Pivot(questions, rows, nil)
	if len(m[0]) != 4 {
		t.Fatalf("expected one column per organization, got %d", len(m[0]))
	}
	if m[1][1].Text != "a" || m[1][2].Text != "b" || m[1][3].Text != BlankCell {
		t.Fatalf("unexpected row %+v", m[1])
	}
	if m[0][3].Text != UnknownName {
		t.Fatalf("expected %q header, got %q", UnknownName, m[0][3].Text)
	}
}

func TestPivotRendersFilesAndChoices(t *testing.T) {
	questions := []questionnaire.Question{{ID: 1, Label: "Doc"}, {ID: 2, Label: "Modules"}}
	rows := []repository.ResponseRow{
		{QuestionID: 1, OrganizationID: 1, Answer: "files/1/1/coa.xlsx"},
		{QuestionID: 2, OrganizationID: 1, Answer: `["GL","AP"]`},
	}
	m := Pivot(questions, rows, func(p string) string { return "https://cdn.test/" + p })
	if c := m[1][1]; c.Text != DownloadLabel || c.Link != "https://cdn.test/files/1/1/coa.xlsx" {
		t.Fatalf("unexpected file cell %+v", c)
	}
	if c := m[2][1]; c.Text != "GL, AP" {
		t.Fatalf("unexpected choice cell %+v", c)
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		id   uint
		name string
		want string
	}{
		{3, "ERP", "3 - ERP"},
		{4, "", "4"},
		{5, "Finance: AP/AR [draft]?", "5 - Finance- AP-AR -draft--"},
		{6, strings.Repeat("x", 40), "6 - " + strings.Repeat("x", 27)},
	}
	for _, tt := range tests {
		if got := SheetName(tt.id, tt.name); got != tt.want {
			t.Fatalf("SheetName(%d, %q) = %q, want %q", tt.id, tt.name, got, tt.want)
		}
	}
}

func submitSample(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	s := f.submitter()
	subs := []Submission{
		{FormID: 1, Respondent: Respondent{Name: "Ana", Email: "ana@acme.test"}, Answers: questionnaire.Answers{
			1: questionnaire.ChoiceAnswer("Yes"),
			2: questionnaire.TextAnswer("SAP"),
			4: questionnaire.PendingFile{Filename: "coa.xlsx", Open: fileOf("data")},
		}},
		{FormID: 1, Respondent: Respondent{Email: "bo@acme.test"}, Answers: questionnaire.Answers{
			1: questionnaire.ChoiceAnswer("No"),
		}},
		{FormID: 2, Respondent: Respondent{Name: "Cy", Email: "cy@acme.test"}, Answers: questionnaire.Answers{
			5: questionnaire.TextAnswer("Monthly payroll"),
		}},
	}
	for _, sub := range subs {
		if _, err := s.Submit(ctx, sub); err != nil {
			t.Fatalf("submit %s: %v", sub.Respondent.Email, err)
		}
	}
}

func TestExportWorkbookReadBack(t *testing.T) {
	f := newFixture(t)
	submitSample(t, f)

	wb, err := f.exporter(t).Export(context.Background(), 1, FormatXLSX)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if wb.Filename != "Form_1_Responses.xlsx" {
		t.Fatalf("unexpected filename %s", wb.Filename)
	}

	x, err := excelize.OpenReader(bytes.NewReader(wb.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer x.Close()

	rows, err := x.GetRows(SingleSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header + 4 questions, got %d rows", len(rows))
	}
	if rows[0][0] != HeaderLabel || rows[0][1] != "Ana" || rows[0][2] != "bo" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "General - Uses ERP?" || rows[1][1] != "Yes" || rows[1][2] != "No" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][2] != BlankCell {
		t.Fatalf("unanswered cell should be blank marker, got %q", rows[2][2])
	}
	if rows[4][1] != DownloadLabel {
		t.Fatalf("file cell should be a download link, got %q", rows[4][1])
	}
	ok, target, err := x.GetCellHyperLink(SingleSheet, "B5")
	if err != nil || !ok || target != "https://blobs.test/files/1/4/coa.xlsx" {
		t.Fatalf("unexpected hyperlink %v %q %v", ok, target, err)
	}
	width, err := x.GetColWidth(SingleSheet, "A")
	if err != nil || width != float64(len("Finance - Chart of accounts")+2) {
		t.Fatalf("unexpected column width %v %v", width, err)
	}
}

func TestExportAllFormsOneSheetPerForm(t *testing.T) {
	f := newFixture(t)
	submitSample(t, f)

	wb, err := f.exporter(t).Export(context.Background(), questionnaire.AllForms, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	x, err := excelize.OpenReader(bytes.NewReader(wb.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer x.Close()

	sheets := x.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "1 - ERP Discovery" || sheets[1] != "2 - HR Review" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, _ := x.GetRows("2 - HR Review")
	if len(rows) != 2 || rows[1][1] != "Monthly payroll" {
		t.Fatalf("unexpected HR rows %v", rows)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	submitSample(t, f)
	e := f.exporter(t)

	wb, err := e.Export(context.Background(), 2, FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := "User Name,Cy\nHR - Payroll notes,Monthly payroll\n"; string(wb.Data) != want {
		t.Fatalf("unexpected csv %q", wb.Data)
	}
	if _, err := e.Export(context.Background(), questionnaire.AllForms, FormatCSV); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExportNoData(t *testing.T) {
	f := newFixture(t)
	e := f.exporter(t)

	if _, err := e.Export(context.Background(), 1, FormatXLSX); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData without responses, got %v", err)
	}
	if _, err := e.Export(context.Background(), 99, FormatXLSX); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for a form without questions, got %v", err)
	}
	if _, err := e.Export(context.Background(), questionnaire.AllForms, FormatXLSX); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData across forms, got %v", err)
	}
}

func TestExportRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	submitSample(t, f)
	e := f.exporter(t)

	if !e.acquire(1) {
		t.Fatal("acquire should succeed")
	}
	if _, err := e.Export(context.Background(), 1, FormatXLSX); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("expected ErrExportInProgress, got %v", err)
	}
	if _, err := e.Enqueue(context.Background(), 1, FormatXLSX); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("expected ErrExportInProgress from Enqueue, got %v", err)
	}
	if _, err := e.Export(context.Background(), 2, FormatXLSX); err != nil {
		t.Fatalf("other forms should still export: %v", err)
	}
	e.release(1)
	if _, err := e.Export(context.Background(), 1, FormatXLSX); err != nil {
		t.Fatalf("export after release: %v", err)
	}
}

func TestEnqueueWritesFile(t *testing.T) {
	f := newFixture(t)
	submitSample(t, f)
	e := f.exporter(t)
	ctx := context.Background()

	job, err := e.Enqueue(ctx, 1, FormatXLSX)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != models.JobQueued {
		t.Fatalf("new job should be queued, got %s", job.Status)
	}
	e.Wait()

	got, err := e.Job(ctx, job.JobID)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if got.Status != models.JobDone || got.FilePath == nil {
		t.Fatalf("expected finished job, got %+v", got)
	}
	if _, err := os.Stat(*got.FilePath); err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	failed, err := e.Enqueue(ctx, 99, FormatXLSX)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	e.Wait()
	got, _ = e.Job(ctx, failed.JobID)
	if got.Status != models.JobFailed || got.ErrorMsg == nil || *got.ErrorMsg != ErrNoData.Error() {
		t.Fatalf("expected failed job with no-data message, got %+v", got)
	}

	if _, err := e.Job(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
