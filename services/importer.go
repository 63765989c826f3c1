package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/vnkhanh/erp-questionnaire/cache"
	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
)

type ImportStore interface {
	InsertQuestions(ctx context.Context, forms []models.Form, questions []models.Question) error
}

// RowError points at the first bad line of an import file.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Reason) }

// ImportResult summarizes an import.
type ImportResult struct {
	Inserted int                    `json:"inserted"`
	Forms    []questionnaire.FormID `json:"forms"`
}

type Importer struct {
	store   ImportStore
	catalog cache.Catalog
	log     *slog.Logger
}

func NewImporter(store ImportStore, catalog cache.Catalog, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, catalog: catalog, log: logger}
}

var requiredColumns = []string{"type", "label", "form_id"}

// ImportedQuestion is one parsed CSV row.
type ImportedQuestion struct {
	Question questionnaire.Question
	FormName string
}

// ParseQuestionCSV reads rows with the columns section, type, label, options,
// parent_question_id, condition_value, subsection, status, form_id and an
// optional form_name. Options are comma separated and kept only for choice
// types. Status defaults to active.
func ParseQuestionCSV(r io.Reader) ([]ImportedQuestion, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &RowError{Line: 1, Reason: "file is empty"}
	}
	if err != nil {
		return nil, &RowError{Line: 1, Reason: err.Error()}
	}
	cols := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[h] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, &RowError{Line: 1, Reason: fmt.Sprintf("missing column %q", c)}
		}
	}

	var out []ImportedQuestion
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &RowError{Line: line, Reason: err.Error()}
		}
		line, _ := cr.FieldPos(0)
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if strings.Join(record, "") == "" {
			continue
		}

		q, err := parseRow(get)
		if err != nil {
			return nil, &RowError{Line: line, Reason: err.Error()}
		}
		out = append(out, ImportedQuestion{Question: q, FormName: get("form_name")})
	}
	return out, nil
}

func parseRow(get func(string) string) (questionnaire.Question, error) {
	typ, ok := questionnaire.ParseQuestionType(get("type"))
	if !ok {
		return questionnaire.Question{}, fmt.Errorf("unknown type %q", get("type"))
	}
	label := get("label")
	if label == "" {
		return questionnaire.Question{}, errors.New("label is required")
	}
	formID, err := strconv.ParseUint(get("form_id"), 10, 64)
	if err != nil || formID == 0 {
		return questionnaire.Question{}, fmt.Errorf("invalid form_id %q", get("form_id"))
	}

	q := questionnaire.Question{
		FormID:     questionnaire.FormID(formID),
		Section:    get("section"),
		Subsection: get("subsection"),
		Type:       typ,
		Label:      label,
		Status:     questionnaire.StatusActive,
	}

	switch s := strings.ToLower(get("status")); s {
	case "":
	case string(questionnaire.StatusActive), string(questionnaire.StatusInactive):
		q.Status = questionnaire.Status(s)
	default:
		return questionnaire.Question{}, fmt.Errorf("invalid status %q", s)
	}

	if raw := get("options"); raw != "" && typ.HasOptions() {
		for _, part := range strings.Split(raw, ",") {
			if v := strings.TrimSpace(part); v != "" {
				q.Options = append(q.Options, questionnaire.Option{Label: v, Value: v})
			}
		}
	}

	if raw := get("parent_question_id"); raw != "" {
		pid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || pid == 0 {
			return questionnaire.Question{}, fmt.Errorf("invalid parent_question_id %q", raw)
		}
		p := questionnaire.QuestionID(pid)
		q.ParentID = &p
		q.ConditionValue = get("condition_value")
	}
	return q, nil
}

// Import parses the CSV, creates missing forms, inserts the questions and
// drops the cached catalogs of the touched forms.
func (i *Importer) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	parsed, err := ParseQuestionCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	if len(parsed) == 0 {
		return ImportResult{}, &RowError{Line: 2, Reason: "no question rows"}
	}

	formNames := map[questionnaire.FormID]string{}
	rows := make([]models.Question, 0, len(parsed))
	for _, p := range parsed {
		if name, ok := formNames[p.Question.FormID]; !ok || name == "" {
			formNames[p.Question.FormID] = p.FormName
		}
		row, err := models.QuestionFromDomain(p.Question)
		if err != nil {
			return ImportResult{}, err
		}
		rows = append(rows, row)
	}

	ids := make([]questionnaire.FormID, 0, len(formNames))
	for id := range formNames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	forms := make([]models.Form, 0, len(ids))
	for _, id := range ids {
		forms = append(forms, models.Form{ID: uint(id), Name: formNames[id]})
	}

	if err := i.store.InsertQuestions(ctx, forms, rows); err != nil {
		return ImportResult{}, &PersistError{Op: "questions", Err: err}
	}
	for _, id := range ids {
		if err := i.catalog.Invalidate(ctx, id); err != nil {
			i.log.Warn("catalog invalidation failed", slog.Uint64("form_id", uint64(id)), slog.Any("error", err))
		}
	}

	i.log.Info("questions imported", slog.Int("count", len(rows)), slog.Any("forms", ids))
	return ImportResult{Inserted: len(rows), Forms: ids}, nil
}
