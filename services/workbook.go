package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/repository"
	"github.com/xuri/excelize/v2"
)

const (
	HeaderLabel   = "User Name"
	BlankCell     = "[Blank]"
	DownloadLabel = "Download File"
	UnknownName   = "Unknown"
	SingleSheet   = "Responses"

	columnPadding = 2
	maxColWidth   = 255
	maxSheetName  = 31
)

// Cell is one exported value. A cell with Link renders as a hyperlink.
type Cell struct {
	Text string
	Link string
}

// Matrix is a header row followed by one row per question.
type Matrix [][]Cell

type Sheet struct {
	Name string
	Rows Matrix
}

// Pivot builds the question-by-respondent matrix. Respondent columns are
// keyed by organization id and ordered by first appearance in rows. File
// answers become download links through resolve.
func Pivot(questions []questionnaire.Question, rows []repository.ResponseRow, resolve func(path string) string) Matrix {
	qs := append([]questionnaire.Question(nil), questions...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })

	rowKeys := make(map[questionnaire.QuestionID]string, len(qs))
	for _, q := range qs {
		rowKeys[q.ID] = fmt.Sprintf("%s - %s - %d", q.Section, q.Label, q.ID)
	}

	var columns []uint
	headers := map[uint]string{}
	answers := map[uint]map[string]Cell{}
	for _, r := range rows {
		k, ok := rowKeys[questionnaire.QuestionID(r.QuestionID)]
		if !ok {
			continue
		}
		if _, seen := answers[r.OrganizationID]; !seen {
			columns = append(columns, r.OrganizationID)
			headers[r.OrganizationID] = RespondentName(r.ContactName, r.ContactEmail)
			answers[r.OrganizationID] = map[string]Cell{}
		}
		answers[r.OrganizationID][k] = answerCell(r.Answer, resolve)
	}

	m := make(Matrix, 0, len(qs)+1)
	header := make([]Cell, 0, len(columns)+1)
	header = append(header, Cell{Text: HeaderLabel})
	for _, id := range columns {
		header = append(header, Cell{Text: headers[id]})
	}
	m = append(m, header)

	for _, q := range qs {
		row := make([]Cell, 0, len(columns)+1)
		row = append(row, Cell{Text: questionLabel(q)})
		for _, id := range columns {
			c, ok := answers[id][rowKeys[q.ID]]
			if !ok {
				c = Cell{Text: BlankCell}
			}
			row = append(row, c)
		}
		m = append(m, row)
	}
	return m
}

func questionLabel(q questionnaire.Question) string {
	if q.Section == "" {
		return q.Label
	}
	return q.Section + " - " + q.Label
}

func answerCell(raw string, resolve func(string) string) Cell {
	switch a := questionnaire.DecodeStored(raw).(type) {
	case questionnaire.FileAnswer:
		link := a.Path
		if resolve != nil {
			link = resolve(a.Path)
		}
		return Cell{Text: DownloadLabel, Link: link}
	case questionnaire.MultiChoiceAnswer:
		if len(a) == 0 {
			return Cell{Text: BlankCell}
		}
		return Cell{Text: strings.Join(a, ", ")}
	}
	if strings.TrimSpace(raw) == "" {
		return Cell{Text: BlankCell}
	}
	return Cell{Text: raw}
}

// RespondentName picks the column header for a respondent: the contact name,
// else the local part of the email, else Unknown.
func RespondentName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(email), "@"); ok && local != "" {
		return local
	}
	return UnknownName
}

// SheetName formats "{id} - {name}" as a valid worksheet name.
func SheetName(id uint, name string) string {
	s := fmt.Sprintf("%d", id)
	if n := strings.TrimSpace(name); n != "" {
		s += " - " + n
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, s)
	if utf8.RuneCountInString(s) > maxSheetName {
		s = string([]rune(s)[:maxSheetName])
	}
	return strings.TrimSpace(s)
}

// WriteWorkbook renders the sheets into an xlsx file. Column widths fit the
// longest cell text plus padding.
func WriteWorkbook(sheets []Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, err
		}

		widths := map[int]int{}
		for r, row := range sh.Rows {
			for c, cell := range row {
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellStr(sh.Name, ref, cell.Text); err != nil {
					return nil, err
				}
				if cell.Link != "" {
					if err := f.SetCellHyperLink(sh.Name, ref, cell.Link, "External"); err != nil {
						return nil, err
					}
				}
				if n := utf8.RuneCountInString(cell.Text); n > widths[c] {
					widths[c] = n
				}
			}
		}
		for c, w := range widths {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(sh.Name, col, col, float64(min(w+columnPadding, maxColWidth))); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV renders a single matrix as CSV. Link cells carry the URL.
func WriteCSV(m Matrix) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range m {
		record := make([]string, len(row))
		for i, c := range row {
			record[i] = c.Text
			if c.Link != "" {
				record[i] = c.Link
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
