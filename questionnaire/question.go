// Package questionnaire holds the dynamic form model: the question catalog,
// the answer mapping, the section tree and the visibility rules that decide
// which conditional questions are shown.
package questionnaire

import (
	"sort"
	"strings"
)

type QuestionID uint

type FormID uint

// AllForms is the form scope that selects every form.
const AllForms FormID = 0

type QuestionType string

const (
	TypeText     QuestionType = "text"
	TypeTextarea QuestionType = "textarea"
	TypeRadio    QuestionType = "radio"
	TypeSelect   QuestionType = "select"
	TypeCheckbox QuestionType = "checkbox"
	TypeFile     QuestionType = "file"
)

// ParseQuestionType normalizes raw input ("Radio ", "CHECKBOX") into a known type.
func ParseQuestionType(raw string) (QuestionType, bool) {
	t := QuestionType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TypeText, TypeTextarea, TypeRadio, TypeSelect, TypeCheckbox, TypeFile:
		return t, true
	}
	return "", false
}

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == TypeRadio || t == TypeSelect || t == TypeCheckbox
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Question struct {
	ID             QuestionID   `json:"id"`
	FormID         FormID       `json:"form_id"`
	Section        string       `json:"section"`
	Subsection     string       `json:"subsection,omitempty"`
	Type           QuestionType `json:"type"`
	Label          string       `json:"label"`
	Options        []Option     `json:"options,omitempty"`
	ParentID       *QuestionID  `json:"parent_question_id,omitempty"`
	ConditionValue string       `json:"condition_value,omitempty"`
	Status         Status       `json:"status"`
}

// Active treats an empty status as active, the import default.
func (q Question) Active() bool {
	return q.Status != StatusInactive
}

func (q Question) IsChild() bool {
	return q.ParentID != nil
}

// HasOption reports whether v is one of the question's option values.
func (q Question) HasOption(v string) bool {
	for _, o := range q.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Catalog is an immutable, id-ordered view over a form's questions with a
// parent → children index.
type Catalog struct {
	ordered  []Question
	byID     map[QuestionID]int
	children map[QuestionID][]int
}

func NewCatalog(questions []Question) *Catalog {
	ordered := make([]Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	c := &Catalog{
		ordered:  ordered,
		byID:     make(map[QuestionID]int, len(ordered)),
		children: make(map[QuestionID][]int),
	}
	for i, q := range ordered {
		c.byID[q.ID] = i
		if q.ParentID != nil {
			c.children[*q.ParentID] = append(c.children[*q.ParentID], i)
		}
	}
	return c
}

func (c *Catalog) Len() int { return len(c.ordered) }

// Questions returns the catalog in id order. The slice must not be modified.
func (c *Catalog) Questions() []Question { return c.ordered }

func (c *Catalog) Question(id QuestionID) (Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Question{}, false
	}
	return c.ordered[i], true
}

// Children returns the questions whose parent is id, in id order.
func (c *Catalog) Children(id QuestionID) []Question {
	idx := c.children[id]
	out := make([]Question, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.ordered[i])
	}
	return out
}
