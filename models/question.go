package models

import (
	"encoding/json"
	"fmt"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
)

type Question struct {
	ID               uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FormID           uint    `gorm:"column:form_id;not null;index" json:"form_id"`
	Section          string  `gorm:"column:section;size:255" json:"section"`
	Subsection       *string `gorm:"column:subsection;size:255" json:"subsection,omitempty"`
	Type             string  `gorm:"column:type;size:20;not null" json:"type"`
	Label            string  `gorm:"column:label;type:text;not null" json:"label"`
	Options          string  `gorm:"column:options;type:text" json:"-"` // JSON [{label,value}]
	ParentQuestionID *uint   `gorm:"column:parent_question_id;index" json:"parent_question_id,omitempty"`
	ConditionValue   *string `gorm:"column:condition_value;type:text" json:"condition_value,omitempty"`
	Status           string  `gorm:"column:status;size:20;default:'active'" json:"status"`
}

func (Question) TableName() string {
	return "questions"
}

// ToDomain converts the row into the questionnaire model.
func (q Question) ToDomain() (questionnaire.Question, error) {
	out := questionnaire.Question{
		ID:      questionnaire.QuestionID(q.ID),
		FormID:  questionnaire.FormID(q.FormID),
		Section: q.Section,
		Type:    questionnaire.QuestionType(q.Type),
		Label:   q.Label,
		Status:  questionnaire.Status(q.Status),
	}
	if q.Subsection != nil {
		out.Subsection = *q.Subsection
	}
	if q.ConditionValue != nil {
		out.ConditionValue = *q.ConditionValue
	}
	if q.ParentQuestionID != nil {
		p := questionnaire.QuestionID(*q.ParentQuestionID)
		out.ParentID = &p
	}
	if q.Options != "" {
		if err := json.Unmarshal([]byte(q.Options), &out.Options); err != nil {
			return questionnaire.Question{}, fmt.Errorf("question %d options: %w", q.ID, err)
		}
	}
	return out, nil
}

func QuestionFromDomain(q questionnaire.Question) (Question, error) {
	row := Question{
		ID:      uint(q.ID),
		FormID:  uint(q.FormID),
		Section: q.Section,
		Type:    string(q.Type),
		Label:   q.Label,
		Status:  string(q.Status),
	}
	if row.Status == "" {
		row.Status = string(questionnaire.StatusActive)
	}
	if q.Subsection != "" {
		s := q.Subsection
		row.Subsection = &s
	}
	if q.ParentID != nil {
		p := uint(*q.ParentID)
		row.ParentQuestionID = &p
		c := q.ConditionValue
		row.ConditionValue = &c
	}
	if len(q.Options) > 0 {
		b, err := json.Marshal(q.Options)
		if err != nil {
			return Question{}, err
		}
		row.Options = string(b)
	}
	return row, nil
}
