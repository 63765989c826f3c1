package models

import "time"

// Response holds one organization's answer to one question. The pair is unique.
type Response struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;uniqueIndex:idx_responses_org_question" json:"organization_id"`
	QuestionID     uint      `gorm:"column:question_id;not null;uniqueIndex:idx_responses_org_question;index" json:"question_id"`
	Answer         string    `gorm:"column:answer;type:text" json:"answer"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Question     Question     `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Response) TableName() string {
	return "responses"
}
