package models

import "time"

// Organization is a respondent, identified by its contact email.
type Organization struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ContactName   string    `gorm:"column:contact_name;size:255" json:"contactName"`
	ContactEmail  string    `gorm:"column:contact_email;size:255;uniqueIndex;not null" json:"contactEmail"`
	JobTitle      string    `gorm:"column:job_title;size:255" json:"jobTitle"`
	CompanyName   string    `gorm:"column:company_name;size:255" json:"companyName"`
	ContactNumber string    `gorm:"column:contact_number;size:50" json:"contactNumber"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}
