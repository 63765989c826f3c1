package models

import "time"

type Form struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Quan hệ
	Questions []Question `gorm:"foreignKey:FormID" json:"-"`
}

func (Form) TableName() string {
	return "forms"
}
