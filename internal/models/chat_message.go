package models

import (
	"time"

	"github.com/yukikurage/mayau-app/internal/id"
	"gorm.io/gorm"
)

// ChatMessage belongs to a task by id only. There is no foreign key, so
// messages outlive the task they were posted on.
type ChatMessage struct {
	ID         int64     `gorm:"primarykey;autoIncrement:false" json:"id,string"`
	TaskID     int64     `gorm:"not null;index" json:"task_id,string"`
	AuthorID   string    `gorm:"type:varchar(64);not null" json:"author_id"`
	AuthorName string    `gorm:"type:varchar(255)" json:"author_name"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == 0 {
		m.ID = id.New()
	}
	return nil
}
