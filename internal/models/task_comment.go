package models

import (
	"time"

	"github.com/yukikurage/mayau-app/internal/id"
	"gorm.io/gorm"
)

// TaskComment is one entry of a task's ordered, append-only comment list.
type TaskComment struct {
	ID        int64     `gorm:"primarykey;autoIncrement:false" json:"id,string"`
	TaskID    int64     `gorm:"not null;index" json:"task_id,string"`
	AuthorID  string    `gorm:"type:varchar(64);not null" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *TaskComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = id.New()
	}
	return nil
}

// TaskAttachment is one entry of a task's ordered, append-only attachment list.
type TaskAttachment struct {
	ID         int64     `gorm:"primarykey;autoIncrement:false" json:"id,string"`
	TaskID     int64     `gorm:"not null;index" json:"task_id,string"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	URL        string    `gorm:"type:text;not null" json:"url"`
	UploaderID string    `gorm:"type:varchar(64);not null" json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a *TaskAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == 0 {
		a.ID = id.New()
	}
	return nil
}
