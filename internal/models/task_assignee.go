package models

import "time"

type TaskAssignee struct {
	TaskID     int64     `gorm:"primarykey;autoIncrement:false" json:"task_id,string"`
	IdentityID string    `gorm:"primarykey;type:varchar(64)" json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}
