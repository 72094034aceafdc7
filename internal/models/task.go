package models

import (
	"fmt"
	"time"

	"github.com/yukikurage/mayau-app/internal/id"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

const (
	MinProgress = 0
	MaxProgress = 100
)

type Task struct {
	ID          int64          `gorm:"primarykey;autoIncrement:false" json:"id,string"`
	WorkspaceID int64          `gorm:"not null;index" json:"workspace_id,string"`
	CreatorID   string         `gorm:"type:varchar(64);not null" json:"creator_id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Deadline    *time.Time     `gorm:"index" json:"deadline"`
	Status      TaskStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority    TaskPriority   `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Progress    int            `gorm:"not null;default:0" json:"progress"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Assignees   []TaskAssignee   `gorm:"foreignKey:TaskID" json:"-"`
	Comments    []TaskComment    `gorm:"foreignKey:TaskID" json:"-"`
	Attachments []TaskAttachment `gorm:"foreignKey:TaskID" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == 0 {
		t.ID = id.New()
	}
	return nil
}

func (t *Task) BeforeSave(tx *gorm.DB) error {
	if !t.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidField, t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidField, t.Priority)
	}
	if t.Progress < MinProgress || t.Progress > MaxProgress {
		return fmt.Errorf("%w: progress %d", ErrInvalidField, t.Progress)
	}
	return nil
}

// AssigneeIDs returns the assigned identity ids.
func (t Task) AssigneeIDs() []string {
	ids := make([]string, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		ids = append(ids, a.IdentityID)
	}
	return ids
}

// IsOverdue reports whether the deadline has passed on an unfinished task.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now) && t.Status != TaskStatusCompleted
}
