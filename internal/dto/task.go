package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/services"
)

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        int64     `json:"id,string"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentDTO represents a task attachment in API responses
type AttachmentDTO struct {
	ID         int64     `json:"id,string"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploaderID string    `json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          int64               `json:"id,string"`
	WorkspaceID int64               `json:"workspace_id,string"`
	CreatorID   string              `json:"creator_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssigneeIDs []string            `json:"assignee_ids"`
	Deadline    *time.Time          `json:"deadline"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	Progress    int                 `json:"progress"`
	Overdue     bool                `json:"overdue"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Comments    []CommentDTO        `json:"comments,omitempty"`
	Attachments []AttachmentDTO     `json:"attachments,omitempty"`
}

// TaskListResponse represents the tasks of a workspace
type TaskListResponse struct {
	Tasks  []TaskDTO `json:"tasks"`
	Status string    `json:"status"`
}

// TaskDraftsResponse represents AI-suggested tasks that have not been created
type TaskDraftsResponse struct {
	Drafts []services.TaskDraft `json:"drafts"`
}

// Conversion functions

func ToCommentDTO(comment models.TaskComment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}
}

func ToAttachmentDTO(attachment models.TaskAttachment) AttachmentDTO {
	return AttachmentDTO{
		ID:         attachment.ID,
		Name:       attachment.Name,
		URL:        attachment.URL,
		UploaderID: attachment.UploaderID,
		CreatedAt:  attachment.CreatedAt,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		WorkspaceID: task.WorkspaceID,
		CreatorID:   task.CreatorID,
		Title:       task.Title,
		Description: task.Description,
		AssigneeIDs: task.AssigneeIDs(),
		Deadline:    task.Deadline,
		Status:      task.Status,
		Priority:    task.Priority,
		Progress:    task.Progress,
		Overdue:     task.IsOverdue(time.Now()),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Include comments and attachments if preloaded
	if len(task.Comments) > 0 {
		dto.Comments = make([]CommentDTO, len(task.Comments))
		for i, comment := range task.Comments {
			dto.Comments[i] = ToCommentDTO(comment)
		}
	}
	if len(task.Attachments) > 0 {
		dto.Attachments = make([]AttachmentDTO, len(task.Attachments))
		for i, attachment := range task.Attachments {
			dto.Attachments[i] = ToAttachmentDTO(attachment)
		}
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, status string) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:  items,
		Status: status,
	}
}

// Nullable tells an absent JSON field apart from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
