package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/mayau-app/internal/constants"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"github.com/yukikurage/mayau-app/internal/storage"
	"github.com/yukikurage/mayau-app/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTitleRequired          = fmt.Errorf("%w: title is required", ErrInvalidInput)
	ErrTitleTooLong           = fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, constants.MaxTitleLength)
	ErrInvalidStatus          = fmt.Errorf("%w: status must be pending, in-progress or completed", ErrInvalidInput)
	ErrInvalidPriority        = fmt.Errorf("%w: priority must be low, medium or high", ErrInvalidInput)
	ErrInvalidProgress        = fmt.Errorf("%w: progress must be between %d and %d", ErrInvalidInput, models.MinProgress, models.MaxProgress)
	ErrEmptyComment           = fmt.Errorf("%w: comment text is empty", ErrInvalidInput)
	ErrEmptyAttachment        = fmt.Errorf("%w: attachment name and url are required", ErrInvalidInput)
	ErrAttachmentTooLarge     = fmt.Errorf("%w: attachment exceeds %d bytes", ErrInvalidInput, constants.MaxAttachmentBytes)
	ErrStorageNotConfigured   = errors.New("attachment storage is not configured")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo      repository.TaskRepository
	workspaceRepo repository.WorkspaceRepository
	publisher     realtime.Publisher
	store         storage.ObjectStore
	drafter       TaskDrafter
}

// NewTaskService creates a new TaskService. store and drafter may be nil
// when uploads or AI drafting are not configured.
func NewTaskService(
	taskRepo repository.TaskRepository,
	workspaceRepo repository.WorkspaceRepository,
	publisher realtime.Publisher,
	store storage.ObjectStore,
	drafter TaskDrafter,
) *TaskService {
	return &TaskService{
		taskRepo:      taskRepo,
		workspaceRepo: workspaceRepo,
		publisher:     publisher,
		store:         store,
		drafter:       drafter,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Deadline    *time.Time
	Status      models.TaskStatus
	Priority    models.TaskPriority
	Progress    *int
	AssigneeIDs []string
	CreatorID   string
}

// UpdateTaskInput represents a partial update. Nil fields are left as they are.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Deadline      *time.Time
	ClearDeadline bool
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	Progress      *int
	AssigneeIDs   *[]string
}

// TaskDeleted is the payload of a task.deleted event.
type TaskDeleted struct {
	ID          int64 `json:"id,string"`
	WorkspaceID int64 `json:"workspace_id,string"`
}

// ParseStatusFilter validates a status filter. An empty filter means all.
func ParseStatusFilter(status string) (string, error) {
	switch status {
	case "", constants.StatusFilterAll:
		return constants.StatusFilterAll, nil
	}
	if !models.TaskStatus(status).Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// FilterTasks returns the tasks whose status equals status, in their
// original order. The "all" filter returns tasks unchanged.
func FilterTasks(tasks []models.Task, status string) []models.Task {
	if status == constants.StatusFilterAll {
		return tasks
	}

	filtered := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if string(task.Status) == status {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

// ListTasks returns a workspace's tasks, newest first, filtered by status.
func (s *TaskService) ListTasks(ctx context.Context, workspaceID int64, status string) ([]models.Task, error) {
	filter, err := ParseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return FilterTasks(tasks, filter), nil
}

// GetTask returns a task with its assignees, comments and attachments
func (s *TaskService) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.findTask(ctx, taskID, "Assignees", "Comments", "Attachments")
}

// CreateTask creates a task in an existing workspace
func (s *TaskService) CreateTask(ctx context.Context, workspaceID int64, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	if input.Status == "" {
		input.Status = models.TaskStatusPending
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	progress := models.MinProgress
	if input.Progress != nil {
		progress = *input.Progress
	}

	task := &models.Task{
		WorkspaceID: workspaceID,
		CreatorID:   input.CreatorID,
		Title:       title,
		Description: input.Description,
		Deadline:    input.Deadline,
		Status:      input.Status,
		Priority:    input.Priority,
		Progress:    progress,
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	if _, err := s.workspaceRepo.FindByID(ctx, workspaceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	for _, id := range uniqueIDs(input.AssigneeIDs) {
		task.Assignees = append(task.Assignees, models.TaskAssignee{IdentityID: id})
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(workspaceID), realtime.KindTaskCreated, task)
	slog.InfoContext(ctx, "task created", "task_id", task.ID, "workspace_id", workspaceID)

	return task, nil
}

// UpdateTask merges the given fields into a task. Concurrent updates are last-write-wins.
func (s *TaskService) UpdateTask(ctx context.Context, taskID int64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID, "Assignees")
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.ClearDeadline {
		task.Deadline = nil
	} else if input.Deadline != nil {
		task.Deadline = input.Deadline
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.Progress != nil {
		task.Progress = *input.Progress
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if input.AssigneeIDs != nil {
		if err := s.taskRepo.ReplaceAssignees(ctx, taskID, uniqueIDs(*input.AssigneeIDs)); err != nil {
			return nil, fmt.Errorf("failed to replace assignees: %w", err)
		}
	}

	updated, err := s.findTask(ctx, taskID, "Assignees")
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(updated.WorkspaceID), realtime.KindTaskUpdated, updated)
	return updated, nil
}

// ToggleAssignee adds the identity to the task's assignees, or removes it if
// already assigned.
func (s *TaskService) ToggleAssignee(ctx context.Context, taskID int64, identityID string) (*models.Task, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, invalidf("identity id is required")
	}

	task, err := s.findTask(ctx, taskID, "Assignees")
	if err != nil {
		return nil, err
	}

	ids := task.AssigneeIDs()
	if i := slices.Index(ids, identityID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		ids = append(ids, identityID)
	}

	if err := s.taskRepo.ReplaceAssignees(ctx, taskID, ids); err != nil {
		return nil, fmt.Errorf("failed to toggle assignee: %w", err)
	}

	updated, err := s.findTask(ctx, taskID, "Assignees")
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(updated.WorkspaceID), realtime.KindTaskUpdated, updated)
	return updated, nil
}

// DeleteTask removes a task with its comments, attachments and assignees.
// Chat messages posted on the task are kept.
func (s *TaskService) DeleteTask(ctx context.Context, taskID int64) error {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(task.WorkspaceID), realtime.KindTaskDeleted, TaskDeleted{
		ID:          task.ID,
		WorkspaceID: task.WorkspaceID,
	})
	slog.InfoContext(ctx, "task deleted", "task_id", taskID, "workspace_id", task.WorkspaceID)

	return nil
}

// AppendComment appends a comment as a single row insert.
func (s *TaskService) AppendComment(ctx context.Context, taskID int64, authorID, text string) (*models.TaskComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	comment := &models.TaskComment{
		TaskID:   taskID,
		AuthorID: authorID,
		Text:     text,
	}
	if err := s.taskRepo.AppendComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to append comment: %w", err)
	}

	publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(task.WorkspaceID), realtime.KindCommentAdded, comment)
	return comment, nil
}

// AppendAttachment appends an attachment that already has a URL.
func (s *TaskService) AppendAttachment(ctx context.Context, taskID int64, uploaderID, name, url string) (*models.TaskAttachment, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" || url == "" {
		return nil, ErrEmptyAttachment
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	attachment := &models.TaskAttachment{
		TaskID:     taskID,
		Name:       name,
		URL:        url,
		UploaderID: uploaderID,
	}
	if err := s.taskRepo.AppendAttachment(ctx, attachment); err != nil {
		return nil, fmt.Errorf("failed to append attachment: %w", err)
	}

	publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(task.WorkspaceID), realtime.KindAttachmentAdded, attachment)
	return attachment, nil
}

// UploadAttachmentInput describes a file to store and attach.
type UploadAttachmentInput struct {
	TaskID      int64
	UploaderID  string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadAttachment stores the file in object storage and appends it to the task.
func (s *TaskService) UploadAttachment(ctx context.Context, input UploadAttachmentInput) (*models.TaskAttachment, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	if strings.TrimSpace(input.Filename) == "" {
		return nil, ErrEmptyAttachment
	}
	if input.Size > constants.MaxAttachmentBytes {
		return nil, ErrAttachmentTooLarge
	}

	if _, err := s.findTask(ctx, input.TaskID); err != nil {
		return nil, err
	}

	key, err := utils.GenerateObjectKey(input.TaskID, input.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate object key: %w", err)
	}

	url, err := s.store.Put(ctx, key, input.Body, input.Size, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	return s.AppendAttachment(ctx, input.TaskID, input.UploaderID, input.Filename, url)
}

// GenerateDrafts uses AI to suggest tasks from text. Nothing is stored.
func (s *TaskService) GenerateDrafts(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.drafter == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalidf("text is required")
	}

	drafts, err := s.drafter.DraftTasks(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	valid := make([]TaskDraft, 0, len(drafts))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, draft := range drafts {
		draft.Title = strings.TrimSpace(draft.Title)
		if validateTitle(draft.Title) != nil {
			continue
		}

		if draft.Deadline != nil && draft.Deadline.Before(cutoff) {
			draft.Deadline = nil
		}
		if !draft.Priority.Valid() {
			draft.Priority = models.TaskPriorityMedium
		}

		valid = append(valid, draft)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}

	return valid, nil
}

func (s *TaskService) findTask(ctx context.Context, taskID int64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func validateTask(task *models.Task) error {
	if !task.Status.Valid() {
		return ErrInvalidStatus
	}
	if !task.Priority.Valid() {
		return ErrInvalidPriority
	}
	if task.Progress < models.MinProgress || task.Progress > models.MaxProgress {
		return ErrInvalidProgress
	}
	return nil
}
