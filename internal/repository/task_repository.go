package repository

import (
	"context"
	"time"

	"github.com/yukikurage/mayau-app/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task and its assignees
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignees := task.Assignees
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}

		if len(assignees) == 0 {
			return nil
		}
		for i := range assignees {
			assignees[i].TaskID = task.ID
		}
		return tx.Create(&assignees).Error
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id int64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p, orderByCreated(p))
	}

	if err := query.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// ListByWorkspace lists the tasks of a workspace, newest first
func (r *GormTaskRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Preload("Assignees").
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOverdue lists unfinished tasks whose deadline is before now
func (r *GormTaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Where("status <> ?", models.TaskStatusCompleted).
		Order("deadline ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update saves task fields, leaving associations alone
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// ReplaceAssignees replaces the assignee set in one transaction
func (r *GormTaskRepository) ReplaceAssignees(ctx context.Context, taskID int64, identityIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}

		if len(identityIDs) == 0 {
			return nil
		}

		assignees := make([]models.TaskAssignee, len(identityIDs))
		for i, identityID := range identityIDs {
			assignees[i] = models.TaskAssignee{
				TaskID:     taskID,
				IdentityID: identityID,
			}
		}
		return tx.Create(&assignees).Error
	})
}

// Delete removes a task with its assignees, comments and attachments. Chat
// messages are kept.
func (r *GormTaskRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAttachment{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AppendComment appends one comment with a single insert
func (r *GormTaskRepository) AppendComment(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// AppendAttachment appends one attachment with a single insert
func (r *GormTaskRepository) AppendAttachment(ctx context.Context, attachment *models.TaskAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

// ListComments lists comments oldest first
func (r *GormTaskRepository) ListComments(ctx context.Context, taskID int64) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListAttachments lists attachments oldest first
func (r *GormTaskRepository) ListAttachments(ctx context.Context, taskID int64) ([]models.TaskAttachment, error) {
	var attachments []models.TaskAttachment
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func orderByCreated(association string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch association {
		case "Comments", "Attachments":
			return db.Order("created_at ASC, id ASC")
		default:
			return db
		}
	}
}
