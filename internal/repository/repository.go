package repository

import (
	"context"
	"time"

	"github.com/yukikurage/mayau-app/internal/models"
)

// IdentityRepository defines the interface for identity data access
type IdentityRepository interface {
	// Upsert creates the identity or refreshes its email and display name
	Upsert(ctx context.Context, identity *models.Identity) error

	// FindByID finds an identity by ID
	FindByID(ctx context.Context, id string) (*models.Identity, error)

	// UpdateDisplayName changes the only mutable identity field
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// ProfileFilter holds filtering options for listing profiles
type ProfileFilter struct {
	Approved *bool
}

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	// FindByID finds the profile of an identity
	FindByID(ctx context.Context, identityID string) (*models.Profile, error)

	// Create creates a new profile
	Create(ctx context.Context, profile *models.Profile) error

	// Update saves every profile field
	Update(ctx context.Context, profile *models.Profile) error

	// UpsertMaster writes the master identity and profile; repeated calls are no-ops
	UpsertMaster(ctx context.Context, displayName string) (*models.Profile, error)

	// List lists profiles with their identities
	List(ctx context.Context, filter ProfileFilter) ([]models.Profile, error)
}

// WorkspaceRepository defines the interface for workspace data access
type WorkspaceRepository interface {
	// Create creates a new workspace
	Create(ctx context.Context, workspace *models.Workspace) error

	// FindByID finds a workspace by ID with its members
	FindByID(ctx context.Context, id int64) (*models.Workspace, error)

	// FindByName finds the earliest workspace with the given name
	FindByName(ctx context.Context, name string) (*models.Workspace, error)

	// ReplaceMembers replaces the full member set
	ReplaceMembers(ctx context.Context, workspaceID int64, identityIDs []string) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task and its assignees
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id int64, preload ...string) (*models.Task, error)

	// ListByWorkspace lists the tasks of a workspace, newest first
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]models.Task, error)

	// ListOverdue lists unfinished tasks whose deadline is before now
	ListOverdue(ctx context.Context, now time.Time) ([]models.Task, error)

	// Update saves task fields, leaving associations alone
	Update(ctx context.Context, task *models.Task) error

	// ReplaceAssignees replaces the assignee set
	ReplaceAssignees(ctx context.Context, taskID int64, identityIDs []string) error

	// Delete removes a task with its assignees, comments and attachments
	Delete(ctx context.Context, id int64) error

	// AppendComment appends one comment
	AppendComment(ctx context.Context, comment *models.TaskComment) error

	// AppendAttachment appends one attachment
	AppendAttachment(ctx context.Context, attachment *models.TaskAttachment) error

	// ListComments lists comments oldest first
	ListComments(ctx context.Context, taskID int64) ([]models.TaskComment, error)

	// ListAttachments lists attachments oldest first
	ListAttachments(ctx context.Context, taskID int64) ([]models.TaskAttachment, error)
}

// ChatRepository defines the interface for chat message data access
type ChatRepository interface {
	// Append appends a message
	Append(ctx context.Context, message *models.ChatMessage) error

	// ListByTask lists messages for a task id, oldest first
	ListByTask(ctx context.Context, taskID int64) ([]models.ChatMessage, error)
}
