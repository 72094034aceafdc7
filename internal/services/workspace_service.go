package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrUnknownWorkspace  = fmt.Errorf("%w: unknown workspace name", ErrInvalidInput)
)

// WorkspaceService resolves the fixed project workspaces and manages their rosters.
type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	publisher     realtime.Publisher
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, publisher realtime.Publisher) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		publisher:     publisher,
	}
}

// Resolve returns the workspace with the given name, creating it on first
// reference. Two concurrent first references may both create one; later
// lookups settle on the oldest.
func (s *WorkspaceService) Resolve(ctx context.Context, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if !models.IsWorkspaceName(name) {
		return nil, ErrUnknownWorkspace
	}

	workspace, err := s.workspaceRepo.FindByName(ctx, name)
	if err == nil {
		return workspace, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	workspace = &models.Workspace{Name: name}
	if err := s.workspaceRepo.Create(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	workspace.Members = []models.WorkspaceMember{}

	slog.InfoContext(ctx, "workspace created", "workspace_id", workspace.ID, "name", name)
	return workspace, nil
}

// ResolveAll resolves every fixed workspace in directory order.
func (s *WorkspaceService) ResolveAll(ctx context.Context) ([]models.Workspace, error) {
	workspaces := make([]models.Workspace, 0, len(models.WorkspaceNames))
	for _, name := range models.WorkspaceNames {
		workspace, err := s.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, *workspace)
	}
	return workspaces, nil
}

// GetWorkspace returns a workspace with its members.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, workspaceID int64) (*models.Workspace, error) {
	workspace, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}
	return workspace, nil
}

// SetMembers replaces the whole member set. Duplicates collapse to one entry.
func (s *WorkspaceService) SetMembers(ctx context.Context, workspaceID int64, memberIDs []string) (*models.Workspace, error) {
	if _, err := s.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}

	ids := uniqueIDs(memberIDs)
	if err := s.workspaceRepo.ReplaceMembers(ctx, workspaceID, ids); err != nil {
		return nil, fmt.Errorf("failed to replace members: %w", err)
	}

	workspace, err := s.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, realtime.WorkspaceTasksChannel(workspaceID), realtime.KindMembersChanged, workspace.MemberIDs())
	return workspace, nil
}
