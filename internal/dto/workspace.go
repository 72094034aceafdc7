package dto

import "github.com/yukikurage/mayau-app/internal/models"

// WorkspaceDTO represents a workspace in API responses
type WorkspaceDTO struct {
	ID        int64    `json:"id,string"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// ToWorkspaceDTO converts a Workspace model to WorkspaceDTO
func ToWorkspaceDTO(workspace models.Workspace) WorkspaceDTO {
	return WorkspaceDTO{
		ID:        workspace.ID,
		Name:      workspace.Name,
		MemberIDs: workspace.MemberIDs(),
	}
}

func ToWorkspaceDTOs(workspaces []models.Workspace) []WorkspaceDTO {
	items := make([]WorkspaceDTO, len(workspaces))
	for i, workspace := range workspaces {
		items[i] = ToWorkspaceDTO(workspace)
	}
	return items
}
