package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/dto"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/services"
)

type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

func NewWorkspaceHandler(workspaceService *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
	}
}

// ListWorkspaces resolves every fixed workspace
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	workspaces, err := h.workspaceService.ResolveAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workspaces": dto.ToWorkspaceDTOs(workspaces),
	})
}

// ResolveWorkspace gets or creates the workspace named by ?name=
func (h *WorkspaceHandler) ResolveWorkspace(c *gin.Context) {
	workspace, err := h.workspaceService.Resolve(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(*workspace))
}

// SetMembers replaces the workspace's member set
func (h *WorkspaceHandler) SetMembers(c *gin.Context) {
	workspace, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not found in context")
		return
	}

	type SetMembersRequest struct {
		MemberIDs []string `json:"member_ids" binding:"required"`
	}

	var req SetMembersRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.workspaceService.SetMembers(c.Request.Context(), workspace.ID, req.MemberIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(*updated))
}
