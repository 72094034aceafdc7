package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/constants"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/logger"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/services"
)

type WorkspaceFinder interface {
	GetWorkspace(ctx context.Context, workspaceID int64) (*models.Workspace, error)
}

// RequireWorkspace loads the workspace named by the :id parameter. Any active
// identity may work in any workspace; the member set is a roster, not an ACL.
func RequireWorkspace(finder WorkspaceFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace ID")
			c.Abort()
			return
		}

		workspace, err := finder.GetWorkspace(c.Request.Context(), workspaceID)
		if err != nil {
			if errors.Is(err, services.ErrWorkspaceNotFound) {
				apierrors.NotFound(c, "Workspace not found")
			} else {
				apierrors.InternalError(c, "Failed to load workspace")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyWorkspace, *workspace)
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
			WorkspaceID: &workspace.ID,
		}))
		c.Next()
	}
}

// GetWorkspace retrieves the workspace stored by RequireWorkspace
func GetWorkspace(c *gin.Context) (models.Workspace, bool) {
	value, exists := c.Get(constants.ContextKeyWorkspace)
	if !exists {
		return models.Workspace{}, false
	}
	workspace, ok := value.(models.Workspace)
	return workspace, ok
}
