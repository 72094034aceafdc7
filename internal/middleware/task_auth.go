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

type TaskFinder interface {
	GetTask(ctx context.Context, taskID int64) (*models.Task, error)
}

// RequireTask loads the task named by the :id parameter with its comments,
// attachments and assignees.
func RequireTask(finder TaskFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := ParseTaskID(c)
		if !ok {
			c.Abort()
			return
		}

		task, err := finder.GetTask(c.Request.Context(), taskID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
			} else {
				apierrors.InternalError(c, "Failed to load task")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, *task)
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
			WorkspaceID: &task.WorkspaceID,
			TaskID:      &task.ID,
		}))
		c.Next()
	}
}

// ParseTaskID reads the :id parameter. On failure it has already written a 400.
func ParseTaskID(c *gin.Context) (int64, bool) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return 0, false
	}
	return taskID, true
}

// GetTask retrieves the task stored by RequireTask
func GetTask(c *gin.Context) (models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := value.(models.Task)
	return task, ok
}
