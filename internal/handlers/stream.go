package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/dto"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/services"
)

const DefaultHeartbeatInterval = 25 * time.Second

// StreamHandler serves the live queries as Server-Sent Events. Each stream
// holds one broker subscription until the client disconnects.
type StreamHandler struct {
	authService *services.AuthService
	taskService *services.TaskService
	feedService *services.FeedService
	broker      realtime.Broker
	heartbeat   time.Duration
}

func NewStreamHandler(
	authService *services.AuthService,
	taskService *services.TaskService,
	feedService *services.FeedService,
	broker realtime.Broker,
	heartbeat time.Duration,
) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &StreamHandler{
		authService: authService,
		taskService: taskService,
		feedService: feedService,
		broker:      broker,
		heartbeat:   heartbeat,
	}
}

// SessionStream pushes the caller's gate state whenever it changes.
func (h *StreamHandler) SessionStream(c *gin.Context) {
	identityID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	ctx := c.Request.Context()
	sess, err := h.authService.Resume(ctx, identityID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer sess.SignOut()

	h.prepare(c)
	c.SSEvent("session", dto.FromSession(sess))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-sess.Updates():
			if !ok {
				return
			}
			c.SSEvent("state", dto.SessionStateDTO{State: state})
		case <-ticker.C:
			c.SSEvent("ping", "")
		}
		c.Writer.Flush()
	}
}

// TaskStream pushes the workspace's filtered task list on every change.
func (h *StreamHandler) TaskStream(c *gin.Context) {
	workspace, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not found in context")
		return
	}

	status, err := services.ParseStatusFilter(c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.serve(c, realtime.WorkspaceTasksChannel(workspace.ID), "tasks", func(ctx context.Context) (any, error) {
		tasks, err := h.taskService.ListTasks(ctx, workspace.ID, status)
		if err != nil {
			return nil, err
		}
		return dto.ToTaskListResponse(tasks, status), nil
	})
}

// ChatStream pushes the task's sorted chat on every new message.
func (h *StreamHandler) ChatStream(c *gin.Context) {
	taskID, ok := middleware.ParseTaskID(c)
	if !ok {
		return
	}

	h.serve(c, realtime.TaskChatChannel(taskID), "messages", func(ctx context.Context) (any, error) {
		messages, err := h.feedService.List(ctx, taskID)
		if err != nil {
			return nil, err
		}
		return gin.H{"messages": dto.ToChatMessageDTOs(messages)}, nil
	})
}

// serve subscribes to channel and sends a fresh snapshot first and then after
// every event. The subscription is taken before the first read so nothing
// published in between is missed.
func (h *StreamHandler) serve(c *gin.Context, channel, event string, snapshot func(ctx context.Context) (any, error)) {
	ctx := c.Request.Context()

	sub, err := h.broker.Subscribe(ctx, channel)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Live updates are unavailable")
		return
	}
	defer sub.Close()

	initial, err := snapshot(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.prepare(c)
	c.SSEvent(event, initial)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := snapshot(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.ErrorContext(ctx, "failed to reload stream snapshot", "channel", channel, "error", err)
				}
				return
			}
			c.SSEvent(event, data)
		case <-ticker.C:
			c.SSEvent("ping", "")
		}
		c.Writer.Flush()
	}
}

func (h *StreamHandler) prepare(c *gin.Context) {
	rc := http.NewResponseController(c.Writer)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.DebugContext(c.Request.Context(), "write deadline not cleared", "error", err)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}
