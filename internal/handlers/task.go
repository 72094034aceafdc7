package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/constants"
	"github.com/yukikurage/mayau-app/internal/dto"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/services"
)

// multipart framing allowance on top of the file itself
const uploadOverhead = 1 << 20

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns a workspace's tasks, filtered by ?status=
func (h *TaskHandler) ListTasks(c *gin.Context) {
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

	tasks, err := h.taskService.ListTasks(c.Request.Context(), workspace.ID, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, status))
}

// GetTask returns a specific task by ID
// Task is already loaded with relations by RequireTask middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task))
}

// CreateTask creates a new task in the workspace
func (h *TaskHandler) CreateTask(c *gin.Context) {
	workspace, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not found in context")
		return
	}
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description string              `json:"description"`
		Deadline    *time.Time          `json:"deadline"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		Progress    *int                `json:"progress"`
		AssigneeIDs []string            `json:"assignee_ids"`
	}

	var req CreateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), workspace.ID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Status:      req.Status,
		Priority:    req.Priority,
		Progress:    req.Progress,
		AssigneeIDs: req.AssigneeIDs,
		CreatorID:   principal.Identity.ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GenerateTasks asks the AI for task drafts from free text. The drafts are
// returned for review; nothing is created.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	drafts, err := h.taskService.GenerateDrafts(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskDraftsResponse{Drafts: drafts})
}

// UpdateTask merges the fields present in the body into the task.
// "deadline": null clears the deadline.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateTaskRequest struct {
		Title       *string                 `json:"title"`
		Description *string                 `json:"description"`
		Deadline    dto.Nullable[time.Time] `json:"deadline"`
		Status      *models.TaskStatus      `json:"status"`
		Priority    *models.TaskPriority    `json:"priority"`
		Progress    *int                    `json:"progress"`
		AssigneeIDs *[]string               `json:"assignee_ids"`
	}

	var req UpdateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), task.ID, services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Deadline:      req.Deadline.Value,
		ClearDeadline: req.Deadline.Set && req.Deadline.Value == nil,
		Status:        req.Status,
		Priority:      req.Priority,
		Progress:      req.Progress,
		AssigneeIDs:   req.AssigneeIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task with its comments and attachments. The caller
// must pass ?confirm=true. Chat messages are kept.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	if c.Query("confirm") != "true" {
		apierrors.BadRequest(c, "Deleting a task requires confirm=true")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), task.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// ToggleAssignee assigns or unassigns an identity. Without identity_id the
// caller is toggled.
func (h *TaskHandler) ToggleAssignee(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type ToggleAssigneeRequest struct {
		IdentityID string `json:"identity_id"`
	}

	var req ToggleAssigneeRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	if req.IdentityID == "" {
		req.IdentityID = principal.Identity.ID
	}

	updated, err := h.taskService.ToggleAssignee(c.Request.Context(), task.ID, req.IdentityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// AddComment appends a comment to the task
func (h *TaskHandler) AddComment(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type AddCommentRequest struct {
		Text string `json:"text"`
	}

	var req AddCommentRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.taskService.AppendComment(c.Request.Context(), task.ID, principal.Identity.ID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// AddAttachment records a link attachment
func (h *TaskHandler) AddAttachment(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type AddAttachmentRequest struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	var req AddAttachmentRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	attachment, err := h.taskService.AppendAttachment(c.Request.Context(), task.ID, principal.Identity.ID, req.Name, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAttachmentDTO(*attachment))
}

// UploadAttachment stores the multipart "file" field and attaches it
func (h *TaskHandler) UploadAttachment(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxAttachmentBytes+uploadOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, services.ErrAttachmentTooLarge)
			return
		}
		apierrors.BadRequest(c, "A file is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		apierrors.InternalError(c, "Failed to read upload")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment, err := h.taskService.UploadAttachment(c.Request.Context(), services.UploadAttachmentInput{
		TaskID:      task.ID,
		UploaderID:  principal.Identity.ID,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAttachmentDTO(*attachment))
}
