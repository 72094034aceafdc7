package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/dto"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/services"
)

// FeedHandler serves a task's chat. Messages are keyed by task id alone, so
// the routes stay readable after the task is deleted.
type FeedHandler struct {
	feedService *services.FeedService
}

func NewFeedHandler(feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// ListMessages returns the task's chat, oldest first
func (h *FeedHandler) ListMessages(c *gin.Context) {
	taskID, ok := middleware.ParseTaskID(c)
	if !ok {
		return
	}

	messages, err := h.feedService.List(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": dto.ToChatMessageDTOs(messages),
	})
}

// SendMessage posts a chat message as the caller
func (h *FeedHandler) SendMessage(c *gin.Context) {
	taskID, ok := middleware.ParseTaskID(c)
	if !ok {
		return
	}

	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SendMessageRequest struct {
		Text string `json:"text"`
	}

	var req SendMessageRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := h.feedService.Send(c.Request.Context(), taskID, principal.Identity, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChatMessageDTO(*message))
}
