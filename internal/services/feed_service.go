package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
)

var ErrEmptyMessage = fmt.Errorf("%w: message is empty", ErrInvalidInput)

// FeedService posts and lists per-task chat messages.
type FeedService struct {
	chatRepo  repository.ChatRepository
	publisher realtime.Publisher
}

func NewFeedService(chatRepo repository.ChatRepository, publisher realtime.Publisher) *FeedService {
	return &FeedService{
		chatRepo:  chatRepo,
		publisher: publisher,
	}
}

// Send appends a chat message to a task. The task is referenced by id only,
// so messages can be posted and read regardless of the task's lifecycle.
func (s *FeedService) Send(ctx context.Context, taskID int64, author models.Identity, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if author.ID == "" {
		return nil, errors.New("chat author is required")
	}

	message := &models.ChatMessage{
		TaskID:     taskID,
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
		Text:       text,
	}
	if err := s.chatRepo.Append(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	publish(ctx, s.publisher, realtime.TaskChatChannel(taskID), realtime.KindChatMessage, message)
	return message, nil
}

// List returns a task's messages, oldest first, including messages whose
// task has since been deleted.
func (s *FeedService) List(ctx context.Context, taskID int64) ([]models.ChatMessage, error) {
	messages, err := s.chatRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	SortMessages(messages)
	return messages, nil
}

// SortMessages orders messages by timestamp ascending. A zero timestamp
// sorts as the Unix epoch.
func SortMessages(messages []models.ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return sortTime(messages[i].CreatedAt).Before(sortTime(messages[j].CreatedAt))
	})
}

func sortTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0)
	}
	return t
}
