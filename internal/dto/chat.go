package dto

import (
	"time"

	"github.com/yukikurage/mayau-app/internal/models"
)

// ChatMessageDTO represents a chat message in API responses
type ChatMessageDTO struct {
	ID         int64     `json:"id,string"`
	TaskID     int64     `json:"task_id,string"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToChatMessageDTO(message models.ChatMessage) ChatMessageDTO {
	return ChatMessageDTO{
		ID:         message.ID,
		TaskID:     message.TaskID,
		AuthorID:   message.AuthorID,
		AuthorName: message.AuthorName,
		Text:       message.Text,
		CreatedAt:  message.CreatedAt,
	}
}

func ToChatMessageDTOs(messages []models.ChatMessage) []ChatMessageDTO {
	items := make([]ChatMessageDTO, len(messages))
	for i, message := range messages {
		items[i] = ToChatMessageDTO(message)
	}
	return items
}
