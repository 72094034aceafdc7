package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/mayau-app/internal/config"
	"github.com/yukikurage/mayau-app/internal/models"
)

// TaskDrafter turns free text into task drafts.
type TaskDrafter interface {
	DraftTasks(ctx context.Context, text string) ([]TaskDraft, error)
}

type AIService struct {
	client *openai.Client
	model  string
}

// TaskDraft is a task suggested from free text. Nothing is stored until the
// caller creates it.
type TaskDraft struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Deadline    *time.Time          `json:"deadline"`
	Priority    models.TaskPriority `json:"priority"`
}

func NewAIService(cfg config.OpenAIConfig) *AIService {
	return NewAIServiceWithClient(openai.NewClient(cfg.APIKey), cfg.Model)
}

func NewAIServiceWithClient(client *openai.Client, model string) *AIService {
	if model == "" {
		model = openai.GPT4o
	}
	return &AIService{
		client: client,
		model:  model,
	}
}

// DraftTasks asks the model to extract tasks from text.
func (s *AIService) DraftTasks(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := time.Now().Format(time.RFC3339)
	prompt := fmt.Sprintf(`You extract concrete work items for a project team from the text below.

Current time: %s

Text:
%s

Reply with a JSON array of tasks in this shape:
[
  {
    "title": "short task title",
    "description": "details of the task",
    "deadline": "RFC3339 timestamp, e.g. 2025-10-28T23:59:59Z, or null when no deadline is stated",
    "priority": "low, medium or high"
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative dates such as "tomorrow" or "next week" into timestamps
- Return only the JSON, with no explanation`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return drafts, nil
}

// stripCodeFence removes a surrounding ```json fence that models sometimes add.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimPrefix(content, "json")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
