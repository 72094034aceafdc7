package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/mayau-app/internal/models"
)

func newTestAIService(t *testing.T, content string) *AIService {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			},
		})
	}))
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return NewAIServiceWithClient(openai.NewClientWithConfig(cfg), "")
}

func TestAIService_DraftTasks(t *testing.T) {
	svc := newTestAIService(t, "```json\n[{\"title\":\"Order banners\",\"description\":\"for the fair\",\"deadline\":\"2030-05-01T09:00:00Z\",\"priority\":\"high\"}]\n```")

	drafts, err := svc.DraftTasks(context.Background(), "order banners for the fair by May")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Order banners", drafts[0].Title)
	assert.Equal(t, models.TaskPriorityHigh, drafts[0].Priority)
	require.NotNil(t, drafts[0].Deadline)
	assert.Equal(t, 2030, drafts[0].Deadline.Year())
}

func TestAIService_DraftTasksRejectsProse(t *testing.T) {
	svc := newTestAIService(t, "Sure! Here are your tasks.")

	_, err := svc.DraftTasks(context.Background(), "anything")
	require.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "[]", stripCodeFence("```json\n[]\n```"))
	assert.Equal(t, "[]", stripCodeFence("  []  "))
}
