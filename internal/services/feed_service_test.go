package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
)

func TestFeedService_SendRejectsBlankText(t *testing.T) {
	env := setupServiceTestEnv(t)
	feed := NewFeedService(env.chatRepo, env.broker)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := feed.Send(context.Background(), 1, models.Identity{ID: "u1"}, text)
		require.ErrorIs(t, err, ErrEmptyMessage)
		assert.True(t, IsValidationError(err))
	}

	var count int64
	require.NoError(t, env.db.Model(&models.ChatMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFeedService_SendStoresAuthorNameAndPublishes(t *testing.T) {
	env := setupServiceTestEnv(t)
	feed := NewFeedService(env.chatRepo, env.broker)
	ctx := context.Background()
	sub := env.subscribe(t, realtime.TaskChatChannel(7))

	message, err := feed.Send(ctx, 7, models.Identity{ID: "u1", DisplayName: "Aki"}, "  hi team  ")
	require.NoError(t, err)
	assert.Equal(t, "hi team", message.Text)
	assert.Equal(t, "Aki", message.AuthorName)

	ev := receiveEvent(t, sub)
	assert.Equal(t, realtime.KindChatMessage, ev.Kind)

	var got models.ChatMessage
	require.NoError(t, ev.Decode(&got))
	assert.Equal(t, message.ID, got.ID)
}

func TestFeedService_ListIsScopedAndOrdered(t *testing.T) {
	env := setupServiceTestEnv(t)
	feed := NewFeedService(env.chatRepo, env.broker)
	ctx := context.Background()
	author := models.Identity{ID: "u1", DisplayName: "Aki"}

	for _, text := range []string{"one", "two", "three"} {
		_, err := feed.Send(ctx, 1, author, text)
		require.NoError(t, err)
	}
	_, err := feed.Send(ctx, 2, author, "elsewhere")
	require.NoError(t, err)

	messages, err := feed.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Text)
	assert.Equal(t, "three", messages[2].Text)
}

func TestSortMessages_ZeroTimestampSortsAsEpoch(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	messages := []models.ChatMessage{
		{ID: 1, CreatedAt: base.Add(time.Minute)},
		{ID: 2},
		{ID: 3, CreatedAt: base},
		{ID: 4, CreatedAt: time.Unix(-10, 0)},
	}

	SortMessages(messages)

	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	assert.Equal(t, []int64{4, 2, 3, 1}, ids)
}
