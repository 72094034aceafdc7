package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func setupTestBroker(t *testing.T) *RedisBroker {
	t.Helper()

	s := miniredis.RunT(t)
	broker, err := NewRedisBroker("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() {
		broker.Close()
	})
	return broker
}

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()

	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestNewRedisBroker_InvalidURL(t *testing.T) {
	_, err := NewRedisBroker("not a url")
	require.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	broker := setupTestBroker(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, ProfileChannel("user_1"))
	require.NoError(t, err)
	defer sub.Close()

	type payload struct {
		Approved bool `json:"approved"`
	}
	require.NoError(t, broker.Publish(ctx, ProfileChannel("user_1"), KindProfileUpdated, payload{Approved: true}))

	ev := receive(t, sub)
	require.Equal(t, KindProfileUpdated, ev.Kind)
	require.Equal(t, ProfileChannel("user_1"), ev.Channel)

	var got payload
	require.NoError(t, ev.Decode(&got))
	require.True(t, got.Approved)
}

func TestSubscribe_PreservesOrderWithinChannel(t *testing.T) {
	broker := setupTestBroker(t)
	ctx := context.Background()
	channel := TaskChatChannel(10)

	sub, err := broker.Subscribe(ctx, channel)
	require.NoError(t, err)
	defer sub.Close()

	kinds := []string{KindTaskCreated, KindTaskUpdated, KindTaskDeleted}
	for _, kind := range kinds {
		require.NoError(t, broker.Publish(ctx, channel, kind, nil))
	}

	for _, kind := range kinds {
		require.Equal(t, kind, receive(t, sub).Kind)
	}
}

func TestSubscribe_IgnoresOtherChannels(t *testing.T) {
	broker := setupTestBroker(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, WorkspaceTasksChannel(1))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, WorkspaceTasksChannel(2), KindTaskCreated, nil))
	require.NoError(t, broker.Publish(ctx, WorkspaceTasksChannel(1), KindTaskUpdated, nil))

	require.Equal(t, KindTaskUpdated, receive(t, sub).Kind)
}

func TestClose_ClosesEventsChannel(t *testing.T) {
	broker := setupTestBroker(t)

	sub, err := broker.Subscribe(context.Background(), ProfilesChannel())
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed")
	}
}

func TestEventDecode_NoData(t *testing.T) {
	var v map[string]any
	require.Error(t, Event{Kind: KindTaskDeleted}.Decode(&v))
}
