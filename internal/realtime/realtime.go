// Package realtime fans out change notifications to live subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds.
const (
	KindProfileCreated  = "profile.created"
	KindProfileUpdated  = "profile.updated"
	KindMembersChanged  = "workspace.members_changed"
	KindTaskCreated     = "task.created"
	KindTaskUpdated     = "task.updated"
	KindTaskDeleted     = "task.deleted"
	KindTaskOverdue     = "task.overdue"
	KindCommentAdded    = "task.comment_added"
	KindAttachmentAdded = "task.attachment_added"
	KindChatMessage     = "chat.message"
)

const channelPrefix = "mayau:"

// Event is a single change notification. Data holds the JSON form of the
// changed record, if the publisher attached one.
type Event struct {
	Kind    string          `json:"kind"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
	At      time.Time       `json:"at"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.Kind)
	}
	return json.Unmarshal(e.Data, v)
}

type Publisher interface {
	Publish(ctx context.Context, channel, kind string, data any) error
}

// Subscription delivers events for one channel in publish order until Close.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

type Broker interface {
	Publisher
	// Subscribe returns once the subscription is active, so any event
	// published after it returns is delivered.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

func ProfileChannel(identityID string) string {
	return channelPrefix + "profile:" + identityID
}

// ProfilesChannel carries every profile change, for the master's approval queue.
func ProfilesChannel() string {
	return channelPrefix + "profiles"
}

func WorkspaceTasksChannel(workspaceID int64) string {
	return fmt.Sprintf("%sworkspace:%d:tasks", channelPrefix, workspaceID)
}

func TaskChatChannel(taskID int64) string {
	return fmt.Sprintf("%stask:%d:chat", channelPrefix, taskID)
}
