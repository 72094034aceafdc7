package services

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/mayau-app/internal/database"
	"github.com/yukikurage/mayau-app/internal/id"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db            *gorm.DB
	broker        *realtime.RedisBroker
	identityRepo  repository.IdentityRepository
	profileRepo   repository.ProfileRepository
	workspaceRepo repository.WorkspaceRepository
	taskRepo      repository.TaskRepository
	chatRepo      repository.ChatRepository
}

func setupServiceTestEnv(t *testing.T) serviceTestEnv {
	t.Helper()
	require.NoError(t, id.Init(1))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateDatabase(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	s := miniredis.RunT(t)
	broker, err := realtime.NewRedisBroker("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() {
		broker.Close()
	})

	return serviceTestEnv{
		db:            db,
		broker:        broker,
		identityRepo:  repository.NewIdentityRepository(db),
		profileRepo:   repository.NewProfileRepository(db),
		workspaceRepo: repository.NewWorkspaceRepository(db),
		taskRepo:      repository.NewTaskRepository(db),
		chatRepo:      repository.NewChatRepository(db),
	}
}

func (env serviceTestEnv) workspaceService() *WorkspaceService {
	return NewWorkspaceService(env.workspaceRepo, env.broker)
}

func (env serviceTestEnv) taskService(store *fakeObjectStore, drafter TaskDrafter) *TaskService {
	if store == nil {
		return NewTaskService(env.taskRepo, env.workspaceRepo, env.broker, nil, drafter)
	}
	return NewTaskService(env.taskRepo, env.workspaceRepo, env.broker, store, drafter)
}

func (env serviceTestEnv) subscribe(t *testing.T, channel string) realtime.Subscription {
	t.Helper()

	sub, err := env.broker.Subscribe(context.Background(), channel)
	require.NoError(t, err)
	t.Cleanup(func() {
		sub.Close()
	})
	return sub
}

func receiveEvent(t *testing.T, sub realtime.Subscription) realtime.Event {
	t.Helper()

	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return realtime.Event{}
}

type fakeObjectStore struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	f.key = key
	f.contentType = contentType
	f.body = buf.Bytes()
	return "https://files.example.com/mayau-attachments/" + key, nil
}

type fakeDrafter struct {
	drafts []TaskDraft
	err    error
}

func (f fakeDrafter) DraftTasks(ctx context.Context, text string) ([]TaskDraft, error) {
	return f.drafts, f.err
}

func mustResolve(t *testing.T, env serviceTestEnv, name string) *models.Workspace {
	t.Helper()

	workspace, err := env.workspaceService().Resolve(context.Background(), name)
	require.NoError(t, err)
	return workspace
}
