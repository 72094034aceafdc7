package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/mayau-app/internal/database"
	"github.com/yukikurage/mayau-app/internal/id"
	"github.com/yukikurage/mayau-app/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var errBoom = errors.New("boom")

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func newSQLiteDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestProfileRepository_FindByID_PropagatesDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `profiles`").WillReturnError(errBoom)

	_, err := repo.FindByID(context.Background(), "user_1")
	require.ErrorIs(t, err, errBoom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkspaceRepository_ReplaceMembers_RollsBackOnInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkspaceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `workspace_members`").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO `workspace_members`").WillReturnError(errBoom)
	mock.ExpectRollback()

	err := repo.ReplaceMembers(context.Background(), 1, []string{"a", "b"})
	require.ErrorIs(t, err, errBoom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_UpsertMaster_Idempotent(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	for range 2 {
		profile, err := repo.UpsertMaster(ctx, "Master")
		require.NoError(t, err)
		require.True(t, profile.Approved)
		require.Equal(t, models.RoleMaster, profile.Role)
	}

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestProfileRepository_RejectsMasterRoleForRegularIdentity(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewProfileRepository(db)

	profile := models.NewPendingProfile("user_1")
	profile.Role = models.RoleMaster

	err := repo.Create(context.Background(), profile)
	require.ErrorIs(t, err, models.ErrInvalidField)
}

func TestTaskRepository_DeleteKeepsChatMessages(t *testing.T) {
	db := newSQLiteDB(t)
	tasks := NewTaskRepository(db)
	chat := NewChatRepository(db)
	ctx := context.Background()

	task := &models.Task{
		WorkspaceID: 1,
		CreatorID:   "user_1",
		Title:       "Ship it",
		Status:      models.TaskStatusPending,
		Priority:    models.TaskPriorityMedium,
		Assignees:   []models.TaskAssignee{{IdentityID: "user_1"}},
	}
	require.NoError(t, tasks.Create(ctx, task))
	require.NoError(t, tasks.AppendComment(ctx, &models.TaskComment{TaskID: task.ID, AuthorID: "user_1", Text: "first"}))
	require.NoError(t, tasks.AppendAttachment(ctx, &models.TaskAttachment{TaskID: task.ID, UploaderID: "user_1", Name: "a.txt", URL: "https://files.example.com/a.txt"}))
	require.NoError(t, chat.Append(ctx, &models.ChatMessage{TaskID: task.ID, AuthorID: "user_1", Text: "hi"}))

	attachments, err := tasks.ListAttachments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)

	require.NoError(t, tasks.Delete(ctx, task.ID))

	_, err = tasks.FindByID(ctx, task.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	attachments, err = tasks.ListAttachments(ctx, task.ID)
	require.NoError(t, err)
	require.Empty(t, attachments)

	comments, err := tasks.ListComments(ctx, task.ID)
	require.NoError(t, err)
	require.Empty(t, comments)

	messages, err := chat.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	require.ErrorIs(t, tasks.Delete(ctx, task.ID), gorm.ErrRecordNotFound)
}

func TestTaskRepository_ListOverdue(t *testing.T) {
	db := newSQLiteDB(t)
	tasks := NewTaskRepository(db)
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := &models.Task{WorkspaceID: 1, CreatorID: "u", Title: "late", Deadline: &past, Status: models.TaskStatusPending, Priority: models.TaskPriorityLow}
	done := &models.Task{WorkspaceID: 1, CreatorID: "u", Title: "done", Deadline: &past, Status: models.TaskStatusCompleted, Priority: models.TaskPriorityLow}
	later := &models.Task{WorkspaceID: 1, CreatorID: "u", Title: "later", Deadline: &future, Status: models.TaskStatusPending, Priority: models.TaskPriorityLow}
	for _, task := range []*models.Task{overdue, done, later} {
		require.NoError(t, tasks.Create(ctx, task))
	}

	got, err := tasks.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, overdue.ID, got[0].ID)
}
