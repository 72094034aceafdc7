package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/mayau-app/internal/models"
	"gorm.io/gorm"
)

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&models.Identity{},
		&models.Profile{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.TaskComment{},
		&models.TaskAttachment{},
		&models.ChatMessage{},
	}
}

func Migrate() error {
	return MigrateDatabase(DB)
}

// MigrateDatabase creates or updates the schema and the composite indexes the
// list queries rely on.
func MigrateDatabase(db *gorm.DB) error {
	slog.Info("running database migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}

func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"task_comments", "idx_task_comments_task_created", "task_id, created_at"},
		{"task_attachments", "idx_task_attachments_task_created", "task_id, created_at"},
		{"chat_messages", "idx_chat_messages_task_created", "task_id, created_at"},
		{"tasks", "idx_tasks_workspace_created", "workspace_id, created_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		slog.Debug("created index", "index", idx.name, "table", idx.table)
	}

	return nil
}
