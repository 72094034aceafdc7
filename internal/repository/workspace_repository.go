package repository

import (
	"context"

	"github.com/yukikurage/mayau-app/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

// Create creates a new workspace
func (r *GormWorkspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(workspace).Error
}

// FindByID finds a workspace by ID with its members
func (r *GormWorkspaceRepository) FindByID(ctx context.Context, id int64) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// FindByName finds the earliest workspace with the given name. Duplicates
// from concurrent first access are possible; the oldest one wins.
func (r *GormWorkspaceRepository) FindByName(ctx context.Context, name string) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Where("name = ?", name).
		Order("created_at ASC, id ASC").
		First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// ReplaceMembers replaces the full member set in one transaction
func (r *GormWorkspaceRepository) ReplaceMembers(ctx context.Context, workspaceID int64, identityIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}

		if len(identityIDs) == 0 {
			return nil
		}

		members := make([]models.WorkspaceMember, len(identityIDs))
		for i, identityID := range identityIDs {
			members[i] = models.WorkspaceMember{
				WorkspaceID: workspaceID,
				IdentityID:  identityID,
			}
		}
		return tx.Create(&members).Error
	})
}
