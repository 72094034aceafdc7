package repository

import (
	"context"

	"github.com/yukikurage/mayau-app/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIdentityRepository is a GORM implementation of IdentityRepository
type GormIdentityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new IdentityRepository
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &GormIdentityRepository{db: db}
}

// Upsert creates the identity or refreshes its email and display name
func (r *GormIdentityRepository) Upsert(ctx context.Context, identity *models.Identity) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "updated_at"}),
		}).
		Create(identity).Error
}

// FindByID finds an identity by ID
func (r *GormIdentityRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

// UpdateDisplayName changes the only mutable identity field
func (r *GormIdentityRepository) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Update("display_name", displayName)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
