package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/mayau-app/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUpsertMasterIdentity is returned when writing the master identity fails.
	ErrUpsertMasterIdentity = errors.New("profile repository: upsert master identity failed")
	// ErrUpsertMasterProfile is returned when writing the master profile fails.
	ErrUpsertMasterProfile = errors.New("profile repository: upsert master profile failed")
)

// GormProfileRepository is a GORM implementation of ProfileRepository
type GormProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByID finds the profile of an identity
func (r *GormProfileRepository) FindByID(ctx context.Context, identityID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create creates a new profile
func (r *GormProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(profile).Error
}

// Update saves every profile field
func (r *GormProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(profile).Error
}

// UpsertMaster writes the master identity and profile in one transaction.
func (r *GormProfileRepository) UpsertMaster(ctx context.Context, displayName string) (*models.Profile, error) {
	profile := models.NewMasterProfile()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		identity := &models.Identity{
			ID:          models.MasterIdentityID,
			DisplayName: displayName,
		}
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(identity).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUpsertMasterIdentity, err)
		}

		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "identity_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"approved", "role", "updated_at"}),
			}).
			Create(profile).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUpsertMasterProfile, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// List lists profiles with their identities
func (r *GormProfileRepository) List(ctx context.Context, filter ProfileFilter) ([]models.Profile, error) {
	query := r.db.WithContext(ctx).Preload("Identity")
	if filter.Approved != nil {
		query = query.Where("approved = ?", *filter.Approved)
	}

	var profiles []models.Profile
	if err := query.Order("created_at ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
