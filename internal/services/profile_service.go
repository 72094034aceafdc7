package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"gorm.io/gorm"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileService is the master's approval queue.
type ProfileService struct {
	profileRepo repository.ProfileRepository
	publisher   realtime.Publisher
}

func NewProfileService(profileRepo repository.ProfileRepository, publisher realtime.Publisher) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		publisher:   publisher,
	}
}

// ListProfiles lists profiles with their identities, optionally filtered by approval.
func (s *ProfileService) ListProfiles(ctx context.Context, approved *bool) ([]models.Profile, error) {
	profiles, err := s.profileRepo.List(ctx, repository.ProfileFilter{Approved: approved})
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// Approve flips a profile to approved and notifies the identity's live
// sessions. Approving an approved profile changes nothing.
func (s *ProfileService) Approve(ctx context.Context, approverID, identityID string) (*models.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	if profile.Approved {
		return profile, nil
	}

	now := time.Now()
	profile.Approved = true
	profile.ApprovedBy = &approverID
	profile.ApprovedAt = &now

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to approve profile: %w", err)
	}

	publish(ctx, s.publisher, realtime.ProfileChannel(identityID), realtime.KindProfileUpdated, profile)
	publish(ctx, s.publisher, realtime.ProfilesChannel(), realtime.KindProfileUpdated, profile)

	slog.InfoContext(ctx, "profile approved", "identity_id", identityID, "approved_by", approverID)
	return profile, nil
}
