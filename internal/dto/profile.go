package dto

import (
	"time"

	"github.com/yukikurage/mayau-app/internal/gate"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/session"
)

// IdentityDTO represents an identity in API responses
type IdentityDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name"`
}

// ProfileDTO represents a profile in API responses
type ProfileDTO struct {
	IdentityID string             `json:"identity_id"`
	Approved   bool               `json:"approved"`
	Role       models.ProfileRole `json:"role"`
	ApprovedBy *string            `json:"approved_by,omitempty"`
	ApprovedAt *time.Time         `json:"approved_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	Identity   *IdentityDTO       `json:"identity,omitempty"`
}

// SessionDTO is the signed-in identity with its resolved gate state
type SessionDTO struct {
	Identity IdentityDTO `json:"identity"`
	Profile  ProfileDTO  `json:"profile"`
	State    gate.State  `json:"state"`
}

// SessionStateDTO is one frame of the session state stream
type SessionStateDTO struct {
	State gate.State `json:"state"`
}

func ToIdentityDTO(identity models.Identity) IdentityDTO {
	return IdentityDTO{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
	}
}

func ToProfileDTO(profile models.Profile) ProfileDTO {
	dto := ProfileDTO{
		IdentityID: profile.IdentityID,
		Approved:   profile.Approved,
		Role:       profile.Role,
		ApprovedBy: profile.ApprovedBy,
		ApprovedAt: profile.ApprovedAt,
		CreatedAt:  profile.CreatedAt,
	}

	// Include identity if preloaded
	if profile.Identity != nil {
		identity := ToIdentityDTO(*profile.Identity)
		dto.Identity = &identity
	}

	return dto
}

func ToProfileDTOs(profiles []models.Profile) []ProfileDTO {
	items := make([]ProfileDTO, len(profiles))
	for i, profile := range profiles {
		items[i] = ToProfileDTO(profile)
	}
	return items
}

func ToSessionDTO(principal session.Principal) SessionDTO {
	return SessionDTO{
		Identity: ToIdentityDTO(principal.Identity),
		Profile:  ToProfileDTO(principal.Profile),
		State:    principal.State,
	}
}

// FromSession snapshots a live session
func FromSession(s *session.Session) SessionDTO {
	return ToSessionDTO(session.Principal{
		Identity: s.Identity(),
		Profile:  s.Profile(),
		State:    s.State(),
	})
}
