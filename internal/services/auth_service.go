package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/repository"
	"github.com/yukikurage/mayau-app/internal/session"
	"gorm.io/gorm"
)

var (
	ErrProviderNotConfigured = errors.New("identity provider is not configured")
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrDisplayNameRequired   = fmt.Errorf("%w: display name is required", ErrInvalidInput)
)

const maxDisplayNameLength = 255

// AuthService handles sign-in and the signed-in identity's own record.
type AuthService struct {
	provider     IdentityProvider
	sessions     *session.Manager
	identityRepo repository.IdentityRepository
}

// NewAuthService creates a new AuthService. provider may be nil when Google
// sign-in is not configured; master sign-in still works.
func NewAuthService(provider IdentityProvider, sessions *session.Manager, identityRepo repository.IdentityRepository) *AuthService {
	return &AuthService{
		provider:     provider,
		sessions:     sessions,
		identityRepo: identityRepo,
	}
}

// AuthorizationURL returns the provider URL that starts sign-in.
func (s *AuthService) AuthorizationURL(state string) (string, error) {
	if s.provider == nil {
		return "", ErrProviderNotConfigured
	}
	return s.provider.AuthorizationURL(state)
}

// CompleteSignIn exchanges the provider callback code for an identity and
// opens its session.
func (s *AuthService) CompleteSignIn(ctx context.Context, code string) (*session.Session, error) {
	if s.provider == nil {
		return nil, ErrProviderNotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidCode
	}

	identity, err := s.provider.Authenticate(ctx, code)
	if err != nil {
		return nil, err
	}

	return s.sessions.SignIn(ctx, identity)
}

// SignInMaster verifies the master credentials and opens the master session.
func (s *AuthService) SignInMaster(ctx context.Context, username, password string) (*session.Session, error) {
	return s.sessions.SignInMaster(ctx, username, password)
}

// Resume reopens a live session for the signed-in identity.
func (s *AuthService) Resume(ctx context.Context, identityID string) (*session.Session, error) {
	sess, err := s.sessions.Resume(ctx, identityID)
	if errors.Is(err, session.ErrUnknownIdentity) {
		return nil, ErrIdentityNotFound
	}
	return sess, err
}

// Current returns the identity, profile and gate state for a signed-in identity.
func (s *AuthService) Current(ctx context.Context, identityID string) (*session.Principal, error) {
	principal, err := s.sessions.Lookup(ctx, identityID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownIdentity) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}
	return principal, nil
}

// UpdateDisplayName changes the caller's display name. Pending identities
// may do this; it is their own record.
func (s *AuthService) UpdateDisplayName(ctx context.Context, identityID, displayName string) (*models.Identity, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrDisplayNameRequired
	}
	if len([]rune(displayName)) > maxDisplayNameLength {
		return nil, invalidf("display name must be at most %d characters", maxDisplayNameLength)
	}

	if err := s.identityRepo.UpdateDisplayName(ctx, identityID, displayName); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to update display name: %w", err)
	}

	identity, err := s.identityRepo.FindByID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	return identity, nil
}
