package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/workos/workos-go/v6/pkg/usermanagement"
	"github.com/yukikurage/mayau-app/internal/config"
	"github.com/yukikurage/mayau-app/internal/models"
)

var ErrInvalidCode = errors.New("invalid authorization code")

// IdentityProvider runs the external OAuth sign-in.
type IdentityProvider interface {
	AuthorizationURL(state string) (string, error)
	Authenticate(ctx context.Context, code string) (*models.Identity, error)
}

// WorkOSProvider signs users in through WorkOS User Management, with Google
// as the configured provider.
type WorkOSProvider struct {
	cfg config.WorkOSConfig
}

func NewWorkOSProvider(cfg config.WorkOSConfig) *WorkOSProvider {
	usermanagement.SetAPIKey(cfg.APIKey)
	return &WorkOSProvider{cfg: cfg}
}

func (p *WorkOSProvider) AuthorizationURL(state string) (string, error) {
	url, err := usermanagement.GetAuthorizationURL(usermanagement.GetAuthorizationURLOpts{
		ClientID:    p.cfg.ClientID,
		RedirectURI: p.cfg.RedirectURI,
		State:       state,
		Provider:    p.cfg.Provider,
	})
	if err != nil {
		return "", fmt.Errorf("generating authorization URL: %w", err)
	}
	return url.String(), nil
}

func (p *WorkOSProvider) Authenticate(ctx context.Context, code string) (*models.Identity, error) {
	resp, err := usermanagement.AuthenticateWithCode(ctx, usermanagement.AuthenticateWithCodeOpts{
		ClientID: p.cfg.ClientID,
		Code:     code,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to authenticate with code", "error", err)
		return nil, ErrInvalidCode
	}

	return &models.Identity{
		ID:          resp.User.ID,
		Email:       resp.User.Email,
		DisplayName: buildDisplayName(resp.User),
	}, nil
}

func buildDisplayName(user usermanagement.User) string {
	if user.FirstName != "" && user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	if user.LastName != "" {
		return user.LastName
	}
	return user.Email
}
