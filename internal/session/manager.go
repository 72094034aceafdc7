// Package session tracks who is signed in and keeps each live session's
// approval state in step with its profile record.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yukikurage/mayau-app/internal/config"
	"github.com/yukikurage/mayau-app/internal/gate"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const masterDisplayName = "Master"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrReservedIdentity   = errors.New("identity id is reserved")
	ErrUnknownIdentity    = errors.New("identity not found")
)

// Principal is a one-shot view of an identity's access, without a live subscription.
type Principal struct {
	Identity models.Identity
	Profile  models.Profile
	State    gate.State
}

// Manager opens sessions. It is safe for concurrent use.
type Manager struct {
	identities repository.IdentityRepository
	profiles   repository.ProfileRepository
	broker     realtime.Broker
	master     config.MasterConfig
}

func NewManager(
	identities repository.IdentityRepository,
	profiles repository.ProfileRepository,
	broker realtime.Broker,
	master config.MasterConfig,
) *Manager {
	return &Manager{
		identities: identities,
		profiles:   profiles,
		broker:     broker,
		master:     master,
	}
}

// SignIn records an identity that the identity provider has just
// authenticated and opens a live session for it.
func (m *Manager) SignIn(ctx context.Context, identity *models.Identity) (*Session, error) {
	if identity.ID == "" || identity.IsMaster() {
		return nil, ErrReservedIdentity
	}

	if err := m.identities.Upsert(ctx, identity); err != nil {
		return nil, fmt.Errorf("upsert identity: %w", err)
	}

	return m.open(ctx, *identity)
}

// SignInMaster checks the master credentials. Nothing is read or written
// unless they match.
func (m *Manager) SignInMaster(ctx context.Context, username, password string) (*Session, error) {
	if !m.checkMaster(username, password) {
		slog.WarnContext(ctx, "master sign-in rejected")
		return nil, ErrInvalidCredentials
	}

	profile, err := m.profiles.UpsertMaster(ctx, masterDisplayName)
	if err != nil {
		return nil, fmt.Errorf("upsert master: %w", err)
	}

	identity, err := m.identities.FindByID(ctx, models.MasterIdentityID)
	if err != nil {
		return nil, fmt.Errorf("load master identity: %w", err)
	}

	return m.openMaster(*identity, profile)
}

// Resume reopens a live session for an identity that already holds a
// session cookie.
func (m *Manager) Resume(ctx context.Context, identityID string) (*Session, error) {
	identity, err := m.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	if identity.IsMaster() {
		profile, err := m.profiles.FindByID(ctx, identity.ID)
		if err != nil {
			return nil, fmt.Errorf("load master profile: %w", err)
		}
		return m.openMaster(*identity, profile)
	}

	return m.open(ctx, *identity)
}

// Lookup resolves an identity's current access without subscribing to changes.
func (m *Manager) Lookup(ctx context.Context, identityID string) (*Principal, error) {
	identity, err := m.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	profile, err := m.profiles.FindByID(ctx, identityID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = models.NewPendingProfile(identityID)
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var ev gate.Event = gate.SignedIn{Profile: profile}
	if identity.IsMaster() && profile.IsMaster() {
		ev = gate.MasterSignedIn{}
	}
	state, err := gate.Next(gate.Unauthenticated, ev)
	if err != nil {
		return nil, err
	}

	return &Principal{
		Identity: *identity,
		Profile:  *profile,
		State:    state,
	}, nil
}

func (m *Manager) checkMaster(username, password string) bool {
	if m.master.PasswordHash == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(m.master.Username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(m.master.PasswordHash), []byte(password)) == nil
}

// open subscribes to the identity's profile channel before reading the
// profile, so an approval written in between is never missed.
func (m *Manager) open(ctx context.Context, identity models.Identity) (*Session, error) {
	sub, err := m.broker.Subscribe(ctx, realtime.ProfileChannel(identity.ID))
	if err != nil {
		return nil, fmt.Errorf("subscribe to profile: %w", err)
	}

	profile, err := m.fetchOrCreateProfile(ctx, identity.ID)
	if err != nil {
		sub.Close()
		return nil, err
	}

	s := newSession(identity, profile, sub)
	if _, _, err := s.machine.Apply(gate.SignedIn{Profile: profile}); err != nil {
		s.SignOut()
		return nil, err
	}

	go s.watch()

	slog.InfoContext(ctx, "session opened",
		"identity_id", identity.ID,
		"state", s.State(),
	)
	return s, nil
}

func (m *Manager) openMaster(identity models.Identity, profile *models.Profile) (*Session, error) {
	if !profile.IsMaster() {
		return nil, ErrReservedIdentity
	}

	s := newSession(identity, profile, nil)
	if _, _, err := s.machine.Apply(gate.MasterSignedIn{}); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) fetchOrCreateProfile(ctx context.Context, identityID string) (*models.Profile, error) {
	profile, err := m.profiles.FindByID(ctx, identityID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	profile = models.NewPendingProfile(identityID)
	if err := m.profiles.Create(ctx, profile); err != nil {
		// A concurrent sign-in of the same identity may have created it first.
		existing, findErr := m.profiles.FindByID(ctx, identityID)
		if findErr != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return existing, nil
	}

	if err := m.broker.Publish(ctx, realtime.ProfilesChannel(), realtime.KindProfileCreated, profile); err != nil {
		slog.WarnContext(ctx, "failed to publish profile creation", "error", err, "identity_id", identityID)
	}

	return profile, nil
}
