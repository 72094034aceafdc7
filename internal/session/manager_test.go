package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/mayau-app/internal/config"
	"github.com/yukikurage/mayau-app/internal/database"
	"github.com/yukikurage/mayau-app/internal/gate"
	"github.com/yukikurage/mayau-app/internal/id"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type sessionTestEnv struct {
	db       *gorm.DB
	broker   *realtime.RedisBroker
	profiles repository.ProfileRepository
	manager  *Manager
}

func setupSessionTestEnv(t *testing.T) sessionTestEnv {
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

	s := miniredis.RunT(t)
	broker, err := realtime.NewRedisBroker("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() {
		broker.Close()
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	profiles := repository.NewProfileRepository(db)
	manager := NewManager(
		repository.NewIdentityRepository(db),
		profiles,
		broker,
		config.MasterConfig{Username: "master", PasswordHash: string(hash)},
	)

	return sessionTestEnv{
		db:       db,
		broker:   broker,
		profiles: profiles,
		manager:  manager,
	}
}

func waitForState(t *testing.T, s *Session) gate.State {
	t.Helper()

	select {
	case state, ok := <-s.Updates():
		require.True(t, ok, "updates closed unexpectedly")
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state change")
	}
	return ""
}

func TestSignIn_NewIdentityIsPending(t *testing.T) {
	env := setupSessionTestEnv(t)
	ctx := context.Background()

	s, err := env.manager.SignIn(ctx, &models.Identity{ID: "google_1", Email: "a@example.com", DisplayName: "Aki"})
	require.NoError(t, err)
	defer s.SignOut()

	assert.Equal(t, gate.PendingApproval, s.State())

	profile, err := env.profiles.FindByID(ctx, "google_1")
	require.NoError(t, err)
	assert.False(t, profile.Approved)
	assert.Equal(t, models.RoleUser, profile.Role)
}

func TestSignIn_ApprovalUnlocksWithoutReSignIn(t *testing.T) {
	env := setupSessionTestEnv(t)
	ctx := context.Background()

	s, err := env.manager.SignIn(ctx, &models.Identity{ID: "google_1", DisplayName: "Aki"})
	require.NoError(t, err)
	defer s.SignOut()
	require.Equal(t, gate.PendingApproval, s.State())

	profile, err := env.profiles.FindByID(ctx, "google_1")
	require.NoError(t, err)
	profile.Approved = true
	require.NoError(t, env.profiles.Update(ctx, profile))
	require.NoError(t, env.broker.Publish(ctx, realtime.ProfileChannel("google_1"), realtime.KindProfileUpdated, profile))

	assert.Equal(t, gate.Active, waitForState(t, s))
	assert.Equal(t, gate.Active, s.State())
	assert.True(t, s.Profile().Approved)
}

func TestSignIn_ApprovedProfileIsActive(t *testing.T) {
	env := setupSessionTestEnv(t)
	ctx := context.Background()

	profile := models.NewPendingProfile("google_2")
	profile.Approved = true
	require.NoError(t, env.profiles.Create(ctx, profile))

	s, err := env.manager.SignIn(ctx, &models.Identity{ID: "google_2", DisplayName: "Ren"})
	require.NoError(t, err)
	defer s.SignOut()

	assert.Equal(t, gate.Active, s.State())
}

func TestSignIn_RejectsReservedID(t *testing.T) {
	env := setupSessionTestEnv(t)

	_, err := env.manager.SignIn(context.Background(), &models.Identity{ID: models.MasterIdentityID})
	require.ErrorIs(t, err, ErrReservedIdentity)
}

func TestSignInMaster_InvalidCredentialsWriteNothing(t *testing.T) {
	env := setupSessionTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "master", "guess"},
		{"wrong username", "admin", "open-sesame"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.manager.SignInMaster(ctx, tc.username, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	var identities, profiles int64
	require.NoError(t, env.db.Model(&models.Identity{}).Count(&identities).Error)
	require.NoError(t, env.db.Model(&models.Profile{}).Count(&profiles).Error)
	assert.Zero(t, identities)
	assert.Zero(t, profiles)
}

func TestSignInMaster_Idempotent(t *testing.T) {
	env := setupSessionTestEnv(t)
	ctx := context.Background()

	for range 2 {
		s, err := env.manager.SignInMaster(ctx, "master", "open-sesame")
		require.NoError(t, err)
		assert.Equal(t, gate.MasterActive, s.State())
		s.SignOut()
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Profile{}).Where("role = ?", models.RoleMaster).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSignOut_ClosesUpdates(t *testing.T) {
	env := setupSessionTestEnv(t)

	s, err := env.manager.SignIn(context.Background(), &models.Identity{ID: "google_1", DisplayName: "Aki"})
	require.NoError(t, err)

	s.SignOut()
	s.SignOut()

	assert.Equal(t, gate.Unauthenticated, s.State())
	assert.Equal(t, gate.Unauthenticated, waitForState(t, s))

	_, ok := <-s.Updates()
	assert.False(t, ok)
}

func TestResume_MasterStaysMaster(t *testing.T) {
	env := setupSessionTestEnv(t)
	ctx := context.Background()

	first, err := env.manager.SignInMaster(ctx, "master", "open-sesame")
	require.NoError(t, err)
	first.SignOut()

	s, err := env.manager.Resume(ctx, models.MasterIdentityID)
	require.NoError(t, err)
	defer s.SignOut()
	assert.Equal(t, gate.MasterActive, s.State())
}

func TestResume_UnknownIdentity(t *testing.T) {
	env := setupSessionTestEnv(t)

	_, err := env.manager.Resume(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrUnknownIdentity)
}

func TestLookup(t *testing.T) {
	env := setupSessionTestEnv(t)
	ctx := context.Background()

	s, err := env.manager.SignIn(ctx, &models.Identity{ID: "google_1", DisplayName: "Aki"})
	require.NoError(t, err)
	s.SignOut()

	principal, err := env.manager.Lookup(ctx, "google_1")
	require.NoError(t, err)
	assert.Equal(t, gate.PendingApproval, principal.State)
	assert.Equal(t, "Aki", principal.Identity.DisplayName)
}
