package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/mayau-app/internal/config"
	"github.com/yukikurage/mayau-app/internal/constants"
	"github.com/yukikurage/mayau-app/internal/database"
	"github.com/yukikurage/mayau-app/internal/id"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"github.com/yukikurage/mayau-app/internal/services"
	"github.com/yukikurage/mayau-app/internal/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testMasterPassword = "open-sesame"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProvider struct {
	identities map[string]models.Identity
}

func (p stubProvider) AuthorizationURL(state string) (string, error) {
	return "https://auth.example.com/authorize?state=" + state, nil
}

func (p stubProvider) Authenticate(ctx context.Context, code string) (*models.Identity, error) {
	identity, ok := p.identities[code]
	if !ok {
		return nil, services.ErrInvalidCode
	}
	return &identity, nil
}

type fakeStore struct {
	key  string
	body []byte
}

func (f *fakeStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.key = key
	f.body = body
	return "https://files.example.com/" + key, nil
}

type handlerTestEnv struct {
	db               *gorm.DB
	broker           *realtime.RedisBroker
	provider         stubProvider
	store            *fakeStore
	profileRepo      repository.ProfileRepository
	authService      *services.AuthService
	profileService   *services.ProfileService
	workspaceService *services.WorkspaceService
	taskService      *services.TaskService
	feedService      *services.FeedService
}

func setupHandlerTestEnv(t *testing.T) *handlerTestEnv {
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

	hash, err := bcrypt.GenerateFromPassword([]byte(testMasterPassword), bcrypt.MinCost)
	require.NoError(t, err)

	identityRepo := repository.NewIdentityRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	manager := session.NewManager(identityRepo, profileRepo, broker, config.MasterConfig{
		Username:     "master",
		PasswordHash: string(hash),
	})

	provider := stubProvider{identities: map[string]models.Identity{}}
	store := &fakeStore{}

	return &handlerTestEnv{
		db:               db,
		broker:           broker,
		provider:         provider,
		store:            store,
		profileRepo:      profileRepo,
		authService:      services.NewAuthService(provider, manager, identityRepo),
		profileService:   services.NewProfileService(profileRepo, broker),
		workspaceService: services.NewWorkspaceService(workspaceRepo, broker),
		taskService:      services.NewTaskService(taskRepo, workspaceRepo, broker, store, nil),
		feedService:      services.NewFeedService(repository.NewChatRepository(db), broker),
	}
}

// createIdentity stores an identity with a profile in the given approval state.
func (env *handlerTestEnv) createIdentity(t *testing.T, identityID, displayName string, approved bool) {
	t.Helper()

	require.NoError(t, env.db.Create(&models.Identity{ID: identityID, DisplayName: displayName}).Error)
	profile := models.NewPendingProfile(identityID)
	profile.Approved = approved
	require.NoError(t, env.profileRepo.Create(context.Background(), profile))
}

func (env *handlerTestEnv) workspace(t *testing.T, name string) *models.Workspace {
	t.Helper()

	workspace, err := env.workspaceService.Resolve(context.Background(), name)
	require.NoError(t, err)
	return workspace
}

func (env *handlerTestEnv) createTask(t *testing.T, workspaceID int64, title string) *models.Task {
	t.Helper()

	task, err := env.taskService.CreateTask(context.Background(), workspaceID, services.CreateTaskInput{
		Title:     title,
		CreatorID: "alice",
	})
	require.NoError(t, err)
	return task
}

// signedInAs stands in for the session cookie middleware.
func signedInAs(identityID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, identityID)
		c.Next()
	}
}

// newActiveRouter builds a router whose requests come from identityID and
// pass through the approval gate.
func (env *handlerTestEnv) newActiveRouter(identityID string) *gin.Engine {
	r := gin.New()
	r.Use(signedInAs(identityID), middleware.RequireActive(env.authService))
	return r
}

func newCookieRouter() *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	return r
}

func performRequest(r http.Handler, method, url string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, url, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decodeBody(t, w, &body)
	return body
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
