package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/mayau-app/internal/config"
	"github.com/yukikurage/mayau-app/internal/constants"
	"github.com/yukikurage/mayau-app/internal/database"
	"github.com/yukikurage/mayau-app/internal/handlers"
	"github.com/yukikurage/mayau-app/internal/id"
	"github.com/yukikurage/mayau-app/internal/logger"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/realtime"
	"github.com/yukikurage/mayau-app/internal/repository"
	"github.com/yukikurage/mayau-app/internal/services"
	"github.com/yukikurage/mayau-app/internal/session"
	"github.com/yukikurage/mayau-app/internal/storage"
	"github.com/yukikurage/mayau-app/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type app struct {
	auth       *handlers.AuthHandler
	profiles   *handlers.ProfileHandler
	workspaces *handlers.WorkspaceHandler
	tasks      *handlers.TaskHandler
	feed       *handlers.FeedHandler
	streams    *handlers.StreamHandler

	authService      *services.AuthService
	workspaceService *services.WorkspaceService
	taskService      *services.TaskService
}

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses the OTel log provider when enabled)
	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	slog.InfoContext(ctx, "mayau starting", "env", cfg.Env, "otel", cfg.OTel.Enabled())

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		slog.ErrorContext(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}
	db := database.GetDB()

	broker, err := realtime.NewRedisBroker(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	identityRepo := repository.NewIdentityRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	chatRepo := repository.NewChatRepository(db)

	var provider services.IdentityProvider
	if cfg.WorkOS.Enabled() {
		provider = services.NewWorkOSProvider(cfg.WorkOS)
	} else {
		slog.WarnContext(ctx, "WorkOS is not configured; Google sign-in is disabled")
	}

	var store storage.ObjectStore
	if cfg.Storage.Enabled() {
		minioStore, err := storage.NewMinioStore(cfg.Storage)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create object storage client", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to prepare attachment bucket", "error", err)
			os.Exit(1)
		}
		store = minioStore
	} else {
		slog.WarnContext(ctx, "object storage is not configured; uploads are disabled")
	}

	// Initialize AI service
	var drafter services.TaskDrafter
	if cfg.OpenAI.APIKey != "" {
		drafter = services.NewAIService(cfg.OpenAI)
	}

	if cfg.Master.PasswordHash == "" {
		slog.WarnContext(ctx, "MASTER_PASSWORD_HASH is empty; master sign-in is disabled")
	}

	manager := session.NewManager(identityRepo, profileRepo, broker, cfg.Master)
	authService := services.NewAuthService(provider, manager, identityRepo)
	profileService := services.NewProfileService(profileRepo, broker)
	workspaceService := services.NewWorkspaceService(workspaceRepo, broker)
	taskService := services.NewTaskService(taskRepo, workspaceRepo, broker, store, drafter)
	feedService := services.NewFeedService(chatRepo, broker)

	scheduler := services.NewSchedulerService(time.Local)
	sweeper := services.NewOverdueSweeper(taskRepo, broker)
	if _, err := scheduler.ScheduleInterval(cfg.Scheduler.OverdueSweepInterval, sweeper.Job(time.Minute)); err != nil {
		slog.ErrorContext(ctx, "failed to schedule overdue sweep", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	a := app{
		auth:       handlers.NewAuthHandler(authService, cfg.IsProduction()),
		profiles:   handlers.NewProfileHandler(profileService),
		workspaces: handlers.NewWorkspaceHandler(workspaceService),
		tasks:      handlers.NewTaskHandler(taskService),
		feed:       handlers.NewFeedHandler(feedService),
		streams:    handlers.NewStreamHandler(authService, taskService, feedService, broker, handlers.DefaultHeartbeatInterval),

		authService:      authService,
		workspaceService: workspaceService,
		taskService:      taskService,
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create redis session store", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, sessionStore, a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}
	scheduler.Stop()

	if tel != nil {
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// newSessionStore keeps the session cookies in the same Redis as the broker.
func newSessionStore(cfg config.Config) (sessions.Store, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		opts.Addr,
		opts.Username,
		opts.Password,
		[]byte(cfg.Session.Secret),
	)
	if err != nil {
		return nil, err
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func setupRouter(cfg config.Config, sessionStore sessions.Store, a app) *gin.Engine {
	r := gin.New()

	// OTel creates the span, Recovery catches panics, then the logger sees trace context
	if cfg.OTel.Enabled() {
		r.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Mayau API is running",
		})
	})

	requireActive := middleware.RequireActive(a.authService)
	requireWorkspace := middleware.RequireWorkspace(a.workspaceService)
	requireTask := middleware.RequireTask(a.taskService)

	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.GET("/google", a.auth.GoogleLogin)
			auth.GET("/callback", a.auth.Callback)
			auth.POST("/master", a.auth.MasterLogin)
			auth.POST("/logout", middleware.RequireAuth(), a.auth.Logout)
			auth.GET("/me", middleware.RequireAuth(), a.auth.Me)
		}

		// Pending identities may edit themselves and watch for approval
		api.PATCH("/me", middleware.RequireAuth(), a.auth.UpdateMe)
		api.GET("/session/stream", middleware.RequireAuth(), a.streams.SessionStream)

		// Approval routes (master only)
		profiles := api.Group("/profiles")
		profiles.Use(middleware.RequireAuth(), middleware.RequireMaster(a.authService))
		{
			profiles.GET("", a.profiles.ListProfiles)
			profiles.POST("/:id/approve", a.profiles.Approve)
		}

		// Workspace routes (approved)
		workspaces := api.Group("/workspaces")
		workspaces.Use(middleware.RequireAuth(), requireActive)
		{
			workspaces.GET("", a.workspaces.ListWorkspaces)
			workspaces.GET("/resolve", a.workspaces.ResolveWorkspace)
			workspaces.PUT("/:id/members", requireWorkspace, a.workspaces.SetMembers)
			workspaces.GET("/:id/tasks", requireWorkspace, a.tasks.ListTasks)
			workspaces.POST("/:id/tasks", requireWorkspace, a.tasks.CreateTask)
			workspaces.POST("/:id/tasks/generate", requireWorkspace, a.tasks.GenerateTasks)
			workspaces.GET("/:id/tasks/stream", requireWorkspace, a.streams.TaskStream)
		}

		// Task routes (approved)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(), requireActive)
		{
			tasks.GET("/:id", requireTask, a.tasks.GetTask)
			tasks.PATCH("/:id", requireTask, a.tasks.UpdateTask)
			tasks.DELETE("/:id", requireTask, a.tasks.DeleteTask)
			tasks.POST("/:id/assignees/toggle", requireTask, a.tasks.ToggleAssignee)
			tasks.POST("/:id/comments", requireTask, a.tasks.AddComment)
			tasks.POST("/:id/attachments", requireTask, a.tasks.AddAttachment)
			tasks.POST("/:id/attachments/upload", requireTask, a.tasks.UploadAttachment)

			// Chat is keyed by task id alone and outlives the task
			tasks.GET("/:id/chat", a.feed.ListMessages)
			tasks.POST("/:id/chat", a.feed.SendMessage)
			tasks.GET("/:id/chat/stream", a.streams.ChatStream)
		}
	}

	return r
}
