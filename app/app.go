package app

import (
	"context"
	"database/sql"
	"go-auth-api/config"
	"go-auth-api/db"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
)

// Components are the wired service graph behind the HTTP router.
type Components struct {
	Router  http.Handler
	Auth    *service.AuthService
	Users   *service.UserService
	Refresh *service.RefreshTokenService
	Tokens  *service.AccessTokenManager
}

// Build wires repositories, services and handlers. rdb may be nil, in which
// case profiles are not cached.
func Build(ctx context.Context, cfg *config.Config, database *sql.DB, rdb *redis.Client) (*Components, error) {
	userRepo := repository.NewUserRepository()
	tokenRepo := repository.NewTokenRepository()

	var cache *service.ProfileCache
	if rdb != nil {
		cache = service.NewProfileCache(rdb, cfg.Redis.ProfileTTL)
	}

	tokens := service.NewAccessTokenManager(cfg.JWT)
	refresh := service.NewRefreshTokenService(database, tokenRepo, userRepo,
		service.NewBcryptHasher(cfg.Security.TokenHashCost),
		service.RefreshTokenOptions{
			TTL:                 cfg.Refresh.TTL,
			RevokeFamilyOnReuse: cfg.Refresh.RevokeFamilyOnReuse,
		})
	users := service.NewUserService(database, userRepo, cache)

	deps := service.AuthDeps{
		DB:        database,
		UserRepo:  userRepo,
		Refresh:   refresh,
		Sessions:  service.NewSessionBuilder(tokens, refresh),
		Tokens:    tokens,
		Passwords: service.NewBcryptHasher(cfg.Security.PasswordHashCost),
		Users:     users,
	}
	if cfg.Google.ClientID != "" {
		verifier, err := service.NewIDTokenVerifier(ctx, cfg.Google.ClientID)
		if err != nil {
			return nil, err
		}
		deps.Google = verifier
		if cfg.Google.ClientSecret != "" && cfg.Google.RedirectURL != "" {
			deps.GoogleOAuth = service.NewGoogleOAuth(cfg.Google)
		}
		logger.Log.Info("Google sign-in enabled")
	}

	auth := service.NewAuthService(deps, service.AuthOptions{
		AllowRoleOnRegister:  cfg.Auth.AllowRoleOnRegister,
		RevokeOthersOnSignIn: cfg.Refresh.RevokeOthersOnSignIn,
	})

	r := router.NewRouter(handler.NewAuthHandler(auth, users), handler.NewUserHandler(users), tokens)

	return &Components{Router: r, Auth: auth, Users: users, Refresh: refresh, Tokens: tokens}, nil
}

func Run() {
	logger.Init()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		logger.Log.Fatalf("Error configuring logger: %v", err)
	}
	logger.Log.Info("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = db.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Log.Fatalf("Error connecting to redis: %v", err)
		}
		defer rdb.Close()
	} else {
		logger.Log.Info("Redis not configured, profile cache disabled")
	}

	components, err := Build(ctx, cfg, database, rdb)
	if err != nil {
		logger.Log.Fatalf("Error wiring application: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: components.Router,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// TestApp exposes the router and its database to integration tests.
type TestApp struct {
	DB *sql.DB
	*Components
}

func NewTestApp(cfg *config.Config, database *sql.DB, rdb *redis.Client) (*TestApp, error) {
	components, err := Build(context.Background(), cfg, database, rdb)
	if err != nil {
		return nil, err
	}
	return &TestApp{DB: database, Components: components}, nil
}
