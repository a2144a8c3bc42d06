package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-task-manager/internal/config"
	"go-task-manager/internal/credential"
	"go-task-manager/internal/database"
	"go-task-manager/internal/handler"
	"go-task-manager/internal/mailer"
	"go-task-manager/internal/metrics"
	"go-task-manager/internal/middleware"
	"go-task-manager/internal/repository"
	"go-task-manager/internal/router"
	"go-task-manager/internal/service"
	"go-task-manager/internal/storage"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	handler.SetVerbose(!cfg.Production())

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Migrate(context.Background(), cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	slog.Info("database ready")

	// One credential design per process: revocable server-side sessions or
	// stateless signed tokens.
	var issuer credential.Issuer
	switch cfg.AuthMode {
	case config.AuthModeToken:
		issuer = credential.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
		slog.Info("credential mode: stateless token (no mid-lifetime revocation)")
	default:
		issuer = credential.NewSessionIssuer(sessionRepo, cfg.SessionTTL)
		slog.Info("credential mode: server-side session")
	}

	mail := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)

	var avatars storage.AvatarStore
	if cfg.AvatarBucket != "" {
		s3Store, err := storage.NewS3AvatarStore(context.Background(), cfg.AvatarBucket, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize avatar storage: %w", err)
		}
		avatars = s3Store
	} else {
		slog.Warn("AVATAR_BUCKET not set; avatar uploads disabled")
	}

	resetBaseURL := "http://localhost:" + cfg.ServerPort
	if cfg.Production() {
		resetBaseURL = "https://" + os.Getenv("PUBLIC_HOST")
	}

	authService := service.NewAuthService(userRepo, issuer, mail, avatars, cfg.ResetTokenTTL, resetBaseURL, cfg.AvatarMaxSize)
	taskService := service.NewTaskService(taskRepo)

	m := metrics.New()
	responder := middleware.NewDenialResponder(cfg.LoginRedirect)
	authenticator := middleware.NewAuthenticator(issuer, userRepo, responder, cfg.CookieName, cfg.StoreTimeout, m)

	cookies := handler.CookieConfig{
		Name:      cfg.CookieName,
		TTL:       cfg.SessionTTL,
		Secure:    cfg.Production(),
		TokenMode: cfg.AuthMode == config.AuthModeToken,
	}
	authHandler := handler.NewAuthHandler(authService, cookies, authenticator.ExtractCredential)
	taskHandler := handler.NewTaskHandler(taskService)
	userHandler := handler.NewUserHandler(authService)

	health := func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}

	appRouter := router.New(cfg, authenticator, m, router.Handlers{
		Auth: authHandler,
		Task: taskHandler,
		User: userHandler,
	}, health)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	if cfg.AuthMode == config.AuthModeSession {
		go sweepSessions(sweepCtx, sessionRepo, cfg.SessionSweep)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			sweepCancel,
			db.Close,
		},
	}, nil
}

// sweepSessions reclaims expired session rows in the background. Correctness
// never depends on it: Get re-checks expiry on every call.
func sweepSessions(ctx context.Context, sessions *repository.SessionRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.CleanExpired(ctx)
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("session sweep", "removed", removed)
			}
		}
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
