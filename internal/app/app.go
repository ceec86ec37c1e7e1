package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"askcampus/backend/internal/api"
	"askcampus/backend/internal/assistant"
	"askcampus/backend/internal/cloud"
	"askcampus/backend/internal/config"
	"askcampus/backend/internal/database"
	"askcampus/backend/internal/repository"
	"askcampus/backend/internal/service"
	"askcampus/backend/internal/session"
)

// App holds the wired application: the HTTP server, the session hub and the
// storage handle that needs closing on shutdown.
type App struct {
	Server *http.Server
	Hub    *session.Hub
	DB     *sql.DB
}

// NewApp wires the application from configuration: storage backend, answer
// client, gateway services, session hub and router.
func NewApp(cfg *config.Config) (*App, error) {
	var repo repository.Repository
	var db *sql.DB

	switch strings.ToLower(cfg.StorageBackend) {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		repo = repository.NewRedisRepository(rdb)
		slog.Info("Using Redis storage backend", "addr", cfg.RedisAddr)
	case "", "sqlite":
		var err error
		db, err = database.InitDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("could not initialize database: %w", err)
		}
		repo = repository.NewSQLiteRepository(db)
		slog.Info("Using SQLite storage backend", "path", cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	provider := assistant.NewClient(cfg.AnswerServiceURL)
	relay := service.NewRelayService(provider, cfg.DefaultNamespace)
	archive := service.NewArchiveService(repo)
	feedback := service.NewFeedbackService(repo)
	users := service.NewUserService(repo)

	// Session collaborators: in-process services by default, or a remote
	// gateway when this instance runs as a pure session front.
	var storage session.ConversationStorage = archive
	var sink session.FeedbackSink = feedback
	var guests session.GuestRegistrar = users
	if cfg.RemoteStoreURL != "" {
		remote := cloud.NewClient(cfg.RemoteStoreURL)
		storage, sink, guests = remote, remote, remote
		slog.Info("Using remote conversation store", "url", cfg.RemoteStoreURL)
	}

	debounce := time.Duration(cfg.SyncDebounceMs) * time.Millisecond
	hub := session.NewHub(func(userID string) *session.Manager {
		return session.NewManager(session.Config{
			UserID:       userID,
			Namespace:    cfg.DefaultNamespace,
			SyncDebounce: debounce,
		}, relay, storage, sink, guests)
	})

	gatewayHandler := api.NewGatewayHandler(relay, archive, feedback, users)
	sessionHandler := api.NewSessionHandler(hub)
	router := api.NewRouter(gatewayHandler, sessionHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{Server: server, Hub: hub, DB: db}, nil
}

// Run starts the application and blocks until the process is signalled to
// stop. Shutdown drains the session hub so pending debounced syncs land.
func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)
	logConfigSource()

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to wire application", "error", err)
		return 1
	}
	defer func() {
		if app.DB != nil {
			if err := app.DB.Close(); err != nil {
				slog.Error("Failed to close database connection", "error", err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", app.Server.Addr)
		errCh <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
		app.Hub.Shutdown()
	}

	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
