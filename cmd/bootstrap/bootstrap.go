package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-calendar/config"
	deliveryHttp "clinic-calendar/internal/delivery/http"
	"clinic-calendar/internal/delivery/http/handler"
	"clinic-calendar/internal/delivery/http/middleware"
	"clinic-calendar/internal/domain/entity"
	domainRepo "clinic-calendar/internal/domain/repository"
	"clinic-calendar/internal/infrastructure/cache"
	"clinic-calendar/internal/infrastructure/database"
	"clinic-calendar/internal/repository"
	"clinic-calendar/internal/seed"
	"clinic-calendar/internal/service"
	"clinic-calendar/internal/usecase"
	"clinic-calendar/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	rateLimit *middleware.RateLimitMiddleware
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	setupLogger(cfg.App.LogLevel)
	logrus.Info("Configuration loaded successfully")

	loc, err := loadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, err
	}

	blobRepo, err := app.newBlobRepository(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	seedData := seed.Default(loc)
	if cfg.Store.SeedFile != "" {
		seedData, err = seed.LoadFile(cfg.Store.SeedFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		logrus.Infof("Seed data loaded from %s", cfg.Store.SeedFile)
	}

	log := logrus.StandardLogger()

	store := usecase.NewAppointmentStore(
		log,
		blobRepo,
		service.NewExportService(log, loc),
		validator.NewValidator(),
		seedData,
		usecase.AppointmentStoreConfig{
			Key:        cfg.Store.Key,
			Location:   loc,
			FilterMode: entity.ParseFilterMode(cfg.Store.FilterMode),
		},
	)

	if err := store.Load(context.Background()); err != nil {
		if !errors.Is(err, usecase.ErrStorageRead) {
			app.Close()
			return nil, fmt.Errorf("failed to load appointments: %w", err)
		}
		// the store keeps serving the seed data
		logrus.Warnf("Appointment store started from seed data: %v", err)
	}

	app.Server = app.initializeServer(cfg, store, log)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// newBlobRepository connects the configured backend
func (app *App) newBlobRepository(cfg *config.Config) (domainRepo.BlobRepository, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		logrus.Warn("Using in-memory storage, appointments are lost on restart")
		return repository.NewMemoryBlobRepository(), nil

	case config.BackendRedis:
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.RedisClient = redisClient
		logrus.Info("Redis connected successfully")
		return repository.NewRedisBlobRepository(redisClient), nil

	case config.BackendPostgres:
		db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = db
		logrus.Info("Database connected successfully")
		return repository.NewPostgresBlobRepository(db), nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(cfg *config.Config, store usecase.AppointmentStore, log *logrus.Logger) *http.Server {
	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(store)
	exportHandler := handler.NewExportHandler(store, log)

	// Initialize middleware
	app.rateLimit = middleware.NewRateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigins)

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, exportHandler, app.rateLimit, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s, storage: %s", app.Config.App.Env, app.Config.Store.Backend)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close stops background workers and closes the storage connections
func (app *App) Close() {
	if app.rateLimit != nil {
		app.rateLimit.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
