package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/farellandr/userevents/config"
	"github.com/farellandr/userevents/internal/aggregation"
	"github.com/farellandr/userevents/internal/handlers"
	"github.com/farellandr/userevents/internal/middleware"
	"github.com/farellandr/userevents/internal/notify"
	"github.com/farellandr/userevents/internal/repository"
	"github.com/farellandr/userevents/internal/seed"
	"github.com/farellandr/userevents/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, cleanup, err := config.InitStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer cleanup()

	deps := NewDependencies(backend, cfg.Schema(), cfg.RepositoryOptions(), config.InitSender(cfg))

	if cfg.SeedSampleData {
		if p, ok := backend.(store.Provisioner); ok {
			if err := p.EnsureTables(ctx); err != nil {
				return fmt.Errorf("failed to provision tables: %w", err)
			}
		}
		if _, err := seed.Run(ctx, deps.Users, deps.Events, deps.Relations); err != nil {
			return fmt.Errorf("failed to seed sample data: %w", err)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: NewRouter(deps),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}

	deps.Notifier.Wait()
	return nil
}

// NewDependencies wires the repositories, engine and notifier over one backend.
func NewDependencies(backend store.Backend, schema store.Schema, opts repository.Options, sender notify.Sender) *middleware.Dependencies {
	relations := repository.NewRelationRepository(backend, schema, opts)
	emailLogs := repository.NewEmailLogRepository(backend, schema, opts)
	return &middleware.Dependencies{
		Users:      repository.NewUserRepository(backend, schema, opts),
		Events:     repository.NewEventRepository(backend, schema),
		Relations:  relations,
		EmailLogs:  emailLogs,
		Aggregator: aggregation.NewEngine(relations),
		Notifier:   notify.NewNotifier(sender, emailLogs),
		Refresher:  repository.StaleRefresher{},
	}
}

func NewRouter(deps *middleware.Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	setupRoutes(r, deps)
	return r
}

func setupRoutes(r *gin.Engine, deps *middleware.Dependencies) {
	r.GET("/", handlers.Welcome)
	r.GET("/healthz", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("")
	api.Use(middleware.DependenciesMiddleware(deps))
	{
		users := api.Group("/users")
		{
			users.GET("/events_and_role", handlers.GetUsersByRole)
			users.POST("/", handlers.FilterUsers)
			users.POST("/create", handlers.CreateUser)
			users.POST("/send_email", handlers.SendEmail)
			users.GET("/:id", handlers.GetUser)
			users.PUT("/:id", handlers.UpdateUser)
			users.DELETE("/:id", handlers.DeleteUser)
			users.GET("/:id/events", handlers.GetUserEvents)
		}

		events := api.Group("/events")
		{
			events.POST("/create", handlers.CreateEvent)
			events.GET("/:id", handlers.GetEvent)
			events.PUT("/:id", handlers.UpdateEvent)
			events.DELETE("/:id", handlers.DeleteEvent)
			events.GET("/:id/users", handlers.GetEventUsers)
			events.POST("/:id/users", handlers.AddEventUser)
		}

		api.GET("/email_logs/", handlers.ListEmailLogs)
	}
}
