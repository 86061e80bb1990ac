package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/farellandr/userevents/config"
	"github.com/farellandr/userevents/internal/repository"
	"github.com/farellandr/userevents/internal/seed"
	"github.com/farellandr/userevents/internal/store"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(err.Error())
	}
	config.InitLogger()
}

func main() {
	if err := run(); err != nil {
		slog.Error("setup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	backend, cleanup, err := config.InitStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if p, ok := backend.(store.Provisioner); ok {
		if err := p.EnsureTables(ctx); err != nil {
			return err
		}
		slog.Info("tables ready", "backend", cfg.StoreBackend)
	}

	schema, opts := cfg.Schema(), cfg.RepositoryOptions()
	_, err = seed.Run(ctx,
		repository.NewUserRepository(backend, schema, opts),
		repository.NewEventRepository(backend, schema),
		repository.NewRelationRepository(backend, schema, opts),
	)
	return err
}
