package main

import (
	"log/slog"
	"os"

	"github.com/farellandr/userevents/config"
	"github.com/farellandr/userevents/internal/server"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(err.Error())
	}
	config.InitLogger()
}

func main() {
	if err := server.Start(); err != nil {
		slog.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
