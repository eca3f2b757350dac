package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"hostel/internal/config"
	"hostel/internal/logger"
	"hostel/internal/store"
)

// Applies the schema to the configured store and exits. The API server
// migrates on boot as well; this exists for operators who want the step on
// its own, for example before rolling out new instances.
func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "hostel-migrate")
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("store connect failed", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		zlog.Fatal("migrate failed", zap.Error(err))
	}
	zlog.Info("schema applied", zap.String("engine", db.Engine))
}
