// cmd/historian/main.go is the asynchronous historian service: it pops match
// journal records from the Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/dartkeeper/internal/cache"
	"github.com/jason-s-yu/dartkeeper/internal/config"
	"github.com/jason-s-yu/dartkeeper/internal/database"
	"github.com/jason-s-yu/dartkeeper/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("DARTKEEPER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.Postgres.DSN == "" {
		logrus.Fatal("POSTGRES_DSN must be set for the historian")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logrus.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logrus.Fatalf("migrate: %v", err)
	}

	rdb, err := cache.Connect(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logrus.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.New(rdb, database.JournalWriter{Pool: pool}, historian.Options{
		Queue:      cfg.Journal.Queue,
		BatchSize:  cfg.Historian.BatchSize,
		FlushDelay: time.Duration(cfg.Historian.FlushMs) * time.Millisecond,
		Inactivity: time.Duration(cfg.Historian.InactivitySec) * time.Second,
	})

	// Run blocks until a signal cancels ctx, then flushes what is pending.
	svc.Run(ctx)
	logrus.Info("Historian shutdown complete.")
}
