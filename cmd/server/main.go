// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/dartkeeper/internal/backend"
	"github.com/jason-s-yu/dartkeeper/internal/config"
	"github.com/jason-s-yu/dartkeeper/internal/game"
	"github.com/jason-s-yu/dartkeeper/internal/handlers"
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

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}

	sessions := game.NewSessionStore(backend.NewEngine(cfg), store, logger.WithField("component", "session"))
	if err := sessions.Load(ctx); err != nil {
		logger.Fatalf("load session: %v", err)
	}

	pub, rdb, err := backend.OpenJournal(ctx, cfg)
	if err != nil {
		// the journal is an add-on; scoring keeps working without it
		logger.WithError(err).Warn("match journal disabled")
	} else if pub != nil {
		sessions.SetPublisher(pub, 0)
		defer rdb.Close()
	}

	api := handlers.NewAPI(sessions, logger)
	api.AllowedOrigins = cfg.Server.AllowedOrigins

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		logger.Infof("Running on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
	if err := sessions.Close(); err != nil {
		logger.WithError(err).Warn("closing storage failed")
	}
}
