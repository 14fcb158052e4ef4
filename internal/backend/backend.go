// internal/backend/backend.go
package backend

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/dartkeeper/internal/cache"
	"github.com/jason-s-yu/dartkeeper/internal/config"
	"github.com/jason-s-yu/dartkeeper/internal/database"
	"github.com/jason-s-yu/dartkeeper/internal/game"
	"github.com/jason-s-yu/dartkeeper/internal/storage"
	"github.com/jason-s-yu/dartkeeper/internal/storage/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewEngine builds the match engine with the rules from cfg.
func NewEngine(cfg *config.Config) *game.Engine {
	e := game.NewEngine(game.Rules{
		EnforceTurnOrder:         cfg.Rules.EnforceTurnOrder,
		AllowDuplicateEnrollment: cfg.Rules.AllowDuplicateEnrollment,
		MaxSavedGames:            cfg.Rules.MaxSavedGames,
	})
	if cfg.Rules.AvatarBaseURL != "" {
		e.AvatarBaseURL = cfg.Rules.AvatarBaseURL
	}
	return e
}

// OpenStore builds the snapshot backend selected in cfg. Network backends are
// connected and, for Postgres, migrated before returning.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	key := cfg.Storage.Key
	if key == "" {
		key = storage.DefaultKey
	}
	log := logrus.WithFields(logrus.Fields{"backend": cfg.Storage.Backend, "key": key})

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("memory backend selected, the session will not survive a restart")
		return storage.NewMemoryStore(), nil

	case config.BackendFile, "":
		st, err := storage.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		log.WithField("path", st.Path()).Info("using file backend")
		return st, nil

	case config.BackendSQLite:
		st, err := sqlite.Open(cfg.Storage.Path, key)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Storage.Path).Info("using sqlite backend")
		return st, nil

	case config.BackendRedis:
		rdb, err := cache.Connect(ctx, redisOptions(cfg))
		if err != nil {
			return nil, err
		}
		log.WithField("addr", cfg.Redis.Addr).Info("using redis backend")
		return cache.NewSnapshotStore(rdb, key), nil

	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("using postgres backend")
		return database.NewSnapshotStore(pool, key), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// OpenJournal connects the match event publisher when the journal is enabled.
// It returns a nil publisher and a nil client when it is not.
func OpenJournal(ctx context.Context, cfg *config.Config) (*cache.Publisher, *redis.Client, error) {
	if !cfg.Journal.Enabled {
		return nil, nil, nil
	}
	rdb, err := cache.Connect(ctx, redisOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("journal: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"addr":  cfg.Redis.Addr,
		"queue": cfg.Journal.Queue,
	}).Info("match journal enabled")
	return cache.NewPublisher(rdb, cfg.Journal.Queue), rdb, nil
}

func redisOptions(cfg *config.Config) cache.Options {
	return cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}
