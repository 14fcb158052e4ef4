// internal/backend/backend_test.go
package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jason-s-yu/dartkeeper/internal/config"
	"github.com/jason-s-yu/dartkeeper/internal/storage"
	"github.com/jason-s-yu/dartkeeper/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_LocalBackends(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name    string
		backend string
		path    string
		check   func(t *testing.T, st storage.Store)
	}{
		{"memory", config.BackendMemory, "", func(t *testing.T, st storage.Store) {
			assert.IsType(t, &storage.MemoryStore{}, st)
		}},
		{"file", config.BackendFile, filepath.Join(dir, "state.json"), func(t *testing.T, st storage.Store) {
			assert.IsType(t, &storage.FileStore{}, st)
		}},
		{"sqlite", config.BackendSQLite, filepath.Join(dir, "state.db"), func(t *testing.T, st storage.Store) {
			assert.IsType(t, &sqlite.Store{}, st)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Storage.Backend = tt.backend
			cfg.Storage.Path = tt.path

			st, err := OpenStore(ctx, cfg)
			require.NoError(t, err)
			defer st.Close()
			tt.check(t, st)

			require.NoError(t, st.Save(ctx, []byte(`{"savedGames":[]}`)))
			data, found, err := st.Load(ctx)
			require.NoError(t, err)
			assert.True(t, found)
			assert.JSONEq(t, `{"savedGames":[]}`, string(data))
		})
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "floppy"

	_, err := OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewEngine_UsesConfiguredRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules.EnforceTurnOrder = false
	cfg.Rules.MaxSavedGames = 3
	cfg.Rules.AvatarBaseURL = "https://avatars.local/"

	e := NewEngine(cfg)

	assert.False(t, e.Rules.EnforceTurnOrder)
	assert.Equal(t, 3, e.Rules.MaxSavedGames)
	assert.Equal(t, "https://avatars.local/Ann+Lee", e.AvatarFor("Ann Lee"))
}

func TestOpenJournal_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()

	pub, rdb, err := OpenJournal(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, pub)
	assert.Nil(t, rdb)
}
