package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	_, found, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found, "missing file is not an error")

	require.NoError(t, fs.Save(ctx, []byte(`{"a":1}`)))
	require.NoError(t, fs.Save(ctx, []byte(`{"a":2}`)))

	data, found, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")

	require.NoError(t, fs.Clear(ctx))
	require.NoError(t, fs.Clear(ctx), "clearing twice is fine")
	_, found, err = fs.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	in := []byte("abc")
	require.NoError(t, m.Save(ctx, in))
	in[0] = 'x'

	out, found, err := m.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc", string(out))

	out[0] = 'y'
	again, _, _ := m.Load(ctx)
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, m.Saves())

	require.NoError(t, m.Clear(ctx))
	_, found, _ = m.Load(ctx)
	assert.False(t, found)
}
