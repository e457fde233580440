package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssforge/ssforge/pkg/host/fsutil"
)

func TestSnapshot(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		bak, err := fsutil.Snapshot(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, bak)
	})

	t.Run("CopiesContentAndMode", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("secret"), 0600))

		bak, err := fsutil.Snapshot(path)
		require.NoError(t, err)
		require.NotEmpty(t, bak)

		data, err := os.ReadFile(bak)
		require.NoError(t, err)
		assert.Equal(t, "secret", string(data))

		fi, err := os.Stat(bak)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	})
}

func TestBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrapper")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0755))
		_, err := fsutil.Snapshot(path)
		require.NoError(t, err)
	}

	baks, err := fsutil.Backups(path)
	require.NoError(t, err)
	require.Len(t, baks, 3)
	// Oldest first.
	assert.True(t, baks[0] < baks[1] && baks[1] < baks[2])
}

func TestPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0644))
		_, err := fsutil.Snapshot(path)
		require.NoError(t, err)
	}

	require.NoError(t, fsutil.Prune(path, 2))

	baks, err := fsutil.Backups(path)
	require.NoError(t, err)
	require.Len(t, baks, 2)

	// The newest backups survive.
	data, err := os.ReadFile(baks[1])
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, data)

	t.Run("Disabled", func(t *testing.T) {
		require.NoError(t, fsutil.Prune(path, 0))
		baks, err := fsutil.Backups(path)
		require.NoError(t, err)
		assert.Len(t, baks, 2)
	})
}
