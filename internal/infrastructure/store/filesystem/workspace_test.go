package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace(t *testing.T) {
	t.Run("write and remove", func(t *testing.T) {
		base := t.TempDir()

		ws, err := NewWorkspace(base, "plan-")
		require.NoError(t, err)
		assert.Equal(t, base, filepath.Dir(ws.Dir()))
		assert.Contains(t, filepath.Base(ws.Dir()), "plan-")

		path, err := ws.WriteFile(MainFile, "terraform {}")
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "terraform {}", string(data))

		require.NoError(t, ws.Remove())
		assert.NoDirExists(t, ws.Dir())
	})

	t.Run("each workspace is distinct", func(t *testing.T) {
		base := t.TempDir()
		a, err := NewWorkspace(base, "x-")
		require.NoError(t, err)
		b, err := NewWorkspace(base, "x-")
		require.NoError(t, err)
		assert.NotEqual(t, a.Dir(), b.Dir())
	})

	t.Run("missing base dir is created", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "work")
		ws, err := NewWorkspace(base, "")
		require.NoError(t, err)
		assert.DirExists(t, ws.Dir())
	})

	t.Run("base path is a file", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, nil, 0o644))

		_, err := NewWorkspace(f, "")
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("file names cannot escape", func(t *testing.T) {
		ws, err := NewWorkspace(t.TempDir(), "")
		require.NoError(t, err)

		for _, name := range []string{"../main.tf", "sub/main.tf", "..", "."} {
			_, err := ws.WriteFile(name, "x")
			assert.Error(t, err, name)
		}
	})
}
