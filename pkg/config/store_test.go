package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		store, err := NewFileStore(path)
		require.NoError(t, err)
		assert.Equal(t, path, store.Path())
		assert.False(t, store.IsModified())
	})

	t.Run("default path", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		store, err := NewFileStore("")
		require.NoError(t, err)
		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".formless", "config.json"), store.Path())
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
		_, err := NewFileStore(path)
		assert.Error(t, err)
	})
}

func TestFileStore_SaveLoad(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		marker string
	}{
		{"json", "config.json", `"sections": {`},
		{"yaml", "config.yaml", "sections:\n"},
		{"yml", "config.YML", "sections:\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", tt.file)
			store, err := NewFileStore(path)
			require.NoError(t, err)

			require.NoError(t, store.SetSection("server", map[string]interface{}{
				"addr":           ":9000",
				"context_budget": 500,
			}))
			assert.True(t, store.IsModified())
			require.NoError(t, store.Save())
			assert.False(t, store.IsModified())
			assert.NoFileExists(t, path+".tmp")

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, strings.Contains(string(raw), tt.marker), string(raw))

			reloaded, err := NewFileStore(path)
			require.NoError(t, err)
			section, err := reloaded.GetSection("server")
			require.NoError(t, err)
			assert.Equal(t, ":9000", section["addr"])
			n, ok := toFloat(section["context_budget"])
			require.True(t, ok)
			assert.Equal(t, float64(500), n)
		})
	}
}

func TestFileStore_Copies(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	in := map[string]interface{}{"k": "v"}
	require.NoError(t, store.SetSection("a", in))
	in["k"] = "changed"

	out, err := store.GetSection("a")
	require.NoError(t, err)
	assert.Equal(t, "v", out["k"])
	out["k"] = "changed"

	again, _ := store.GetSection("a")
	assert.Equal(t, "v", again["k"])

	missing, err := store.GetSection("missing")
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, store.SetAll(map[string]map[string]interface{}{"b": {"x": 1}}))
	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "b")
}
