package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobal clears the global manager between tests.
func resetGlobal(t *testing.T) {
	t.Helper()
	reset := func() {
		globalMu.Lock()
		globalManager = nil
		globalMu.Unlock()
	}
	reset()
	t.Cleanup(reset)
}

func TestInitialize_Defaults(t *testing.T) {
	resetGlobal(t)

	assert.False(t, IsInitialized())
	assert.Nil(t, GetOverlay())
	assert.Nil(t, GetLLM())
	assert.Panics(t, func() { Global() })

	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "config.json")))
	assert.True(t, IsInitialized())

	ids := []string{}
	for _, s := range Global().GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{SectionIDOverlay, SectionIDMatching, SectionIDLLM, SectionIDServer}, ids)

	assert.Equal(t, float64(24), GetOverlay().Options().ButtonSize)
	base, _, timeout := GetMatching().Settings()
	assert.Equal(t, DefaultMatchingURL, base)
	assert.Equal(t, time.Minute, timeout)
	addr, _, _, budget := GetServer().Settings()
	assert.Equal(t, DefaultServerAddr, addr)
	assert.Equal(t, 2000, budget)
	assert.Equal(t, "", GetLLM().GetModel())
}

func TestInitialize_FromYAML(t *testing.T) {
	resetGlobal(t)

	path := filepath.Join(t.TempDir(), "formless.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "1.0"
sections:
  overlay:
    button_size: 32
    debounce_delay: 250ms
  matching:
    base_url: https://match.example.com
    timeout: 5s
  server:
    addr: 127.0.0.1:9999
    context_budget: 100
  llm:
    model: local-model
`), 0600))

	require.NoError(t, Initialize(path))

	opts := GetOverlay().Options()
	assert.Equal(t, float64(32), opts.ButtonSize)
	assert.Equal(t, float64(4), opts.Margin)
	assert.Equal(t, 250*time.Millisecond, opts.DebounceDelay)

	base, _, timeout := GetMatching().Settings()
	assert.Equal(t, "https://match.example.com", base)
	assert.Equal(t, 5*time.Second, timeout)

	addr, _, _, budget := GetServer().Settings()
	assert.Equal(t, "127.0.0.1:9999", addr)
	assert.Equal(t, 100, budget)

	assert.Equal(t, "local-model", GetLLM().GetModel())
}

func TestInitialize_InvalidSection(t *testing.T) {
	resetGlobal(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sections":{"overlay":{"button_size":"big"}}}`), 0600))

	err := Initialize(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "button_size")
	assert.False(t, IsInitialized())
}

func TestGlobalConfig_Persistence(t *testing.T) {
	resetGlobal(t)
	path := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, Initialize(path))
	GetLLM().SetModel("persisted-model")
	GetLLM().SetAPIKey("k")
	require.NoError(t, Global().SaveAll())

	resetGlobal(t)
	require.NoError(t, Initialize(path))
	assert.Equal(t, "persisted-model", GetLLM().GetModel())
	assert.Equal(t, "k", GetLLM().GetAPIKey())
}

func TestGlobalConfig_ThreadSafety(t *testing.T) {
	resetGlobal(t)
	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "config.json")))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = GetOverlay().Options()
			_ = GetLLM().GetModel()
		}()
		go func() {
			defer wg.Done()
			GetLLM().SetModel("m")
			_ = GetOverlay().SetData(map[string]any{"margin": 6})
		}()
	}
	wg.Wait()
	assert.Equal(t, float64(6), GetOverlay().Options().Margin)
}
