package config

import (
	"testing"
	"time"

	"github.com/entrhq/formless/pkg/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaySection_Defaults(t *testing.T) {
	s := NewOverlaySection()
	assert.Equal(t, SectionIDOverlay, s.ID())
	assert.NotEmpty(t, s.Title())
	assert.NotEmpty(t, s.Description())
	assert.Equal(t, overlay.DefaultOptions(), s.Options())
	assert.NoError(t, s.Validate())
	assert.Equal(t, "100ms", s.Data()["debounce_delay"])
}

func TestOverlaySection_SetData(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		check   func(t *testing.T, o overlay.Options)
		wantErr string
	}{
		{
			name: "json numbers and duration string",
			data: map[string]any{"button_size": 30.0, "far_margin": 50.0, "debounce_delay": "1s"},
			check: func(t *testing.T, o overlay.Options) {
				assert.Equal(t, float64(30), o.ButtonSize)
				assert.Equal(t, float64(50), o.FarMargin)
				assert.Equal(t, time.Second, o.DebounceDelay)
			},
		},
		{
			name: "yaml ints and nanosecond duration",
			data: map[string]any{"margin": 2, "debounce_delay": 5000000},
			check: func(t *testing.T, o overlay.Options) {
				assert.Equal(t, float64(2), o.Margin)
				assert.Equal(t, 5*time.Millisecond, o.DebounceDelay)
			},
		},
		{
			name: "unknown keys ignored",
			data: map[string]any{"theme": "dark"},
			check: func(t *testing.T, o overlay.Options) {
				assert.Equal(t, overlay.DefaultOptions(), o)
			},
		},
		{name: "bad number", data: map[string]any{"margin": "wide"}, wantErr: "margin"},
		{name: "bad duration", data: map[string]any{"debounce_delay": "soon"}, wantErr: "debounce_delay"},
		{name: "bad duration type", data: map[string]any{"debounce_delay": true}, wantErr: "bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewOverlaySection()
			err := s.SetData(tt.data)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, s.Options())
		})
	}
}

func TestOverlaySection_Validate(t *testing.T) {
	s := NewOverlaySection()
	require.NoError(t, s.SetData(map[string]any{"button_size": 0}))
	assert.Error(t, s.Validate())

	s.Reset()
	require.NoError(t, s.SetData(map[string]any{"margin": -1}))
	assert.Error(t, s.Validate())

	s.Reset()
	require.NoError(t, s.SetData(map[string]any{"debounce_delay": "10s"}))
	assert.Error(t, s.Validate())

	s.Reset()
	require.NoError(t, s.SetData(map[string]any{"debounce_delay": "0s"}))
	assert.NoError(t, s.Validate())
}

func TestMatchingSection(t *testing.T) {
	s := NewMatchingSection()
	assert.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]any{"base_url": "ftp://x", "timeout": "2s", "api_key": "k"}))
	assert.Error(t, s.Validate())
	_, key, timeout := s.Settings()
	assert.Equal(t, "k", key)
	assert.Equal(t, 2*time.Second, timeout)

	require.NoError(t, s.SetData(map[string]any{"base_url": "https://m.example.com"}))
	assert.NoError(t, s.Validate())
	assert.Equal(t, "https://m.example.com", s.Data()["base_url"])

	assert.Error(t, s.SetData(map[string]any{"timeout": []int{1}}))
}

func TestServerSection(t *testing.T) {
	s := NewServerSection()
	assert.NoError(t, s.Validate())
	_, dir, _, _ := s.Settings()
	assert.Contains(t, dir, "memories")

	require.NoError(t, s.SetData(map[string]any{"memory_dir": "/tmp/m", "context_budget": 10.0}))
	_, dir, _, budget := s.Settings()
	assert.Equal(t, "/tmp/m", dir)
	assert.Equal(t, 10, budget)

	require.NoError(t, s.SetData(map[string]any{"context_budget": -1}))
	assert.Error(t, s.Validate())
	assert.Error(t, s.SetData(map[string]any{"context_budget": "lots"}))
}
