package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/formless/pkg/overlay"
)

const (
	// SectionIDOverlay is the identifier for the overlay settings section
	SectionIDOverlay = "overlay"
)

// OverlaySection manages affordance geometry and viewport debouncing.
type OverlaySection struct {
	ButtonSize    float64
	Margin        float64
	FarMargin     float64
	DebounceDelay time.Duration
	mu            sync.RWMutex
}

// NewOverlaySection creates a new overlay section with default settings.
func NewOverlaySection() *OverlaySection {
	s := &OverlaySection{}
	s.Reset()
	return s
}

func (s *OverlaySection) ID() string {
	return SectionIDOverlay
}

func (s *OverlaySection) Title() string {
	return "Overlay Settings"
}

func (s *OverlaySection) Description() string {
	return "Size and placement of the fill buttons and how long scrolling settles before they are repositioned."
}

// Data returns the current configuration data.
func (s *OverlaySection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"button_size":    s.ButtonSize,
		"margin":         s.Margin,
		"far_margin":     s.FarMargin,
		"debounce_delay": s.DebounceDelay.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *OverlaySection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "button_size", "margin", "far_margin":
			n, ok := toFloat(value)
			if !ok {
				return fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
			}
			switch key {
			case "button_size":
				s.ButtonSize = n
			case "margin":
				s.Margin = n
			default:
				s.FarMargin = n
			}

		case "debounce_delay":
			d, err := toDuration(value)
			if err != nil {
				return fmt.Errorf("invalid debounce_delay: %w", err)
			}
			s.DebounceDelay = d

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *OverlaySection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ButtonSize <= 0 {
		return fmt.Errorf("button_size must be positive, got %v", s.ButtonSize)
	}
	if s.Margin < 0 || s.FarMargin < 0 {
		return fmt.Errorf("margins must not be negative")
	}
	if s.DebounceDelay < 0 || s.DebounceDelay > 5*time.Second {
		return fmt.Errorf("debounce_delay must be between 0 and 5s, got %v", s.DebounceDelay)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *OverlaySection) Reset() {
	d := overlay.DefaultOptions()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ButtonSize = d.ButtonSize
	s.Margin = d.Margin
	s.FarMargin = d.FarMargin
	s.DebounceDelay = d.DebounceDelay
}

// Options returns the settings in the form overlay.NewManager takes.
func (s *OverlaySection) Options() overlay.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return overlay.Options{
		ButtonSize:    s.ButtonSize,
		Margin:        s.Margin,
		FarMargin:     s.FarMargin,
		DebounceDelay: s.DebounceDelay,
	}
}

// toFloat accepts the number types JSON and YAML decoding produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toDuration accepts "250ms"-style strings or a number of nanoseconds.
func toDuration(v any) (time.Duration, error) {
	if s, ok := v.(string); ok {
		return time.ParseDuration(s)
	}
	if n, ok := toFloat(v); ok {
		return time.Duration(n), nil
	}
	return 0, fmt.Errorf("expected string or number, got %T", v)
}
