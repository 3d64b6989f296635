package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

const (
	// SectionIDMatching is the identifier for the matching client section
	SectionIDMatching = "matching"

	DefaultMatchingURL     = "http://localhost:8000"
	defaultMatchingTimeout = 60 * time.Second
)

// MatchingSection tells the CLI where the matching service lives.
type MatchingSection struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	mu      sync.RWMutex
}

func NewMatchingSection() *MatchingSection {
	s := &MatchingSection{}
	s.Reset()
	return s
}

func (s *MatchingSection) ID() string          { return SectionIDMatching }
func (s *MatchingSection) Title() string       { return "Matching Service" }
func (s *MatchingSection) Description() string { return "Base URL, bearer key and timeout of the matching and memory API." }

func (s *MatchingSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"base_url": s.BaseURL,
		"api_key":  s.APIKey,
		"timeout":  s.Timeout.String(),
	}
}

func (s *MatchingSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["base_url"].(string); ok && v != "" {
		s.BaseURL = v
	}
	if v, ok := data["api_key"].(string); ok {
		s.APIKey = v
	}
	if v, ok := data["timeout"]; ok {
		d, err := toDuration(v)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		s.Timeout = d
	}
	return nil
}

func (s *MatchingSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", s.BaseURL)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", s.Timeout)
	}
	return nil
}

func (s *MatchingSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseURL = DefaultMatchingURL
	s.APIKey = ""
	s.Timeout = defaultMatchingTimeout
}

// Settings returns a consistent snapshot.
func (s *MatchingSection) Settings() (baseURL, apiKey string, timeout time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL, s.APIKey, s.Timeout
}
