package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// SectionIDServer is the identifier for the matching server section
	SectionIDServer = "server"

	DefaultServerAddr    = ":8000"
	defaultContextBudget = 2000
)

// ServerSection configures formless-server.
type ServerSection struct {
	Addr          string
	MemoryDir     string
	APIKey        string
	ContextBudget int
	mu            sync.RWMutex
}

func NewServerSection() *ServerSection {
	s := &ServerSection{}
	s.Reset()
	return s
}

func (s *ServerSection) ID() string    { return SectionIDServer }
func (s *ServerSection) Title() string { return "Server Settings" }
func (s *ServerSection) Description() string {
	return "Listen address, memory directory, optional bearer key and the token budget for page context."
}

func (s *ServerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"addr":           s.Addr,
		"memory_dir":     s.MemoryDir,
		"api_key":        s.APIKey,
		"context_budget": s.ContextBudget,
	}
}

func (s *ServerSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["addr"].(string); ok && v != "" {
		s.Addr = v
	}
	if v, ok := data["memory_dir"].(string); ok && v != "" {
		s.MemoryDir = v
	}
	if v, ok := data["api_key"].(string); ok {
		s.APIKey = v
	}
	if v, ok := data["context_budget"]; ok {
		n, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("invalid value type for context_budget: expected number, got %T", v)
		}
		s.ContextBudget = int(n)
	}
	return nil
}

func (s *ServerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if s.ContextBudget < 0 {
		return fmt.Errorf("context_budget must not be negative, got %d", s.ContextBudget)
	}
	return nil
}

func (s *ServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Addr = DefaultServerAddr
	s.MemoryDir = defaultMemoryDir()
	s.APIKey = ""
	s.ContextBudget = defaultContextBudget
}

// Settings returns a consistent snapshot.
func (s *ServerSection) Settings() (addr, memoryDir, apiKey string, contextBudget int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Addr, s.MemoryDir, s.APIKey, s.ContextBudget
}

func defaultMemoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".formless", "memories")
	}
	return filepath.Join(home, ".formless", "memories")
}
